package obligation

import (
	"context"
	"testing"
	"time"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/core/types"
)

func TestCurrencyAmount_Validate(t *testing.T) {
	if err := usd("0").Validate(); err != nil {
		t.Errorf("zero principal is legal, got %v", err)
	}
	if err := usd("-1").Validate(); err == nil {
		t.Error("expected error for negative amount")
	}
	if err := (CurrencyAmount{Currency: "BTC", Amount: types.MustMoney("1")}).Validate(); err == nil {
		t.Error("expected error for currency outside the working set")
	}
}

func TestObligation_Validate(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	valid := func() *Obligation {
		return NewObligation(KindAdvance, id.New(), "cash", []CurrencyAmount{usd("100")})
	}

	t.Run("valid", func(t *testing.T) {
		if err := valid().Validate(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("missing counterparty", func(t *testing.T) {
		o := valid()
		o.CounterpartyID = id.Nil()
		if err := o.Validate(ctx); !apperror.HasCode(err, apperror.CodeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		o := valid()
		o.Kind = "loan"
		if err := o.Validate(ctx); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("duplicate principal currency", func(t *testing.T) {
		o := valid()
		o.Principals = append(o.Principals, usd("50"))
		if err := o.Validate(ctx); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("installment currency containment", func(t *testing.T) {
		o := valid()
		o.Installments = map[Currency][]Installment{
			CurrencyTHB: {{LineNo: 1, Currency: CurrencyTHB, DueDate: due, Amount: types.MustMoney("100")}},
		}
		if err := o.Validate(ctx); !apperror.HasCode(err, apperror.CodeCurrencyNotInPrincipal) {
			t.Errorf("expected CURRENCY_NOT_IN_PRINCIPAL, got %v", err)
		}
	})

	t.Run("transaction currency containment", func(t *testing.T) {
		o := valid()
		o.Transactions = []Transaction{
			NewTransaction(TxSpend, CurrencyLAK, types.MustMoney("10"), "", due),
		}
		if err := o.Validate(ctx); !apperror.HasCode(err, apperror.CodeCurrencyNotInPrincipal) {
			t.Errorf("expected CURRENCY_NOT_IN_PRINCIPAL, got %v", err)
		}
	})

	t.Run("installment sum enforced", func(t *testing.T) {
		o := valid()
		o.Installments = map[Currency][]Installment{
			CurrencyUSD: {{LineNo: 1, Currency: CurrencyUSD, DueDate: due, Amount: types.MustMoney("42")}},
		}
		if err := o.Validate(ctx); !apperror.HasCode(err, apperror.CodeInstallmentSumMismatch) {
			t.Errorf("expected INSTALLMENT_SUM_MISMATCH, got %v", err)
		}
	})

	t.Run("closed requires closedAt", func(t *testing.T) {
		o := valid()
		o.Status = StatusClosed
		if err := o.Validate(ctx); err == nil {
			t.Error("expected error for closed without closedAt")
		}
	})

	t.Run("closedAt only when closed", func(t *testing.T) {
		o := valid()
		now := time.Now().UTC()
		o.ClosedAt = &now
		if err := o.Validate(ctx); err == nil {
			t.Error("expected error for closedAt on non-closed obligation")
		}
	})
}

func TestNewObligation_Defaults(t *testing.T) {
	cpID := id.New()
	o := NewObligation(KindDebt, cpID, "transfer", []CurrencyAmount{lak("1000")})

	if o.Status != StatusPending {
		t.Errorf("expected pending, got %s", o.Status)
	}
	if id.IsNil(o.ID) {
		t.Error("expected generated ID")
	}
	if o.Version != 1 {
		t.Errorf("expected version 1, got %d", o.Version)
	}
	if o.CounterpartyID != cpID {
		t.Error("counterparty mismatch")
	}
}
