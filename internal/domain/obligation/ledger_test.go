package obligation

import (
	"testing"
	"time"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/core/types"
)

func newAdvance(principals ...CurrencyAmount) *Obligation {
	o := NewObligation(KindAdvance, id.New(), "cash", principals)
	o.Status = StatusOpen
	Recompute(o)
	return o
}

func TestAppendTransaction_UpdatesSummary(t *testing.T) {
	o := newAdvance(usd("100"))
	date := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	if err := AppendTransaction(o, NewTransaction(TxSpend, CurrencyUSD, types.MustMoney("40"), "hotel", date)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, ok := o.Summary(CurrencyUSD)
	if !ok {
		t.Fatal("missing USD summary")
	}
	if s.Spent.String() != "40" {
		t.Errorf("expected spent 40, got %s", s.Spent.String())
	}
	if s.Remaining.String() != "60" {
		t.Errorf("expected remaining 60, got %s", s.Remaining.String())
	}
}

func TestAppendTransaction_GeneratesID(t *testing.T) {
	o := newAdvance(usd("100"))
	date := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	txn := Transaction{Type: TxSpend, Currency: CurrencyUSD, Amount: types.MustMoney("10"), Date: date}
	if err := AppendTransaction(o, txn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.IsNil(o.Transactions[0].ID) {
		t.Error("expected generated transaction ID")
	}
}

func TestAppendTransaction_Rejections(t *testing.T) {
	o := newAdvance(usd("100"))
	date := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		txn      Transaction
		wantCode string
	}{
		{
			name:     "currency not in principal",
			txn:      NewTransaction(TxSpend, CurrencyTHB, types.MustMoney("10"), "", date),
			wantCode: apperror.CodeCurrencyNotInPrincipal,
		},
		{
			name:     "zero amount",
			txn:      NewTransaction(TxSpend, CurrencyUSD, types.Zero(), "", date),
			wantCode: apperror.CodeNonPositiveAmount,
		},
		{
			name:     "negative amount",
			txn:      NewTransaction(TxReturnToCompany, CurrencyUSD, types.MustMoney("-5"), "", date),
			wantCode: apperror.CodeNonPositiveAmount,
		},
		{
			name:     "unknown type",
			txn:      NewTransaction(TransactionType("transfer"), CurrencyUSD, types.MustMoney("10"), "", date),
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "missing date",
			txn:      NewTransaction(TxSpend, CurrencyUSD, types.MustMoney("10"), "", time.Time{}),
			wantCode: apperror.CodeValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := AppendTransaction(o, tc.txn)
			if !apperror.HasCode(err, tc.wantCode) {
				t.Errorf("expected code %s, got %v", tc.wantCode, err)
			}
		})
	}

	if len(o.Transactions) != 0 {
		t.Errorf("rejected transactions must not be appended, have %d", len(o.Transactions))
	}
}

func TestRemoveTransaction(t *testing.T) {
	o := newAdvance(usd("100"))
	date := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	txn := NewTransaction(TxSpend, CurrencyUSD, types.MustMoney("40"), "", date)
	if err := AppendTransaction(o, txn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := RemoveTransaction(o, txn.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(o.Transactions) != 0 {
		t.Errorf("expected empty ledger, have %d", len(o.Transactions))
	}

	// Summary reflects the removal.
	s, _ := o.Summary(CurrencyUSD)
	if !s.Spent.IsZero() {
		t.Errorf("expected spent reset to zero, got %s", s.Spent.String())
	}

	if err := RemoveTransaction(o, id.New()); !apperror.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown transaction, got %v", err)
	}
}
