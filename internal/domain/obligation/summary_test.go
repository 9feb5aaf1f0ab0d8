package obligation

import (
	"testing"
	"time"

	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/core/types"
)

func TestRecompute_AdvanceNetting(t *testing.T) {
	// Advance of 5,000 THB: spend 3,000 plus a 500 refund to the employee
	// nets to 3,500 disbursed, 1,500 remaining.
	o := NewObligation(KindAdvance, id.New(), "cash", []CurrencyAmount{
		{Currency: CurrencyTHB, Amount: types.MustMoney("5000")},
	})
	o.Status = StatusOpen
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	mustAppend(t, o, NewTransaction(TxSpend, CurrencyTHB, types.MustMoney("3000"), "", date))
	mustAppend(t, o, NewTransaction(TxRefundToEmployee, CurrencyTHB, types.MustMoney("500"), "", date))

	s, _ := o.Summary(CurrencyTHB)
	if s.NetDisbursed.String() != "3500" {
		t.Errorf("expected netDisbursed 3500, got %s", s.NetDisbursed.String())
	}
	if s.Remaining.String() != "1500" {
		t.Errorf("expected remaining 1500, got %s", s.Remaining.String())
	}
}

func TestRecompute_ReturnToCompanyTracked(t *testing.T) {
	o := newAdvance(usd("100"))
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	mustAppend(t, o, NewTransaction(TxSpend, CurrencyUSD, types.MustMoney("80"), "", date))
	mustAppend(t, o, NewTransaction(TxReturnToCompany, CurrencyUSD, types.MustMoney("20"), "", date))

	s, _ := o.Summary(CurrencyUSD)
	// Returns are tracked but do not reduce net disbursement.
	if s.ReturnedToCompany.String() != "20" {
		t.Errorf("expected returnedToCompany 20, got %s", s.ReturnedToCompany.String())
	}
	if s.NetDisbursed.String() != "80" {
		t.Errorf("expected netDisbursed 80, got %s", s.NetDisbursed.String())
	}
}

func TestRecompute_AdditionalRequestIgnored(t *testing.T) {
	o := newAdvance(usd("100"))
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	mustAppend(t, o, NewTransaction(TxAdditionalRequest, CurrencyUSD, types.MustMoney("50"), "need more", date))

	s, _ := o.Summary(CurrencyUSD)
	if s.Requested.String() != "100" {
		t.Errorf("additional_request must not change requested, got %s", s.Requested.String())
	}
	if !s.NetDisbursed.IsZero() {
		t.Errorf("additional_request must not count as disbursement, got %s", s.NetDisbursed.String())
	}
}

func TestRecompute_DebtPaidInstallments(t *testing.T) {
	// Debt of 1,000,000 LAK in installments of 600,000 and 400,000; paying
	// the first leaves 400,000 remaining.
	o := NewObligation(KindDebt, id.New(), "transfer", []CurrencyAmount{lak("1000000")})
	o.Status = StatusOpen
	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	paid := due.AddDate(0, 0, 3)

	o.Installments = map[Currency][]Installment{
		CurrencyLAK: {
			{LineNo: 1, Currency: CurrencyLAK, DueDate: due, Amount: types.MustMoney("600000"), IsPaid: true, PaidDate: &paid},
			{LineNo: 2, Currency: CurrencyLAK, DueDate: due.AddDate(0, 1, 0), Amount: types.MustMoney("400000")},
		},
	}
	Recompute(o)

	s, _ := o.Summary(CurrencyLAK)
	if s.PaidInstallments.String() != "600000" {
		t.Errorf("expected paidInstallments 600000, got %s", s.PaidInstallments.String())
	}
	if s.Remaining.String() != "400000" {
		t.Errorf("expected remaining 400000, got %s", s.Remaining.String())
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	o := newAdvance(usd("100"), lak("500000"))
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	mustAppend(t, o, NewTransaction(TxSpend, CurrencyUSD, types.MustMoney("33.33"), "", date))

	Recompute(o)
	first := make([]CurrencySummary, len(o.Summaries))
	copy(first, o.Summaries)

	Recompute(o)
	if len(o.Summaries) != len(first) {
		t.Fatalf("summary count changed between runs")
	}
	for i := range first {
		if !o.Summaries[i].Remaining.Equal(first[i].Remaining) ||
			!o.Summaries[i].NetDisbursed.Equal(first[i].NetDisbursed) {
			t.Errorf("summary %s changed between identical recomputes", first[i].Currency)
		}
	}
}

func TestRecompute_OnePerPrincipalInOrder(t *testing.T) {
	o := newAdvance(lak("1000"), usd("50"))

	if len(o.Summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(o.Summaries))
	}
	if o.Summaries[0].Currency != CurrencyLAK || o.Summaries[1].Currency != CurrencyUSD {
		t.Errorf("summaries must follow principal order, got %s,%s",
			o.Summaries[0].Currency, o.Summaries[1].Currency)
	}
}

func TestRecompute_RemainingClampedAtZero(t *testing.T) {
	o := newAdvance(usd("100"))
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	mustAppend(t, o, NewTransaction(TxSpend, CurrencyUSD, types.MustMoney("130"), "", date))

	s, _ := o.Summary(CurrencyUSD)
	if !s.Remaining.IsZero() {
		t.Errorf("remaining must clamp at zero, got %s", s.Remaining.String())
	}

	over := Overdisbursed(o)
	if len(over) != 1 || over[0] != CurrencyUSD {
		t.Errorf("expected USD flagged as overdisbursed, got %v", over)
	}
}

func TestOverdisbursed_ToleranceRespected(t *testing.T) {
	o := newAdvance(usd("100"))
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	mustAppend(t, o, NewTransaction(TxSpend, CurrencyUSD, types.MustMoney("100.01"), "", date))

	// One minor unit over is within tolerance.
	if over := Overdisbursed(o); len(over) != 0 {
		t.Errorf("expected no overdisbursement within tolerance, got %v", over)
	}

	mustAppend(t, o, NewTransaction(TxSpend, CurrencyUSD, types.MustMoney("0.01"), "", date))
	if over := Overdisbursed(o); len(over) != 1 {
		t.Errorf("expected USD overdisbursed at 100.02, got %v", over)
	}
}

func mustAppend(t *testing.T, o *Obligation, txn Transaction) {
	t.Helper()
	if err := AppendTransaction(o, txn); err != nil {
		t.Fatalf("append transaction: %v", err)
	}
}
