package obligation

import (
	"github.com/phompasit/finance-sub002/internal/core/types"
)

// Balance derivation. Recompute is a pure function of the obligation's
// principals, installments and transactions: running it twice in a row
// yields the same summaries regardless of mutation ordering.

// Recompute rebuilds the per-currency summaries, one per principal entry,
// in principal order.
//
// For advances:
//
//	netDisbursed = spent + refundedToEmployee
//	remaining    = max(0, requested - netDisbursed)
//
// For debts with installments:
//
//	remaining = max(0, requested - sum(paid installments))
//
// Remaining is clamped at zero for display; overpayment detection goes
// through NetDisbursed vs Requested (see Overdisbursed).
func Recompute(o *Obligation) {
	summaries := make([]CurrencySummary, 0, len(o.Principals))

	for _, p := range o.Principals {
		s := CurrencySummary{
			Currency:           p.Currency,
			Requested:          p.Amount,
			Spent:              types.Zero(),
			ReturnedToCompany:  types.Zero(),
			RefundedToEmployee: types.Zero(),
			PaidInstallments:   types.Zero(),
		}

		for _, tx := range o.Transactions {
			if tx.Currency != p.Currency {
				continue
			}
			switch tx.Type {
			case TxSpend:
				s.Spent = s.Spent.Add(tx.Amount)
			case TxReturnToCompany:
				s.ReturnedToCompany = s.ReturnedToCompany.Add(tx.Amount)
			case TxRefundToEmployee:
				s.RefundedToEmployee = s.RefundedToEmployee.Add(tx.Amount)
			case TxAdditionalRequest:
				// Recorded intent only; the principal changes through
				// the explicit IncreasePrincipal command.
			}
		}

		for _, inst := range o.Installments[p.Currency] {
			if inst.IsPaid {
				s.PaidInstallments = s.PaidInstallments.Add(inst.Amount)
			}
		}

		s.NetDisbursed = s.Spent.Add(s.RefundedToEmployee)

		settled := s.NetDisbursed
		if o.Kind == KindDebt && len(o.Installments[p.Currency]) > 0 {
			settled = s.PaidInstallments
		}

		s.Remaining = s.Requested.Sub(settled)
		if s.Remaining.IsNegative() {
			s.Remaining = types.Zero()
		}

		summaries = append(summaries, s)
	}

	o.Summaries = summaries
}

// Overdisbursed returns the currencies whose net disbursement exceeds the
// requested amount beyond the sum tolerance. Callers use this to flag
// overpayment; the engine itself never blocks appends on it.
func Overdisbursed(o *Obligation) []Currency {
	var out []Currency
	for _, s := range o.Summaries {
		if s.NetDisbursed.Sub(s.Requested).GreaterThan(types.SumTolerance) {
			out = append(out, s.Currency)
		}
	}
	return out
}
