package obligation

import (
	"time"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
)

// Lifecycle state machine. All transition checks live here; status is never
// compared ad hoc anywhere else.

// legal transitions, from -> allowed targets.
var transitions = map[Status]map[Status]bool{
	StatusPending: {StatusOpen: true},
	StatusOpen:    {StatusClosed: true},
	StatusClosed:  {StatusOpen: true},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return apperror.NewIllegalTransition(string(from), string(to))
	}
	return nil
}

// Activate moves a pending obligation to open.
// Requires a non-empty principal set.
func Activate(o *Obligation) error {
	if err := checkTransition(o.Status, StatusOpen); err != nil {
		return err
	}
	if len(o.Principals) == 0 {
		return apperror.NewValidation("cannot activate obligation without principals").
			WithDetail("field", "principals")
	}
	o.Status = StatusOpen
	return nil
}

// Close moves an open obligation to closed, recording remarks and closedAt.
//
// Before closing, every currency must be explainable: no net disbursement
// beyond the requested amount, and any installment schedule must still sum
// to its principal. The observed upstream system skipped this check; the
// engine enforces it as the minimal guard.
func Close(o *Obligation, remarks string, now time.Time) error {
	if err := checkTransition(o.Status, StatusClosed); err != nil {
		return err
	}

	Recompute(o)
	if over := Overdisbursed(o); len(over) > 0 {
		codes := make([]string, len(over))
		for i, c := range over {
			codes[i] = string(c)
		}
		return apperror.NewBusinessRule(
			apperror.CodeOutstandingBalance,
			"Cannot close obligation with unexplained overdisbursement",
		).WithDetail("currencies", codes)
	}

	for c, list := range o.Installments {
		if len(list) == 0 {
			continue
		}
		principal, ok := o.Principal(c)
		if !ok {
			return apperror.NewCurrencyNotInPrincipal(string(c))
		}
		if err := ValidateSchedule(principal, list); err != nil {
			return err
		}
	}

	closedAt := now.UTC()
	o.Status = StatusClosed
	o.ClosedAt = &closedAt
	if remarks != "" {
		o.Remarks = remarks
	}
	return nil
}

// Reopen moves a closed obligation back to open and clears closedAt.
// Principals, installments and transactions are left untouched.
func Reopen(o *Obligation) error {
	if err := checkTransition(o.Status, StatusOpen); err != nil {
		return err
	}
	o.Status = StatusOpen
	o.ClosedAt = nil
	return nil
}

// IncreasePrincipal raises the principal by delta.Amount for delta.Currency,
// or adds the currency to the principal set when absent. This is the explicit
// approval step behind additional_request transactions; closed obligations
// must be reopened first.
func IncreasePrincipal(o *Obligation, delta CurrencyAmount) error {
	if o.Status == StatusClosed {
		return apperror.NewBusinessRule(
			apperror.CodeIllegalTransition,
			"Cannot change principals of a closed obligation",
		).WithDetail("status", string(o.Status))
	}
	if !delta.Currency.IsValid() {
		return apperror.NewValidation("unknown currency").
			WithDetail("field", "currency").
			WithDetail("value", string(delta.Currency))
	}
	if !delta.Amount.IsPositive() {
		return apperror.NewNonPositiveAmount("amount", delta.Amount.String())
	}

	for i, p := range o.Principals {
		if p.Currency == delta.Currency {
			o.Principals[i].Amount = p.Amount.Add(delta.Amount)
			Recompute(o)
			return nil
		}
	}

	o.Principals = append(o.Principals, delta)
	Recompute(o)
	return nil
}
