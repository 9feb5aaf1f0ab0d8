package obligation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/types"
)

// Installment scheduling: splitting a principal into dated installments and
// validating that a schedule still adds up to the principal.

// SplitEven splits the principal into count installments of equal amounts,
// due at monthly steps starting from firstDue. Amounts are rounded to two
// places with the rounding remainder carried by the last installment, so the
// schedule always sums to the principal exactly.
func SplitEven(principal CurrencyAmount, count int, firstDue time.Time) ([]Installment, error) {
	if err := principal.Validate(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, apperror.NewValidation("installment count must be positive").
			WithDetail("field", "count").
			WithDetail("value", count)
	}
	if !principal.Amount.IsPositive() {
		return nil, apperror.NewNonPositiveAmount("principal", principal.Amount.String())
	}
	if firstDue.IsZero() {
		return nil, apperror.NewValidation("first due date is required").
			WithDetail("field", "dueDate")
	}

	each := principal.Amount.Div(decimal.NewFromInt(int64(count))).Round(2)
	list := make([]Installment, 0, count)
	allocated := types.Zero()

	for i := 0; i < count; i++ {
		amount := each
		if i == count-1 {
			amount = principal.Amount.Sub(allocated)
		}
		allocated = allocated.Add(amount)
		list = append(list, Installment{
			LineNo:   i + 1,
			Currency: principal.Currency,
			DueDate:  firstDue.AddDate(0, i, 0),
			Amount:   amount,
		})
	}

	return list, nil
}

// ValidateSchedule checks that every installment is individually valid and
// that the schedule total matches the principal within the sum tolerance.
// An empty schedule is valid: the principal is then a single lump sum.
func ValidateSchedule(principal CurrencyAmount, installments []Installment) error {
	if len(installments) == 0 {
		return nil
	}

	total := types.Zero()
	for _, inst := range installments {
		if err := validateInstallment(inst); err != nil {
			return err
		}
		if inst.Currency != principal.Currency {
			return apperror.NewValidation("installment currency does not match principal").
				WithDetail("field", "currency").
				WithDetail("expected", string(principal.Currency)).
				WithDetail("got", string(inst.Currency))
		}
		total = total.Add(inst.Amount)
	}

	if !types.WithinTolerance(total, principal.Amount) {
		delta := total.Sub(principal.Amount)
		return apperror.NewInstallmentSumMismatch(
			string(principal.Currency),
			principal.Amount.String(),
			total.String(),
			delta.String(),
		)
	}

	return nil
}

// SuggestNext computes a suggested next installment for the schedule:
// the unallocated remainder of the principal, floored at zero. Callers may
// override the amount before persisting; ValidateSchedule remains the gate.
func SuggestNext(existing []Installment, principal CurrencyAmount, dueDate time.Time) Installment {
	allocated := types.Zero()
	for _, inst := range existing {
		allocated = allocated.Add(inst.Amount)
	}

	amount := principal.Amount.Sub(allocated)
	if amount.IsNegative() {
		amount = types.Zero()
	}

	return Installment{
		LineNo:   len(existing) + 1,
		Currency: principal.Currency,
		DueDate:  dueDate,
		Amount:   amount,
	}
}

// RemoveInstallment removes the installment at index and renumbers the rest.
// It deliberately does not re-validate the schedule; callers must run
// ValidateSchedule before relying on the list for closing.
func RemoveInstallment(existing []Installment, index int) ([]Installment, error) {
	if index < 0 || index >= len(existing) {
		return nil, apperror.NewNotFound("installment", index)
	}

	out := make([]Installment, 0, len(existing)-1)
	out = append(out, existing[:index]...)
	out = append(out, existing[index+1:]...)
	for i := range out {
		out[i].LineNo = i + 1
	}
	return out, nil
}

// validateInstallment checks per-item rules: due date required, amount
// strictly positive.
func validateInstallment(inst Installment) error {
	if inst.DueDate.IsZero() {
		return apperror.NewValidation("installment due date is required").
			WithDetail("field", "dueDate").
			WithDetail("lineNo", inst.LineNo)
	}
	if !inst.Amount.IsPositive() {
		return apperror.NewNonPositiveAmount("installments", inst.Amount.String())
	}
	if !inst.Currency.IsValid() {
		return apperror.NewValidation("unknown currency").
			WithDetail("field", "currency").
			WithDetail("value", string(inst.Currency))
	}
	return nil
}
