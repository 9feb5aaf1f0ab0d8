package obligation

import (
	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/id"
)

// Transaction ledger: appending and removing reconciling entries.
// Both operations rebuild the derived summaries before returning.

// AppendTransaction appends a reconciling transaction to the obligation.
// The transaction currency must already be in the principal set and the
// amount must be strictly positive.
func AppendTransaction(o *Obligation, tx Transaction) error {
	if !tx.Type.IsValid() {
		return apperror.NewValidation("invalid transaction type").
			WithDetail("field", "type").
			WithDetail("value", string(tx.Type))
	}
	if !tx.Currency.IsValid() {
		return apperror.NewValidation("unknown currency").
			WithDetail("field", "currency").
			WithDetail("value", string(tx.Currency))
	}
	if !o.HasCurrency(tx.Currency) {
		return apperror.NewCurrencyNotInPrincipal(string(tx.Currency))
	}
	if !tx.Amount.IsPositive() {
		return apperror.NewNonPositiveAmount("amount", tx.Amount.String())
	}
	if tx.Date.IsZero() {
		return apperror.NewValidation("transaction date is required").
			WithDetail("field", "date")
	}
	if id.IsNil(tx.ID) {
		tx.ID = id.New()
	}

	o.Transactions = append(o.Transactions, tx)
	Recompute(o)
	return nil
}

// RemoveTransaction removes the transaction with the given ID and rebuilds
// the summaries.
func RemoveTransaction(o *Obligation, txID id.ID) error {
	for i, tx := range o.Transactions {
		if tx.ID == txID {
			o.Transactions = append(o.Transactions[:i], o.Transactions[i+1:]...)
			Recompute(o)
			return nil
		}
	}
	return apperror.NewNotFound("transaction", txID.String())
}
