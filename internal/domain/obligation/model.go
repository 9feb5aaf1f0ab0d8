// Package obligation provides the multi-currency obligation ledger.
// An obligation is an aggregate financial commitment (an employee advance or
// a payable/receivable debt) denominated in one or more currencies, optionally
// split into dated installments, and reconciled over time by transactions.
package obligation

import (
	"context"
	"time"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/entity"
	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/core/types"
)

// Currency is a 3-letter ISO-like currency code from the organization's
// fixed working set.
type Currency string

const (
	CurrencyLAK Currency = "LAK"
	CurrencyTHB Currency = "THB"
	CurrencyUSD Currency = "USD"
	CurrencyCNY Currency = "CNY"
	CurrencyEUR Currency = "EUR"
)

// IsValid reports whether the currency belongs to the working set.
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyLAK, CurrencyTHB, CurrencyUSD, CurrencyCNY, CurrencyEUR:
		return true
	}
	return false
}

// Kind distinguishes the two obligation flavors.
type Kind string

const (
	// KindAdvance is an employee/vendor prepaid advance, reconciled by
	// spend/return/refund transactions.
	KindAdvance Kind = "advance"

	// KindDebt is a payable/receivable settled by dated installments.
	KindDebt Kind = "debt"
)

// IsValid reports whether the kind is known.
func (k Kind) IsValid() bool {
	return k == KindAdvance || k == KindDebt
}

// Status is the obligation's coarse lifecycle state.
type Status string

const (
	StatusPending Status = "pending"
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
)

// IsValid reports whether the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusOpen, StatusClosed:
		return true
	}
	return false
}

// TransactionType classifies reconciling entries against an obligation.
type TransactionType string

const (
	// TxSpend records money paid out against the requested amount.
	TxSpend TransactionType = "spend"

	// TxReturnToCompany records money handed back to the organization.
	TxReturnToCompany TransactionType = "return_to_company"

	// TxRefundToEmployee records an extra payout to the counterparty,
	// netted together with spend.
	TxRefundToEmployee TransactionType = "refund_to_employee"

	// TxAdditionalRequest records an intent to raise the principal.
	// It never changes the principal by itself; IncreasePrincipal is the
	// explicit command for that.
	TxAdditionalRequest TransactionType = "additional_request"
)

// IsValid reports whether the transaction type is known.
func (t TransactionType) IsValid() bool {
	switch t {
	case TxSpend, TxReturnToCompany, TxRefundToEmployee, TxAdditionalRequest:
		return true
	}
	return false
}

// CurrencyAmount is an immutable (currency, amount) pair.
// Amount is never negative; principal entries with zero amount are legal.
type CurrencyAmount struct {
	Currency Currency    `db:"currency" json:"currency"`
	Amount   types.Money `db:"amount" json:"amount"`
}

// Validate checks the value invariants.
func (ca CurrencyAmount) Validate() error {
	if !ca.Currency.IsValid() {
		return apperror.NewValidation("unknown currency").
			WithDetail("field", "currency").
			WithDetail("value", string(ca.Currency))
	}
	if ca.Amount.IsNegative() {
		return apperror.NewValidation("amount must not be negative").
			WithDetail("field", "amount").
			WithDetail("currency", string(ca.Currency)).
			WithDetail("value", ca.Amount.String())
	}
	return nil
}

// Installment is one scheduled partial payment of a principal.
// It belongs to exactly one (obligation, currency) pair.
type Installment struct {
	LineNo   int         `db:"line_no" json:"lineNo"`
	Currency Currency    `db:"currency" json:"currency"`
	DueDate  time.Time   `db:"due_date" json:"dueDate"`
	Amount   types.Money `db:"amount" json:"amount"`
	IsPaid   bool        `db:"is_paid" json:"isPaid"`
	PaidDate *time.Time  `db:"paid_date" json:"paidDate,omitempty"`
}

// Transaction is a dated reconciling entry against an obligation.
// Immutable once created except for explicit removal.
type Transaction struct {
	ID       id.ID           `db:"id" json:"id"`
	Type     TransactionType `db:"type" json:"type"`
	Currency Currency        `db:"currency" json:"currency"`
	Amount   types.Money     `db:"amount" json:"amount"`
	Note     string          `db:"note" json:"note,omitempty"`
	Date     time.Time       `db:"date" json:"date"`
}

// NewTransaction creates a transaction with a generated ID.
func NewTransaction(txType TransactionType, currency Currency, amount types.Money, note string, date time.Time) Transaction {
	return Transaction{
		ID:       id.New(),
		Type:     txType,
		Currency: currency,
		Amount:   amount,
		Note:     note,
		Date:     date,
	}
}

// CurrencySummary is the derived per-currency balance view.
// It is recomputed after every mutation and never persisted.
type CurrencySummary struct {
	Currency           Currency    `json:"currency"`
	Requested          types.Money `json:"requested"`
	Spent              types.Money `json:"spent"`
	ReturnedToCompany  types.Money `json:"returnedToCompany"`
	RefundedToEmployee types.Money `json:"refundedToEmployee"`
	NetDisbursed       types.Money `json:"netDisbursed"`
	PaidInstallments   types.Money `json:"paidInstallments"`
	Remaining          types.Money `json:"remaining"`
}

// Obligation is the aggregate root. It exclusively owns its installments and
// transactions; CounterpartyID is a weak reference the engine never follows.
type Obligation struct {
	entity.BaseDocument

	Kind           Kind       `db:"kind" json:"kind"`
	CounterpartyID id.ID      `db:"counterparty_id" json:"counterpartyId"`
	Status         Status     `db:"status" json:"status"`
	PaymentMethod  string     `db:"payment_method" json:"paymentMethod,omitempty"`
	Remarks        string     `db:"remarks" json:"remarks,omitempty"`
	ClosedAt       *time.Time `db:"closed_at" json:"closedAt,omitempty"`

	// Principals hold the originally requested amount per currency.
	// Currency is unique within the set.
	Principals []CurrencyAmount `db:"-" json:"principals"`

	// Installments per currency (debt-style obligations).
	Installments map[Currency][]Installment `db:"-" json:"installments,omitempty"`

	// Transactions (advance-style obligations).
	Transactions []Transaction `db:"-" json:"transactions,omitempty"`

	// Summaries are derived balances, rebuilt by Recompute.
	Summaries []CurrencySummary `db:"-" json:"summaries"`
}

// NewObligation creates a pending obligation.
func NewObligation(kind Kind, counterpartyID id.ID, paymentMethod string, principals []CurrencyAmount) *Obligation {
	return &Obligation{
		BaseDocument:   entity.NewBaseDocument(),
		Kind:           kind,
		CounterpartyID: counterpartyID,
		Status:         StatusPending,
		PaymentMethod:  paymentMethod,
		Principals:     principals,
	}
}

// Principal returns the principal entry for the currency, if present.
func (o *Obligation) Principal(c Currency) (CurrencyAmount, bool) {
	for _, p := range o.Principals {
		if p.Currency == c {
			return p, true
		}
	}
	return CurrencyAmount{}, false
}

// HasCurrency reports whether the currency is in the principal set.
func (o *Obligation) HasCurrency(c Currency) bool {
	_, ok := o.Principal(c)
	return ok
}

// Summary returns the derived summary for the currency, if present.
func (o *Obligation) Summary(c Currency) (CurrencySummary, bool) {
	for _, s := range o.Summaries {
		if s.Currency == c {
			return s, true
		}
	}
	return CurrencySummary{}, false
}

// Validate implements entity.Validatable. It checks every invariant that
// must hold after any mutation: valid enums, unique non-negative principals,
// currency containment of lines, the installment-sum rule, and the
// status/closedAt coupling.
func (o *Obligation) Validate(ctx context.Context) error {
	if !o.Kind.IsValid() {
		return apperror.NewValidation("invalid obligation kind").
			WithDetail("field", "kind").
			WithDetail("value", string(o.Kind))
	}

	if !o.Status.IsValid() {
		return apperror.NewValidation("invalid obligation status").
			WithDetail("field", "status").
			WithDetail("value", string(o.Status))
	}

	if id.IsNil(o.CounterpartyID) {
		return apperror.NewValidation("counterparty is required").
			WithDetail("field", "counterpartyId")
	}

	seen := make(map[Currency]bool, len(o.Principals))
	for _, p := range o.Principals {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.Currency] {
			return apperror.NewValidation("duplicate principal currency").
				WithDetail("field", "principals").
				WithDetail("currency", string(p.Currency))
		}
		seen[p.Currency] = true
	}

	for c, list := range o.Installments {
		if !o.HasCurrency(c) {
			return apperror.NewCurrencyNotInPrincipal(string(c))
		}
		for _, inst := range list {
			if err := validateInstallment(inst); err != nil {
				return err
			}
		}
		// A currency with zero installments is a lump-sum obligation and
		// skips the sum rule entirely.
		if len(list) > 0 {
			principal, _ := o.Principal(c)
			if err := ValidateSchedule(principal, list); err != nil {
				return err
			}
		}
	}

	for _, tx := range o.Transactions {
		if !tx.Type.IsValid() {
			return apperror.NewValidation("invalid transaction type").
				WithDetail("field", "transactions").
				WithDetail("value", string(tx.Type))
		}
		if !o.HasCurrency(tx.Currency) {
			return apperror.NewCurrencyNotInPrincipal(string(tx.Currency))
		}
		if !tx.Amount.IsPositive() {
			return apperror.NewNonPositiveAmount("transactions", tx.Amount.String())
		}
	}

	if o.Status == StatusClosed && o.ClosedAt == nil {
		return apperror.NewValidation("closed obligation must carry closedAt").
			WithDetail("field", "closedAt")
	}
	if o.Status != StatusClosed && o.ClosedAt != nil {
		return apperror.NewValidation("closedAt is only set on closed obligations").
			WithDetail("field", "closedAt")
	}

	return nil
}
