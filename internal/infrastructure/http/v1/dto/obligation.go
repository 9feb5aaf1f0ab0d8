package dto

import (
	"time"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/core/types"
	"github.com/phompasit/finance-sub002/internal/domain/obligation"
)

// --- Request DTOs ---

// CurrencyAmountRequest is a (currency, amount) pair with the amount as a
// decimal string to avoid float precision loss in transit.
type CurrencyAmountRequest struct {
	Currency string `json:"currency" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
}

// ToDomain converts the pair, validating the decimal format.
func (r CurrencyAmountRequest) ToDomain() (obligation.CurrencyAmount, error) {
	amount, err := types.NewMoneyFromString(r.Amount)
	if err != nil {
		return obligation.CurrencyAmount{}, apperror.NewValidation("invalid decimal amount").
			WithDetail("field", "amount").
			WithDetail("value", r.Amount)
	}
	return obligation.CurrencyAmount{
		Currency: obligation.Currency(r.Currency),
		Amount:   amount,
	}, nil
}

// InstallmentRequest is one scheduled payment line.
type InstallmentRequest struct {
	DueDate time.Time `json:"dueDate" binding:"required"`
	Amount  string    `json:"amount" binding:"required"`
}

func (r InstallmentRequest) toDomain(currency obligation.Currency, lineNo int) (obligation.Installment, error) {
	amount, err := types.NewMoneyFromString(r.Amount)
	if err != nil {
		return obligation.Installment{}, apperror.NewValidation("invalid decimal amount").
			WithDetail("field", "amount").
			WithDetail("value", r.Amount)
	}
	return obligation.Installment{
		LineNo:   lineNo,
		Currency: currency,
		DueDate:  r.DueDate,
		Amount:   amount,
	}, nil
}

// CreateObligationRequest creates a new obligation.
type CreateObligationRequest struct {
	Kind           string                            `json:"kind" binding:"required"`
	CounterpartyID string                            `json:"counterpartyId" binding:"required"`
	Status         string                            `json:"status,omitempty"`
	PaymentMethod  string                            `json:"paymentMethod,omitempty"`
	Remarks        string                            `json:"remarks,omitempty"`
	Principals     []CurrencyAmountRequest           `json:"principals" binding:"required,min=1,dive"`
	Installments   map[string][]InstallmentRequest   `json:"installments,omitempty"`
}

// ToEntity converts the request to a domain aggregate.
func (r *CreateObligationRequest) ToEntity() (*obligation.Obligation, error) {
	counterpartyID, err := id.Parse(r.CounterpartyID)
	if err != nil {
		return nil, apperror.NewValidation("invalid counterparty id format").
			WithDetail("field", "counterpartyId")
	}

	principals := make([]obligation.CurrencyAmount, 0, len(r.Principals))
	for _, p := range r.Principals {
		ca, err := p.ToDomain()
		if err != nil {
			return nil, err
		}
		principals = append(principals, ca)
	}

	o := obligation.NewObligation(obligation.Kind(r.Kind), counterpartyID, r.PaymentMethod, principals)
	o.Remarks = r.Remarks
	if r.Status != "" {
		o.Status = obligation.Status(r.Status)
	}

	for currencyStr, lines := range r.Installments {
		currency := obligation.Currency(currencyStr)
		list := make([]obligation.Installment, 0, len(lines))
		for i, line := range lines {
			inst, err := line.toDomain(currency, i+1)
			if err != nil {
				return nil, err
			}
			list = append(list, inst)
		}
		if o.Installments == nil {
			o.Installments = make(map[obligation.Currency][]obligation.Installment)
		}
		o.Installments[currency] = list
	}

	return o, nil
}

// AppendTransactionRequest appends a reconciling transaction.
type AppendTransactionRequest struct {
	Type     string    `json:"type" binding:"required"`
	Currency string    `json:"currency" binding:"required"`
	Amount   string    `json:"amount" binding:"required"`
	Note     string    `json:"note,omitempty"`
	Date     time.Time `json:"date" binding:"required"`
	Version  int       `json:"version,omitempty"`
}

// ToDomain converts the request to a transaction with a fresh ID.
func (r *AppendTransactionRequest) ToDomain() (obligation.Transaction, error) {
	amount, err := types.NewMoneyFromString(r.Amount)
	if err != nil {
		return obligation.Transaction{}, apperror.NewValidation("invalid decimal amount").
			WithDetail("field", "amount").
			WithDetail("value", r.Amount)
	}
	return obligation.NewTransaction(
		obligation.TransactionType(r.Type),
		obligation.Currency(r.Currency),
		amount,
		r.Note,
		r.Date,
	), nil
}

// SetInstallmentsRequest replaces the schedule for one currency. Either an
// explicit line list or an even split request must be provided; an empty
// request clears the schedule (lump sum).
type SetInstallmentsRequest struct {
	Lines        []InstallmentRequest `json:"lines,omitempty"`
	SplitCount   int                  `json:"splitCount,omitempty" binding:"omitempty,min=1,max=120"`
	FirstDueDate *time.Time           `json:"firstDueDate,omitempty"`
	Version      int                  `json:"version,omitempty"`
}

// ToDomain converts explicit lines. Split requests are expanded by the
// handler because they need the principal amount.
func (r *SetInstallmentsRequest) ToDomain(currency obligation.Currency) ([]obligation.Installment, error) {
	list := make([]obligation.Installment, 0, len(r.Lines))
	for i, line := range r.Lines {
		inst, err := line.toDomain(currency, i+1)
		if err != nil {
			return nil, err
		}
		list = append(list, inst)
	}
	return list, nil
}

// PayInstallmentRequest confirms payment of one installment line.
type PayInstallmentRequest struct {
	PaidDate *time.Time `json:"paidDate,omitempty"`
	Version  int        `json:"version,omitempty"`
}

// IncreasePrincipalRequest raises one currency's principal.
type IncreasePrincipalRequest struct {
	Currency string `json:"currency" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
	Version  int    `json:"version,omitempty"`
}

// CloseObligationRequest closes an open obligation.
type CloseObligationRequest struct {
	Remarks string `json:"remarks,omitempty"`
	Version int    `json:"version,omitempty"`
}

// VersionRequest carries only the optimistic locking version.
type VersionRequest struct {
	Version int `json:"version,omitempty"`
}

// --- Response DTOs ---

// CurrencyAmountResponse mirrors CurrencyAmountRequest for responses.
type CurrencyAmountResponse struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// InstallmentResponse represents a schedule line in API responses.
type InstallmentResponse struct {
	LineNo   int        `json:"lineNo"`
	Currency string     `json:"currency"`
	DueDate  time.Time  `json:"dueDate"`
	Amount   string     `json:"amount"`
	IsPaid   bool       `json:"isPaid"`
	PaidDate *time.Time `json:"paidDate,omitempty"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Currency string    `json:"currency"`
	Amount   string    `json:"amount"`
	Note     string    `json:"note,omitempty"`
	Date     time.Time `json:"date"`
}

// CurrencySummaryResponse is the derived per-currency balance view.
type CurrencySummaryResponse struct {
	Currency           string `json:"currency"`
	Requested          string `json:"requested"`
	Spent              string `json:"spent"`
	ReturnedToCompany  string `json:"returnedToCompany"`
	RefundedToEmployee string `json:"refundedToEmployee"`
	NetDisbursed       string `json:"netDisbursed"`
	PaidInstallments   string `json:"paidInstallments"`
	Remaining          string `json:"remaining"`
}

// ObligationResponse represents an obligation in API responses.
type ObligationResponse struct {
	ID             string                           `json:"id"`
	Kind           string                           `json:"kind"`
	CounterpartyID string                           `json:"counterpartyId"`
	Status         string                           `json:"status"`
	PaymentMethod  string                           `json:"paymentMethod,omitempty"`
	Remarks        string                           `json:"remarks,omitempty"`
	ClosedAt       *time.Time                       `json:"closedAt,omitempty"`
	Principals     []CurrencyAmountResponse         `json:"principals"`
	Installments   map[string][]InstallmentResponse `json:"installments,omitempty"`
	Transactions   []TransactionResponse            `json:"transactions,omitempty"`
	Summaries      []CurrencySummaryResponse        `json:"summaries"`
	DeletionMark   bool                             `json:"deletionMark,omitempty"`
	Version        int                              `json:"version"`
	CreatedAt      time.Time                        `json:"createdAt"`
	UpdatedAt      time.Time                        `json:"updatedAt"`
}

// FromObligation converts a domain aggregate to a response DTO.
func FromObligation(o *obligation.Obligation) *ObligationResponse {
	resp := &ObligationResponse{
		ID:             o.ID.String(),
		Kind:           string(o.Kind),
		CounterpartyID: o.CounterpartyID.String(),
		Status:         string(o.Status),
		PaymentMethod:  o.PaymentMethod,
		Remarks:        o.Remarks,
		ClosedAt:       o.ClosedAt,
		DeletionMark:   o.DeletionMark,
		Version:        o.Version,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}

	resp.Principals = make([]CurrencyAmountResponse, len(o.Principals))
	for i, p := range o.Principals {
		resp.Principals[i] = CurrencyAmountResponse{
			Currency: string(p.Currency),
			Amount:   p.Amount.String(),
		}
	}

	if len(o.Installments) > 0 {
		resp.Installments = make(map[string][]InstallmentResponse, len(o.Installments))
		for currency, list := range o.Installments {
			lines := make([]InstallmentResponse, len(list))
			for i, inst := range list {
				lines[i] = InstallmentResponse{
					LineNo:   inst.LineNo,
					Currency: string(inst.Currency),
					DueDate:  inst.DueDate,
					Amount:   inst.Amount.String(),
					IsPaid:   inst.IsPaid,
					PaidDate: inst.PaidDate,
				}
			}
			resp.Installments[string(currency)] = lines
		}
	}

	if len(o.Transactions) > 0 {
		resp.Transactions = make([]TransactionResponse, len(o.Transactions))
		for i, txn := range o.Transactions {
			resp.Transactions[i] = TransactionResponse{
				ID:       txn.ID.String(),
				Type:     string(txn.Type),
				Currency: string(txn.Currency),
				Amount:   txn.Amount.String(),
				Note:     txn.Note,
				Date:     txn.Date,
			}
		}
	}

	resp.Summaries = make([]CurrencySummaryResponse, len(o.Summaries))
	for i, s := range o.Summaries {
		resp.Summaries[i] = CurrencySummaryResponse{
			Currency:           string(s.Currency),
			Requested:          s.Requested.String(),
			Spent:              s.Spent.String(),
			ReturnedToCompany:  s.ReturnedToCompany.String(),
			RefundedToEmployee: s.RefundedToEmployee.String(),
			NetDisbursed:       s.NetDisbursed.String(),
			PaidInstallments:   s.PaidInstallments.String(),
			Remaining:          s.Remaining.String(),
		}
	}

	return resp
}

// ObligationListResponse represents a page of obligations.
type ObligationListResponse struct {
	Items      []*ObligationResponse `json:"items"`
	TotalCount int                   `json:"totalCount"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
}
