// Package counterparty provides the counterparty catalog.
// Counterparties are the employees, suppliers and customers that obligations
// reference; the ledger engine itself treats the reference as opaque.
package counterparty

import (
	"context"
	"regexp"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/entity"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// CounterpartyType defines the type of counterparty.
type CounterpartyType string

const (
	TypeEmployee CounterpartyType = "employee"
	TypeSupplier CounterpartyType = "supplier"
	TypeCustomer CounterpartyType = "customer"
)

// Counterparty represents a party an obligation is held with.
type Counterparty struct {
	entity.Catalog

	// Type defines whether this is an employee, supplier or customer
	Type CounterpartyType `db:"type" json:"type"`

	// Phone is the primary contact phone
	Phone *string `db:"phone" json:"phone,omitempty"`

	// Email is the primary contact email
	Email *string `db:"email" json:"email,omitempty"`

	// Comment is a free-form note
	Comment *string `db:"comment" json:"comment,omitempty"`
}

// NewCounterparty creates a new Counterparty with required fields.
func NewCounterparty(code, name string, cpType CounterpartyType) *Counterparty {
	return &Counterparty{
		Catalog: entity.NewCatalog(code, name),
		Type:    cpType,
	}
}

// Validate implements entity.Validatable interface.
func (c *Counterparty) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidCounterpartyType(c.Type) {
		return apperror.NewValidation("invalid counterparty type").
			WithDetail("field", "type").
			WithDetail("value", string(c.Type))
	}

	if c.Email != nil && *c.Email != "" && !emailRE.MatchString(*c.Email) {
		return apperror.NewValidation("invalid email format").
			WithDetail("field", "email")
	}

	return nil
}

// IsEmployee returns true for employee counterparties (advance holders).
func (c *Counterparty) IsEmployee() bool {
	return c.Type == TypeEmployee
}

func isValidCounterpartyType(t CounterpartyType) bool {
	switch t {
	case TypeEmployee, TypeSupplier, TypeCustomer:
		return true
	}
	return false
}
