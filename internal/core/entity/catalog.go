package entity

import (
	"context"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
)

// Catalog is the base type for reference data (counterparties, payment methods).
type Catalog struct {
	BaseCatalog

	// Code is a short unique identifier within the catalog
	Code string `db:"code" json:"code"`

	// Name is the display name
	Name string `db:"name" json:"name"`
}

// NewCatalog creates a new catalog entry with generated ID.
func NewCatalog(code, name string) Catalog {
	return Catalog{
		BaseCatalog: NewBaseCatalog(),
		Code:        code,
		Name:        name,
	}
}

// Validate implements Validatable.
func (c *Catalog) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}
