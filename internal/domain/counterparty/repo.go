package counterparty

import (
	"context"

	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/domain"
)

// Repository defines CRUD operations for counterparties.
type Repository interface {
	Create(ctx context.Context, cp *Counterparty) error
	GetByID(ctx context.Context, cpID id.ID) (*Counterparty, error)
	GetByCode(ctx context.Context, code string) (*Counterparty, error)
	Update(ctx context.Context, cp *Counterparty) error
	SetDeletionMark(ctx context.Context, cpID id.ID, marked bool) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Counterparty], error)
	Exists(ctx context.Context, cpID id.ID) (bool, error)
}

// ListFilter for filtering counterparties.
type ListFilter struct {
	domain.ListFilter

	Type *CounterpartyType
}
