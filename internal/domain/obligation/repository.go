package obligation

import (
	"context"
	"time"

	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/domain"
)

// Repository defines persistence operations for obligations.
// The aggregate is stored as a header row plus line tables for principals,
// installments and transactions.
type Repository interface {
	// Create inserts the header row.
	Create(ctx context.Context, o *Obligation) error

	// GetByID retrieves the header with all lines loaded.
	GetByID(ctx context.Context, obligationID id.ID) (*Obligation, error)

	// Update modifies the header with optimistic locking.
	Update(ctx context.Context, o *Obligation) error

	// SaveLines replaces all line rows (principals, installments,
	// transactions) for the obligation.
	SaveLines(ctx context.Context, o *Obligation) error

	// SetDeletionMark sets or clears the soft-delete mark.
	SetDeletionMark(ctx context.Context, obligationID id.ID, marked bool) error

	// List retrieves obligations (headers with lines) with filtering.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Obligation], error)
}

// ListFilter for filtering obligations.
type ListFilter struct {
	domain.ListFilter

	CounterpartyID *id.ID
	Status         *Status
	Kind           *Kind
	DateFrom       *time.Time
	DateTo         *time.Time
}

// AuditTrail records obligation mutations for the audit log.
// Implementations live in infrastructure; a nil trail disables auditing.
type AuditTrail interface {
	Record(ctx context.Context, obligationID id.ID, action string, changes map[string]any) error
}
