package obligation

import (
	"context"
	"fmt"
	"time"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/core/tx"
	"github.com/phompasit/finance-sub002/internal/domain"
	"github.com/phompasit/finance-sub002/pkg/logger"
)

// Service exposes the obligation command/query API consumed by the HTTP
// layer. Every mutating command runs as read-modify-write inside a single
// transaction; the repository's version check rejects concurrent writers.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     AuditTrail // optional
}

// NewService creates a new obligation service.
func NewService(repo Repository, txManager tx.Manager, audit AuditTrail) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		audit:     audit,
	}
}

// Create persists a new obligation. Installment schedules supplied at
// creation time are validated against their principals.
func (s *Service) Create(ctx context.Context, o *Obligation) error {
	if o.Status == "" {
		o.Status = StatusPending
	}
	// Both pending and open are accepted initial states.
	if o.Status != StatusPending && o.Status != StatusOpen {
		return apperror.NewValidation("initial status must be pending or open").
			WithDetail("field", "status").
			WithDetail("value", string(o.Status))
	}

	if err := o.Validate(ctx); err != nil {
		return err
	}
	Recompute(o)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, o); err != nil {
			return fmt.Errorf("create obligation: %w", err)
		}
		if err := s.repo.SaveLines(ctx, o); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, o.ID, "create", map[string]any{
		"kind":   string(o.Kind),
		"status": string(o.Status),
	})

	logger.Info(ctx, "obligation created",
		"id", o.ID,
		"kind", o.Kind,
		"status", o.Status)

	return nil
}

// GetByID retrieves an obligation with lines and fresh summaries.
func (s *Service) GetByID(ctx context.Context, obligationID id.ID) (*Obligation, error) {
	o, err := s.repo.GetByID(ctx, obligationID)
	if err != nil {
		return nil, err
	}
	Recompute(o)
	return o, nil
}

// List retrieves obligations with filtering; summaries are recomputed for
// every returned aggregate.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Obligation], error) {
	result, err := s.repo.List(ctx, filter)
	if err != nil {
		return result, err
	}
	for _, o := range result.Items {
		Recompute(o)
	}
	return result, nil
}

// AppendTransaction appends a reconciling transaction.
func (s *Service) AppendTransaction(ctx context.Context, obligationID id.ID, txn Transaction, expectedVersion int) (*Obligation, error) {
	return s.mutate(ctx, obligationID, expectedVersion, "append_transaction", func(o *Obligation) (map[string]any, error) {
		if err := AppendTransaction(o, txn); err != nil {
			return nil, err
		}
		return map[string]any{
			"type":     string(txn.Type),
			"currency": string(txn.Currency),
			"amount":   txn.Amount.String(),
		}, nil
	})
}

// RemoveTransaction removes a transaction by ID and recomputes summaries.
func (s *Service) RemoveTransaction(ctx context.Context, obligationID, txID id.ID, expectedVersion int) (*Obligation, error) {
	return s.mutate(ctx, obligationID, expectedVersion, "remove_transaction", func(o *Obligation) (map[string]any, error) {
		if err := RemoveTransaction(o, txID); err != nil {
			return nil, err
		}
		return map[string]any{"transaction_id": txID.String()}, nil
	})
}

// SetInstallments replaces the installment schedule for one currency.
// The schedule must sum to the currency's principal within tolerance.
func (s *Service) SetInstallments(ctx context.Context, obligationID id.ID, currency Currency, installments []Installment, expectedVersion int) (*Obligation, error) {
	return s.mutate(ctx, obligationID, expectedVersion, "set_installments", func(o *Obligation) (map[string]any, error) {
		principal, ok := o.Principal(currency)
		if !ok {
			return nil, apperror.NewCurrencyNotInPrincipal(string(currency))
		}

		for i := range installments {
			installments[i].Currency = currency
			installments[i].LineNo = i + 1
		}

		if err := ValidateSchedule(principal, installments); err != nil {
			return nil, err
		}

		if o.Installments == nil {
			o.Installments = make(map[Currency][]Installment)
		}
		if len(installments) == 0 {
			delete(o.Installments, currency)
		} else {
			o.Installments[currency] = installments
		}
		Recompute(o)

		return map[string]any{
			"currency": string(currency),
			"count":    len(installments),
		}, nil
	})
}

// MarkInstallmentPaid confirms payment of one installment.
func (s *Service) MarkInstallmentPaid(ctx context.Context, obligationID id.ID, currency Currency, lineNo int, paidDate time.Time, expectedVersion int) (*Obligation, error) {
	return s.mutate(ctx, obligationID, expectedVersion, "pay_installment", func(o *Obligation) (map[string]any, error) {
		list := o.Installments[currency]
		for i := range list {
			if list[i].LineNo != lineNo {
				continue
			}
			if list[i].IsPaid {
				return nil, apperror.NewConflict("installment is already paid").
					WithDetail("currency", string(currency)).
					WithDetail("lineNo", lineNo)
			}
			paid := paidDate.UTC()
			list[i].IsPaid = true
			list[i].PaidDate = &paid
			Recompute(o)
			return map[string]any{
				"currency": string(currency),
				"lineNo":   lineNo,
			}, nil
		}
		return nil, apperror.NewNotFound("installment", fmt.Sprintf("%s/%d", currency, lineNo))
	})
}

// IncreasePrincipal applies the explicit principal raise that an
// additional_request transaction only signals.
func (s *Service) IncreasePrincipal(ctx context.Context, obligationID id.ID, delta CurrencyAmount, expectedVersion int) (*Obligation, error) {
	return s.mutate(ctx, obligationID, expectedVersion, "increase_principal", func(o *Obligation) (map[string]any, error) {
		if err := IncreasePrincipal(o, delta); err != nil {
			return nil, err
		}
		return map[string]any{
			"currency": string(delta.Currency),
			"amount":   delta.Amount.String(),
		}, nil
	})
}

// Activate moves a pending obligation to open.
func (s *Service) Activate(ctx context.Context, obligationID id.ID, expectedVersion int) (*Obligation, error) {
	return s.mutate(ctx, obligationID, expectedVersion, "activate", func(o *Obligation) (map[string]any, error) {
		if err := Activate(o); err != nil {
			return nil, err
		}
		return map[string]any{"status": string(o.Status)}, nil
	})
}

// Close closes an open obligation, recording remarks and the closing time.
func (s *Service) Close(ctx context.Context, obligationID id.ID, remarks string, expectedVersion int) (*Obligation, error) {
	return s.mutate(ctx, obligationID, expectedVersion, "close", func(o *Obligation) (map[string]any, error) {
		if err := Close(o, remarks, time.Now()); err != nil {
			return nil, err
		}
		return map[string]any{"remarks": remarks}, nil
	})
}

// Reopen reopens a closed obligation.
func (s *Service) Reopen(ctx context.Context, obligationID id.ID, expectedVersion int) (*Obligation, error) {
	return s.mutate(ctx, obligationID, expectedVersion, "reopen", func(o *Obligation) (map[string]any, error) {
		if err := Reopen(o); err != nil {
			return nil, err
		}
		return map[string]any{"status": string(o.Status)}, nil
	})
}

// Delete soft-deletes an obligation. Permitted from any state; the rows
// survive under a deletion mark for the audit trail.
func (s *Service) Delete(ctx context.Context, obligationID id.ID) error {
	if _, err := s.repo.GetByID(ctx, obligationID); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetDeletionMark(ctx, obligationID, true)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, obligationID, "delete", nil)
	logger.Info(ctx, "obligation deleted", "id", obligationID)
	return nil
}

// mutate runs the shared read-modify-write cycle: load, optional stale
// version check, apply, validate, persist with optimistic locking, audit.
func (s *Service) mutate(ctx context.Context, obligationID id.ID, expectedVersion int, action string, apply func(o *Obligation) (map[string]any, error)) (*Obligation, error) {
	var result *Obligation
	var changes map[string]any

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByID(ctx, obligationID)
		if err != nil {
			return err
		}

		// A caller-supplied version must match what is stored; zero skips
		// the check and relies on the repository's own version clause.
		if expectedVersion > 0 && expectedVersion != o.Version {
			return apperror.NewConcurrentModification("obligation", obligationID.String()).
				WithDetail("expected", expectedVersion).
				WithDetail("actual", o.Version)
		}

		Recompute(o)
		changes, err = apply(o)
		if err != nil {
			return err
		}

		if err := o.Validate(ctx); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update obligation: %w", err)
		}
		if err := s.repo.SaveLines(ctx, o); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, obligationID, action, changes)
	logger.Info(ctx, "obligation updated", "id", obligationID, "action", action)
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, obligationID id.ID, action string, changes map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, obligationID, action, changes); err != nil {
		logger.Warn(ctx, "audit record failed",
			"id", obligationID,
			"action", action,
			"error", err)
	}
}
