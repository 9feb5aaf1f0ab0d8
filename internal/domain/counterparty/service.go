package counterparty

import (
	"context"
	"fmt"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/core/tx"
	"github.com/phompasit/finance-sub002/internal/domain"
	"github.com/phompasit/finance-sub002/pkg/logger"
)

// Service provides business operations for the counterparty catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new counterparty service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Create creates a new counterparty.
func (s *Service) Create(ctx context.Context, cp *Counterparty) error {
	if err := cp.Validate(ctx); err != nil {
		return err
	}

	if cp.Code != "" {
		existing, err := s.repo.GetByCode(ctx, cp.Code)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if existing != nil && err == nil {
			return apperror.NewDuplicate("counterparty", "code", cp.Code)
		}
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, cp); err != nil {
			return fmt.Errorf("create counterparty: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "counterparty created", "id", cp.ID, "code", cp.Code)
	return nil
}

// GetByID retrieves a counterparty by ID.
func (s *Service) GetByID(ctx context.Context, cpID id.ID) (*Counterparty, error) {
	return s.repo.GetByID(ctx, cpID)
}

// Update updates an existing counterparty.
func (s *Service) Update(ctx context.Context, cp *Counterparty) error {
	if err := cp.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, cp); err != nil {
			return fmt.Errorf("update counterparty: %w", err)
		}
		return nil
	})
}

// Delete soft-deletes a counterparty.
func (s *Service) Delete(ctx context.Context, cpID id.ID) error {
	if _, err := s.repo.GetByID(ctx, cpID); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetDeletionMark(ctx, cpID, true)
	})
}

// List retrieves counterparties with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Counterparty], error) {
	return s.repo.List(ctx, filter)
}

// Exists checks if a counterparty exists.
func (s *Service) Exists(ctx context.Context, cpID id.ID) (bool, error) {
	return s.repo.Exists(ctx, cpID)
}
