// Package counterparty_repo provides the PostgreSQL counterparty repository.
package counterparty_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/domain"
	"github.com/phompasit/finance-sub002/internal/domain/counterparty"
	"github.com/phompasit/finance-sub002/internal/infrastructure/storage/postgres"
)

const tableCounterparties = "counterparties"

var _ counterparty.Repository = (*CounterpartyRepo)(nil)

// CounterpartyRepo implements counterparty.Repository on PostgreSQL.
type CounterpartyRepo struct {
	txm        *postgres.TxManager
	selectCols []string
}

// NewCounterpartyRepo creates a new counterparty repository.
func NewCounterpartyRepo(txm *postgres.TxManager) *CounterpartyRepo {
	return &CounterpartyRepo{
		txm:        txm,
		selectCols: postgres.ExtractDBColumns[counterparty.Counterparty](),
	}
}

// Builder returns a new squirrel builder.
func (r *CounterpartyRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a new counterparty.
func (r *CounterpartyRepo) Create(ctx context.Context, c *counterparty.Counterparty) error {
	data := postgres.StructToMap(c)

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	sql, args, err := r.Builder().
		Insert(tableCounterparties).
		SetMap(filteredData).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", tableCounterparties, err)
	}

	return nil
}

// GetByID retrieves a counterparty by ID.
func (r *CounterpartyRepo) GetByID(ctx context.Context, counterpartyID id.ID) (*counterparty.Counterparty, error) {
	c := &counterparty.Counterparty{}

	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": counterpartyID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("counterparty", counterpartyID.String())
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}

	return c, nil
}

// GetByCode retrieves a counterparty by its unique code.
// Returns NotFound when no live row matches.
func (r *CounterpartyRepo) GetByCode(ctx context.Context, code string) (*counterparty.Counterparty, error) {
	c := &counterparty.Counterparty{}

	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"code": code}).
		Where(squirrel.Eq{"deletion_mark": false}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("counterparty", code)
		}
		return nil, fmt.Errorf("get by code: %w", err)
	}

	return c, nil
}

// Update modifies a counterparty with optimistic locking.
func (r *CounterpartyRepo) Update(ctx context.Context, c *counterparty.Counterparty) error {
	data := postgres.StructToMap(c)
	version := c.Version

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" || col == "created_at" || col == "created_by" || col == "version" || col == "updated_at" {
			continue
		}
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	sql, args, err := r.Builder().
		Update(tableCounterparties).
		SetMap(filteredData).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": c.ID}).
		Where(squirrel.Eq{"version": version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", tableCounterparties, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("counterparty", c.ID.String())
	}

	c.SetVersion(version + 1)
	return nil
}

// SetDeletionMark sets or clears the soft-delete mark.
func (r *CounterpartyRepo) SetDeletionMark(ctx context.Context, counterpartyID id.ID, marked bool) error {
	sql, args, err := r.Builder().
		Update(tableCounterparties).
		Set("deletion_mark", marked).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": counterpartyID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set deletion mark: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("counterparty", counterpartyID.String())
	}

	return nil
}

// Exists reports whether a live counterparty with the given ID exists.
func (r *CounterpartyRepo) Exists(ctx context.Context, counterpartyID id.ID) (bool, error) {
	sql, args, err := r.Builder().
		Select("1").
		From(tableCounterparties).
		Where(squirrel.Eq{"id": counterpartyID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check exists: %w", err)
	}

	return true, nil
}

// List retrieves counterparties with filtering and pagination.
func (r *CounterpartyRepo) List(ctx context.Context, filter counterparty.ListFilter) (domain.ListResult[*counterparty.Counterparty], error) {
	result := domain.ListResult[*counterparty.Counterparty]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := r.applyFilter(r.Builder().Select("COUNT(*)").From(tableCounterparties), filter).ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count counterparties: %w", err)
	}

	sql, args, err := r.listQuery(filter).ToSql()
	if err != nil {
		return result, fmt.Errorf("build list query: %w", err)
	}

	var items []*counterparty.Counterparty
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return result, fmt.Errorf("list counterparties: %w", err)
	}

	result.Items = items
	return result, nil
}

// listQuery builds the filtered, ordered, paginated SELECT.
func (r *CounterpartyRepo) listQuery(filter counterparty.ListFilter) squirrel.SelectBuilder {
	q := r.applyFilter(r.baseSelect(), filter)

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "name ASC"
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	return q
}

func (r *CounterpartyRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(tableCounterparties)
}

func (r *CounterpartyRepo) applyFilter(q squirrel.SelectBuilder, filter counterparty.ListFilter) squirrel.SelectBuilder {
	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
		})
	}
	return q
}
