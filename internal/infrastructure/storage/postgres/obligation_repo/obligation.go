// Package obligation_repo provides the PostgreSQL obligation repository.
// The aggregate is stored as a header row in obligations plus line tables
// obligation_principals, obligation_installments and obligation_transactions.
package obligation_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/core/types"
	"github.com/phompasit/finance-sub002/internal/domain"
	"github.com/phompasit/finance-sub002/internal/domain/obligation"
	"github.com/phompasit/finance-sub002/internal/infrastructure/storage/postgres"
)

const (
	tableObligations  = "obligations"
	tablePrincipals   = "obligation_principals"
	tableInstallments = "obligation_installments"
	tableTransactions = "obligation_transactions"
)

// Compile-time check.
var _ obligation.Repository = (*ObligationRepo)(nil)

// ObligationRepo implements obligation.Repository on PostgreSQL.
type ObligationRepo struct {
	txm        *postgres.TxManager
	selectCols []string
}

// NewObligationRepo creates a new obligation repository.
func NewObligationRepo(txm *postgres.TxManager) *ObligationRepo {
	return &ObligationRepo{
		txm:        txm,
		selectCols: postgres.ExtractDBColumns[obligation.Obligation](),
	}
}

// Builder returns a new squirrel builder.
func (r *ObligationRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// --- Line row types ---

type principalRow struct {
	ObligationID id.ID               `db:"obligation_id"`
	Currency     obligation.Currency `db:"currency"`
	Amount       types.Money         `db:"amount"`
}

type installmentRow struct {
	ObligationID id.ID               `db:"obligation_id"`
	LineNo       int                 `db:"line_no"`
	Currency     obligation.Currency `db:"currency"`
	DueDate      time.Time           `db:"due_date"`
	Amount       types.Money         `db:"amount"`
	IsPaid       bool                `db:"is_paid"`
	PaidDate     *time.Time          `db:"paid_date"`
}

type transactionRow struct {
	ID           id.ID                      `db:"id"`
	ObligationID id.ID                      `db:"obligation_id"`
	LineNo       int                        `db:"line_no"`
	Type         obligation.TransactionType `db:"type"`
	Currency     obligation.Currency        `db:"currency"`
	Amount       types.Money                `db:"amount"`
	Note         string                     `db:"note"`
	Date         time.Time                  `db:"date"`
}

// Create inserts the header row.
func (r *ObligationRepo) Create(ctx context.Context, o *obligation.Obligation) error {
	data := postgres.StructToMap(o)

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.Builder().
		Insert(tableObligations).
		SetMap(filteredData)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", tableObligations, err)
	}

	return nil
}

// GetByID retrieves the header with all lines loaded.
func (r *ObligationRepo) GetByID(ctx context.Context, obligationID id.ID) (*obligation.Obligation, error) {
	o := &obligation.Obligation{}

	q := r.baseSelect().Where(squirrel.Eq{"id": obligationID})
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, o, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("obligation", obligationID.String())
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}

	if err := r.loadLines(ctx, []*obligation.Obligation{o}); err != nil {
		return nil, err
	}

	return o, nil
}

// Update modifies the header with optimistic locking.
func (r *ObligationRepo) Update(ctx context.Context, o *obligation.Obligation) error {
	data := postgres.StructToMap(o)
	version := o.Version

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		// version/updated_at are managed by the repo, audit columns are immutable
		if col == "id" || col == "created_at" || col == "created_by" || col == "version" || col == "updated_at" {
			continue
		}
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.Builder().
		Update(tableObligations).
		SetMap(filteredData).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": o.ID}).
		Where(squirrel.Eq{"version": version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", tableObligations, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("obligation", o.ID.String())
	}

	o.SetVersion(version + 1)
	return nil
}

// SaveLines replaces all line rows for the obligation.
// Must run inside the same transaction as the header update.
func (r *ObligationRepo) SaveLines(ctx context.Context, o *obligation.Obligation) error {
	querier := r.txm.GetQuerier(ctx)

	for _, table := range []string{tablePrincipals, tableInstallments, tableTransactions} {
		sql, args, err := r.Builder().
			Delete(table).
			Where(squirrel.Eq{"obligation_id": o.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete %s: %w", table, err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}

	if len(o.Principals) > 0 {
		q := r.Builder().
			Insert(tablePrincipals).
			Columns("obligation_id", "currency", "amount")
		for _, p := range o.Principals {
			q = q.Values(o.ID, p.Currency, p.Amount)
		}
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert principals: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert principals: %w", err)
		}
	}

	var installments []obligation.Installment
	for _, list := range o.Installments {
		installments = append(installments, list...)
	}
	if len(installments) > 0 {
		q := r.Builder().
			Insert(tableInstallments).
			Columns("obligation_id", "line_no", "currency", "due_date", "amount", "is_paid", "paid_date")
		for _, inst := range installments {
			q = q.Values(o.ID, inst.LineNo, inst.Currency, inst.DueDate, inst.Amount, inst.IsPaid, inst.PaidDate)
		}
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert installments: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert installments: %w", err)
		}
	}

	if len(o.Transactions) > 0 {
		q := r.Builder().
			Insert(tableTransactions).
			Columns("id", "obligation_id", "line_no", "type", "currency", "amount", "note", "date")
		for i, txn := range o.Transactions {
			q = q.Values(txn.ID, o.ID, i+1, txn.Type, txn.Currency, txn.Amount, txn.Note, txn.Date)
		}
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert transactions: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert transactions: %w", err)
		}
	}

	return nil
}

// SetDeletionMark sets or clears the soft-delete mark.
func (r *ObligationRepo) SetDeletionMark(ctx context.Context, obligationID id.ID, marked bool) error {
	q := r.Builder().
		Update(tableObligations).
		Set("deletion_mark", marked).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": obligationID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set deletion mark: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("obligation", obligationID.String())
	}

	return nil
}

// List retrieves obligations with filtering and pagination.
func (r *ObligationRepo) List(ctx context.Context, filter obligation.ListFilter) (domain.ListResult[*obligation.Obligation], error) {
	result := domain.ListResult[*obligation.Obligation]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	querier := r.txm.GetQuerier(ctx)

	countQ := r.applyFilter(r.Builder().Select("COUNT(*)").From(tableObligations), filter)
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count obligations: %w", err)
	}

	q := r.listQuery(filter)
	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build list query: %w", err)
	}

	var items []*obligation.Obligation
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return result, fmt.Errorf("list obligations: %w", err)
	}

	if err := r.loadLines(ctx, items); err != nil {
		return result, err
	}

	result.Items = items
	return result, nil
}

// listQuery builds the filtered, ordered, paginated SELECT.
// Exposed separately so query building is testable without a database.
func (r *ObligationRepo) listQuery(filter obligation.ListFilter) squirrel.SelectBuilder {
	q := r.applyFilter(r.baseSelect(), filter)

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at DESC"
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

func (r *ObligationRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(tableObligations)
}

func (r *ObligationRepo) applyFilter(q squirrel.SelectBuilder, filter obligation.ListFilter) squirrel.SelectBuilder {
	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	if filter.CounterpartyID != nil {
		q = q.Where(squirrel.Eq{"counterparty_id": *filter.CounterpartyID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.DateTo})
	}
	return q
}

// loadLines fetches principals, installments and transactions for the given
// obligations in three batched queries and attaches them.
func (r *ObligationRepo) loadLines(ctx context.Context, items []*obligation.Obligation) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]id.ID, len(items))
	byID := make(map[id.ID]*obligation.Obligation, len(items))
	for i, o := range items {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Principals = nil
		o.Installments = nil
		o.Transactions = nil
	}

	querier := r.txm.GetQuerier(ctx)

	// Principals
	sql, args, err := r.Builder().
		Select("obligation_id", "currency", "amount").
		From(tablePrincipals).
		Where(squirrel.Eq{"obligation_id": ids}).
		OrderBy("currency").
		ToSql()
	if err != nil {
		return fmt.Errorf("build principals query: %w", err)
	}
	var principals []principalRow
	if err := pgxscan.Select(ctx, querier, &principals, sql, args...); err != nil {
		return fmt.Errorf("load principals: %w", err)
	}
	for _, row := range principals {
		o := byID[row.ObligationID]
		o.Principals = append(o.Principals, obligation.CurrencyAmount{
			Currency: row.Currency,
			Amount:   row.Amount,
		})
	}

	// Installments
	sql, args, err = r.Builder().
		Select("obligation_id", "line_no", "currency", "due_date", "amount", "is_paid", "paid_date").
		From(tableInstallments).
		Where(squirrel.Eq{"obligation_id": ids}).
		OrderBy("currency", "line_no").
		ToSql()
	if err != nil {
		return fmt.Errorf("build installments query: %w", err)
	}
	var installments []installmentRow
	if err := pgxscan.Select(ctx, querier, &installments, sql, args...); err != nil {
		return fmt.Errorf("load installments: %w", err)
	}
	for _, row := range installments {
		o := byID[row.ObligationID]
		if o.Installments == nil {
			o.Installments = make(map[obligation.Currency][]obligation.Installment)
		}
		o.Installments[row.Currency] = append(o.Installments[row.Currency], obligation.Installment{
			LineNo:   row.LineNo,
			Currency: row.Currency,
			DueDate:  row.DueDate,
			Amount:   row.Amount,
			IsPaid:   row.IsPaid,
			PaidDate: row.PaidDate,
		})
	}

	// Transactions
	sql, args, err = r.Builder().
		Select("id", "obligation_id", "line_no", "type", "currency", "amount", "note", "date").
		From(tableTransactions).
		Where(squirrel.Eq{"obligation_id": ids}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return fmt.Errorf("build transactions query: %w", err)
	}
	var transactions []transactionRow
	if err := pgxscan.Select(ctx, querier, &transactions, sql, args...); err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	for _, row := range transactions {
		o := byID[row.ObligationID]
		o.Transactions = append(o.Transactions, obligation.Transaction{
			ID:       row.ID,
			Type:     row.Type,
			Currency: row.Currency,
			Amount:   row.Amount,
			Note:     row.Note,
			Date:     row.Date,
		})
	}

	return nil
}
