package obligation_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/domain"
	"github.com/phompasit/finance-sub002/internal/domain/obligation"
	"github.com/phompasit/finance-sub002/internal/infrastructure/storage/postgres"
)

func testRepo() *ObligationRepo {
	return NewObligationRepo(&postgres.TxManager{})
}

func TestSelectColumns_CoverHeaderFields(t *testing.T) {
	repo := testRepo()

	expected := []string{
		"id", "deletion_mark", "version",
		"created_at", "updated_at", "created_by", "updated_by",
		"kind", "counterparty_id", "status", "payment_method", "remarks", "closed_at",
	}

	for _, col := range expected {
		found := false
		for _, got := range repo.selectCols {
			if got == col {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected column %s in select list", col)
		}
	}
}

func TestListQuery_Defaults(t *testing.T) {
	repo := testRepo()

	filter := obligation.ListFilter{ListFilter: domain.DefaultListFilter()}
	sql, args, err := repo.listQuery(filter).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	if !strings.Contains(sql, "FROM obligations") {
		t.Errorf("unexpected table: %s", sql)
	}
	if !strings.Contains(sql, "deletion_mark = $1") {
		t.Errorf("expected soft-delete filter: %s", sql)
	}
	if !strings.Contains(sql, "ORDER BY created_at DESC") {
		t.Errorf("expected default ordering: %s", sql)
	}
	if !strings.Contains(sql, "LIMIT 50") {
		t.Errorf("expected default limit: %s", sql)
	}
	if len(args) != 1 || args[0] != false {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestListQuery_AllFilters(t *testing.T) {
	repo := testRepo()

	cpID := id.New()
	status := obligation.StatusOpen
	kind := obligation.KindAdvance
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	filter := obligation.ListFilter{
		ListFilter:     domain.ListFilter{Limit: 10, Offset: 20, OrderBy: "updated_at DESC"},
		CounterpartyID: &cpID,
		Status:         &status,
		Kind:           &kind,
		DateFrom:       &from,
		DateTo:         &to,
	}

	sql, args, err := repo.listQuery(filter).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	for _, clause := range []string{
		"counterparty_id =",
		"status =",
		"kind =",
		"created_at >=",
		"created_at <=",
		"ORDER BY updated_at DESC",
		"LIMIT 10",
		"OFFSET 20",
	} {
		if !strings.Contains(sql, clause) {
			t.Errorf("expected clause %q in: %s", clause, sql)
		}
	}

	// deletion_mark + five filter values
	if len(args) != 6 {
		t.Errorf("expected 6 args, got %d: %v", len(args), args)
	}
}

func TestListQuery_IncludeDeleted(t *testing.T) {
	repo := testRepo()

	filter := obligation.ListFilter{ListFilter: domain.ListFilter{IncludeDeleted: true, Limit: 5}}
	sql, _, err := repo.listQuery(filter).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	if strings.Contains(sql, "deletion_mark") {
		t.Errorf("deleted rows must be included: %s", sql)
	}
}
