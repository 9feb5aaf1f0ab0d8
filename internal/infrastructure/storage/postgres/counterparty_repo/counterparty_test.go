package counterparty_repo

import (
	"strings"
	"testing"

	"github.com/phompasit/finance-sub002/internal/domain"
	"github.com/phompasit/finance-sub002/internal/domain/counterparty"
	"github.com/phompasit/finance-sub002/internal/infrastructure/storage/postgres"
)

func TestListQuery_SearchAndType(t *testing.T) {
	repo := NewCounterpartyRepo(&postgres.TxManager{})

	cpType := counterparty.TypeEmployee
	filter := counterparty.ListFilter{
		ListFilter: domain.ListFilter{Search: "som", Limit: 25},
		Type:       &cpType,
	}

	sql, args, err := repo.listQuery(filter).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	for _, clause := range []string{
		"FROM counterparties",
		"type =",
		"name ILIKE",
		"code ILIKE",
		"ORDER BY name ASC",
		"LIMIT 25",
	} {
		if !strings.Contains(sql, clause) {
			t.Errorf("expected clause %q in: %s", clause, sql)
		}
	}

	found := false
	for _, arg := range args {
		if arg == "%som%" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected search pattern argument, got %v", args)
	}
}
