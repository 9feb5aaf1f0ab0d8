package obligation

import (
	"context"
	"testing"
	"time"

	"github.com/phompasit/finance-sub002/internal/core/apperror"
	"github.com/phompasit/finance-sub002/internal/core/id"
	"github.com/phompasit/finance-sub002/internal/core/types"
	"github.com/phompasit/finance-sub002/internal/domain"
)

// --- In-memory fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	store map[id.ID]*Obligation
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{store: make(map[id.ID]*Obligation)}
}

// clone gives each caller its own copy so version checks behave like the
// real repository.
func (r *fakeRepo) clone(o *Obligation) *Obligation {
	c := *o
	c.Principals = append([]CurrencyAmount(nil), o.Principals...)
	c.Transactions = append([]Transaction(nil), o.Transactions...)
	if o.Installments != nil {
		c.Installments = make(map[Currency][]Installment, len(o.Installments))
		for k, v := range o.Installments {
			c.Installments[k] = append([]Installment(nil), v...)
		}
	}
	c.Summaries = nil
	return &c
}

func (r *fakeRepo) Create(ctx context.Context, o *Obligation) error {
	r.store[o.ID] = r.clone(o)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, obligationID id.ID) (*Obligation, error) {
	o, ok := r.store[obligationID]
	if !ok || o.DeletionMark {
		return nil, apperror.NewNotFound("obligation", obligationID.String())
	}
	return r.clone(o), nil
}

func (r *fakeRepo) Update(ctx context.Context, o *Obligation) error {
	stored, ok := r.store[o.ID]
	if !ok {
		return apperror.NewNotFound("obligation", o.ID.String())
	}
	if stored.Version != o.Version {
		return apperror.NewConcurrentModification("obligation", o.ID.String())
	}
	o.SetVersion(o.Version + 1)
	r.store[o.ID] = r.clone(o)
	return nil
}

func (r *fakeRepo) SaveLines(ctx context.Context, o *Obligation) error {
	stored, ok := r.store[o.ID]
	if !ok {
		return apperror.NewNotFound("obligation", o.ID.String())
	}
	stored.Principals = append([]CurrencyAmount(nil), o.Principals...)
	stored.Transactions = append([]Transaction(nil), o.Transactions...)
	stored.Installments = nil
	if o.Installments != nil {
		stored.Installments = make(map[Currency][]Installment, len(o.Installments))
		for k, v := range o.Installments {
			stored.Installments[k] = append([]Installment(nil), v...)
		}
	}
	return nil
}

func (r *fakeRepo) SetDeletionMark(ctx context.Context, obligationID id.ID, marked bool) error {
	o, ok := r.store[obligationID]
	if !ok {
		return apperror.NewNotFound("obligation", obligationID.String())
	}
	o.DeletionMark = marked
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Obligation], error) {
	var items []*Obligation
	for _, o := range r.store {
		if o.DeletionMark && !filter.IncludeDeleted {
			continue
		}
		items = append(items, r.clone(o))
	}
	return domain.ListResult[*Obligation]{
		Items:      items,
		TotalCount: int64(len(items)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

type fakeAudit struct {
	actions []string
}

func (a *fakeAudit) Record(ctx context.Context, obligationID id.ID, action string, changes map[string]any) error {
	a.actions = append(a.actions, action)
	return nil
}

func newTestService() (*Service, *fakeRepo, *fakeAudit) {
	repo := newFakeRepo()
	audit := &fakeAudit{}
	return NewService(repo, fakeTxManager{}, audit), repo, audit
}

// --- Tests ---

func TestService_Create_DefaultsToPending(t *testing.T) {
	svc, _, audit := newTestService()
	ctx := context.Background()

	o := NewObligation(KindAdvance, id.New(), "cash", []CurrencyAmount{usd("100")})
	o.Status = ""

	if err := svc.Create(ctx, o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != StatusPending {
		t.Errorf("expected pending, got %s", o.Status)
	}
	if len(audit.actions) != 1 || audit.actions[0] != "create" {
		t.Errorf("expected create audit record, got %v", audit.actions)
	}
}

func TestService_Create_RejectsClosedInitialStatus(t *testing.T) {
	svc, _, _ := newTestService()

	o := NewObligation(KindAdvance, id.New(), "cash", []CurrencyAmount{usd("100")})
	o.Status = StatusClosed

	if err := svc.Create(context.Background(), o); !apperror.HasCode(err, apperror.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestService_AppendTransaction_Persists(t *testing.T) {
	svc, repo, audit := newTestService()
	ctx := context.Background()

	o := NewObligation(KindAdvance, id.New(), "cash", []CurrencyAmount{usd("100")})
	o.Status = StatusOpen
	if err := svc.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	date := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	updated, err := svc.AppendTransaction(ctx, o.ID, NewTransaction(TxSpend, CurrencyUSD, types.MustMoney("40"), "", date), 0)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if updated.Version != 2 {
		t.Errorf("expected version bumped to 2, got %d", updated.Version)
	}
	s, _ := updated.Summary(CurrencyUSD)
	if s.Remaining.String() != "60" {
		t.Errorf("expected remaining 60, got %s", s.Remaining.String())
	}

	stored := repo.store[o.ID]
	if len(stored.Transactions) != 1 {
		t.Errorf("expected transaction persisted, have %d", len(stored.Transactions))
	}
	if audit.actions[len(audit.actions)-1] != "append_transaction" {
		t.Errorf("expected audit action, got %v", audit.actions)
	}
}

func TestService_Mutate_StaleVersionRejected(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o := NewObligation(KindAdvance, id.New(), "cash", []CurrencyAmount{usd("100")})
	o.Status = StatusOpen
	if err := svc.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	date := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	txn := NewTransaction(TxSpend, CurrencyUSD, types.MustMoney("10"), "", date)

	// Stored version is 1; a caller holding version 7 is stale.
	_, err := svc.AppendTransaction(ctx, o.ID, txn, 7)
	if !apperror.IsConcurrentModification(err) {
		t.Errorf("expected CONCURRENT_MODIFICATION, got %v", err)
	}

	// Matching version passes.
	if _, err := svc.AppendTransaction(ctx, o.ID, txn, 1); err != nil {
		t.Errorf("unexpected error with matching version: %v", err)
	}
}

func TestService_SetInstallments_ValidatesAndNormalizes(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o := NewObligation(KindDebt, id.New(), "transfer", []CurrencyAmount{lak("1000000")})
	o.Status = StatusOpen
	if err := svc.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// Scenario B: 600,000 + 300,000 against 1,000,000 fails.
	bad := []Installment{
		{DueDate: due, Amount: types.MustMoney("600000")},
		{DueDate: due.AddDate(0, 1, 0), Amount: types.MustMoney("300000")},
	}
	_, err := svc.SetInstallments(ctx, o.ID, CurrencyLAK, bad, 0)
	if !apperror.HasCode(err, apperror.CodeInstallmentSumMismatch) {
		t.Fatalf("expected INSTALLMENT_SUM_MISMATCH, got %v", err)
	}

	// Scenario A: 600,000 + 400,000 passes, lines renumbered and stamped.
	good := []Installment{
		{DueDate: due, Amount: types.MustMoney("600000")},
		{DueDate: due.AddDate(0, 1, 0), Amount: types.MustMoney("400000")},
	}
	updated, err := svc.SetInstallments(ctx, o.ID, CurrencyLAK, good, 0)
	if err != nil {
		t.Fatalf("set installments: %v", err)
	}

	list := updated.Installments[CurrencyLAK]
	if len(list) != 2 {
		t.Fatalf("expected 2 installments, got %d", len(list))
	}
	if list[0].LineNo != 1 || list[1].LineNo != 2 {
		t.Errorf("expected normalized line numbers, got %d,%d", list[0].LineNo, list[1].LineNo)
	}
	if list[0].Currency != CurrencyLAK {
		t.Errorf("expected normalized currency, got %s", list[0].Currency)
	}
}

func TestService_SetInstallments_UnknownCurrency(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o := NewObligation(KindDebt, id.New(), "transfer", []CurrencyAmount{lak("1000")})
	o.Status = StatusOpen
	if err := svc.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.SetInstallments(ctx, o.ID, CurrencyUSD, nil, 0)
	if !apperror.HasCode(err, apperror.CodeCurrencyNotInPrincipal) {
		t.Errorf("expected CURRENCY_NOT_IN_PRINCIPAL, got %v", err)
	}
}

func TestService_MarkInstallmentPaid(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	o := NewObligation(KindDebt, id.New(), "transfer", []CurrencyAmount{lak("1000000")})
	o.Status = StatusOpen
	o.Installments = map[Currency][]Installment{
		CurrencyLAK: {
			{LineNo: 1, Currency: CurrencyLAK, DueDate: due, Amount: types.MustMoney("600000")},
			{LineNo: 2, Currency: CurrencyLAK, DueDate: due.AddDate(0, 1, 0), Amount: types.MustMoney("400000")},
		},
	}
	if err := svc.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	paidDate := due.AddDate(0, 0, 2)
	updated, err := svc.MarkInstallmentPaid(ctx, o.ID, CurrencyLAK, 1, paidDate, 0)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}

	line := updated.Installments[CurrencyLAK][0]
	if !line.IsPaid || line.PaidDate == nil {
		t.Error("expected line 1 marked paid with a paid date")
	}
	s, _ := updated.Summary(CurrencyLAK)
	if s.Remaining.String() != "400000" {
		t.Errorf("expected remaining 400000, got %s", s.Remaining.String())
	}

	// Paying the same line again conflicts.
	if _, err := svc.MarkInstallmentPaid(ctx, o.ID, CurrencyLAK, 1, paidDate, 0); !apperror.HasCode(err, apperror.CodeConflict) {
		t.Errorf("expected CONFLICT, got %v", err)
	}

	// Unknown line is NotFound.
	if _, err := svc.MarkInstallmentPaid(ctx, o.ID, CurrencyLAK, 9, paidDate, 0); !apperror.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestService_LifecycleCommands(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o := NewObligation(KindAdvance, id.New(), "cash", []CurrencyAmount{usd("100")})
	if err := svc.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Activate(ctx, o.ID, 0)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if updated.Status != StatusOpen {
		t.Errorf("expected open, got %s", updated.Status)
	}

	updated, err = svc.Close(ctx, o.ID, "done", 0)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if updated.Status != StatusClosed || updated.ClosedAt == nil {
		t.Errorf("expected closed with closedAt, got %s %v", updated.Status, updated.ClosedAt)
	}

	updated, err = svc.Reopen(ctx, o.ID, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if updated.Status != StatusOpen || updated.ClosedAt != nil {
		t.Errorf("expected reopened, got %s %v", updated.Status, updated.ClosedAt)
	}
}

func TestService_Delete_SoftDeletes(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	o := NewObligation(KindAdvance, id.New(), "cash", []CurrencyAmount{usd("100")})
	if err := svc.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, o.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Row survives under the mark.
	if !repo.store[o.ID].DeletionMark {
		t.Error("expected deletion mark set")
	}
	if _, err := svc.GetByID(ctx, o.ID); !apperror.IsNotFound(err) {
		t.Errorf("expected NotFound after delete, got %v", err)
	}

	if err := svc.Delete(ctx, id.New()); !apperror.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown id, got %v", err)
	}
}

func TestService_GetByID_RecomputesSummaries(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o := NewObligation(KindAdvance, id.New(), "cash", []CurrencyAmount{usd("100")})
	if err := svc.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Summaries) != 1 {
		t.Errorf("expected summaries recomputed on read, got %d", len(got.Summaries))
	}
}
