package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/docledger/docledger-go/internal/domain"
	"github.com/docledger/docledger-go/internal/infra/cache"
	"github.com/docledger/docledger-go/internal/infra/observability"
	"github.com/docledger/docledger-go/internal/port"
	"github.com/docledger/docledger-go/internal/reconcile"
	"github.com/docledger/docledger-go/internal/service"
)

// --- Mocks ---

type mockStore struct {
	accounts  []domain.Account
	suppliers []domain.Supplier
	expenses  []domain.Expense
	timeline  []domain.TimelineEntry

	listCalls int
	upserted  []string
	deleted   []string
	listErr   error
}

func (m *mockStore) UpsertAccount(_ context.Context, a *domain.Account) error {
	m.upserted = append(m.upserted, "account:"+a.ID)
	return nil
}

func (m *mockStore) UpsertSupplier(_ context.Context, s *domain.Supplier) error {
	m.upserted = append(m.upserted, "supplier:"+s.ID)
	return nil
}

func (m *mockStore) UpsertExpense(_ context.Context, e *domain.Expense) error {
	m.upserted = append(m.upserted, "expense:"+e.ID)
	return nil
}

func (m *mockStore) UpsertTimelineEntry(_ context.Context, e *domain.TimelineEntry) error {
	m.upserted = append(m.upserted, "timeline:"+e.ID)
	return nil
}

func (m *mockStore) ListAccounts(_ context.Context) ([]domain.Account, error) {
	m.listCalls++
	return m.accounts, m.listErr
}

func (m *mockStore) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	return m.suppliers, m.listErr
}

func (m *mockStore) ListExpenses(_ context.Context) ([]domain.Expense, error) {
	return m.expenses, m.listErr
}

func (m *mockStore) ListTimelineEntries(_ context.Context) ([]domain.TimelineEntry, error) {
	return m.timeline, m.listErr
}

func (m *mockStore) UpsertDocument(_ context.Context, d *domain.DocumentMetadata) error {
	m.upserted = append(m.upserted, "document:"+d.ID)
	return nil
}

func (m *mockStore) DeleteDocument(_ context.Context, id string) error {
	m.deleted = append(m.deleted, "document:"+id)
	return nil
}

func (m *mockStore) DeleteExpense(_ context.Context, id string) error {
	m.deleted = append(m.deleted, "expense:"+id)
	return nil
}

func (m *mockStore) DeleteTimelineEntry(_ context.Context, id string) error {
	m.deleted = append(m.deleted, "timeline:"+id)
	return nil
}

type mockExtractor struct {
	meta *domain.DocumentMetadata
	err  error
}

func (m *mockExtractor) Extract(_ context.Context, _ string, _ []byte) (*domain.DocumentMetadata, error) {
	return m.meta, m.err
}

func amt(v float64) *float64 { return &v }

func newService(store *mockStore, ext port.Extractor) *service.Reconciler {
	engine := reconcile.NewReconciler(store, port.NopEvents{}, reconcile.DefaultMatchingConfig(), reconcile.Policy{}, zap.NewNop())
	return service.NewReconciler(
		store,
		ext,
		engine,
		cache.New[domain.Snapshot](5*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

// --- Tests ---

func TestProcessDocument_InvoiceCreatesExpense(t *testing.T) {
	store := &mockStore{
		accounts: []domain.Account{{ID: "acc-1", Name: "Conta Corrente", Currency: "EUR"}},
	}
	ext := &mockExtractor{meta: &domain.DocumentMetadata{
		OriginalName: "edp-marco.pdf",
		UploadDate:   "2024-03-02",
		SourceType:   domain.SourceInvoice,
		Amount:       amt(54.20),
		DueDate:      "2024-03-20",
		AccountHint:  "conta corrente",
		CompanyName:  "EDP Comercial",
	}}

	svc := newService(store, ext)

	result, err := svc.ProcessDocument(context.Background(), "edp-marco.pdf", []byte("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result.ExpensesCreated) != 1 {
		t.Fatalf("expected 1 expense created, got %d", len(result.ExpensesCreated))
	}
	if len(result.SuppliersCreated) != 1 {
		t.Errorf("expected 1 supplier created, got %d", len(result.SuppliersCreated))
	}
	if !strings.HasPrefix(result.DocumentID, "doc-") {
		t.Errorf("expected minted document id, got %q", result.DocumentID)
	}

	expenses, err := svc.Expenses(context.Background())
	if err != nil {
		t.Fatalf("expected snapshot, got %v", err)
	}
	if len(expenses) != 1 {
		t.Errorf("expected snapshot with 1 expense, got %d", len(expenses))
	}

	var docPersisted bool
	for _, key := range store.upserted {
		if key == "document:"+result.DocumentID {
			docPersisted = true
		}
	}
	if !docPersisted {
		t.Error("expected document metadata to be persisted")
	}
}

func TestProcessDocument_SameBytesSameDocumentID(t *testing.T) {
	store := &mockStore{
		accounts: []domain.Account{{ID: "acc-1", Name: "Conta Corrente"}},
	}
	meta := domain.DocumentMetadata{
		UploadDate:  "2024-03-02",
		SourceType:  domain.SourceInvoice,
		Amount:      amt(54.20),
		DueDate:     "2024-03-20",
		AccountHint: "conta corrente",
		CompanyName: "EDP Comercial",
	}

	first := meta
	svc := newService(store, &mockExtractor{meta: &first})
	res1, err := svc.ProcessDocument(context.Background(), "edp.pdf", []byte("same bytes"))
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}

	second := meta
	svc2 := newService(store, &mockExtractor{meta: &second})
	res2, err := svc2.ProcessDocument(context.Background(), "edp.pdf", []byte("same bytes"))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}

	if res1.DocumentID != res2.DocumentID {
		t.Errorf("expected stable document id, got %q and %q", res1.DocumentID, res2.DocumentID)
	}
}

func TestProcessDocument_ExtractorError(t *testing.T) {
	store := &mockStore{}
	ext := &mockExtractor{err: &domain.ErrExternalService{Service: "extractor", Err: errors.New("connection refused")}}

	svc := newService(store, ext)

	_, err := svc.ProcessDocument(context.Background(), "doc.pdf", []byte("bytes"))
	if err == nil {
		t.Fatal("expected error from extractor")
	}
	var extErr *domain.ErrExternalService
	if !errors.As(err, &extErr) {
		t.Errorf("expected ErrExternalService, got %v", err)
	}
	if len(store.upserted) != 0 {
		t.Errorf("expected no writes after extraction failure, got %v", store.upserted)
	}
}

func TestProcessExtraction_RejectsBadSourceType(t *testing.T) {
	svc := newService(&mockStore{}, &mockExtractor{})

	_, err := svc.ProcessExtraction(context.Background(), &domain.DocumentMetadata{
		ID:         "doc-1",
		UploadDate: "2024-03-02",
		SourceType: "contract",
	})
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadSnapshot_Cached(t *testing.T) {
	store := &mockStore{
		accounts: []domain.Account{{ID: "acc-1", Name: "Conta Corrente"}},
	}
	svc := newService(store, &mockExtractor{})

	if _, err := svc.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if _, err := svc.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if store.listCalls != 1 {
		t.Errorf("expected 1 store fetch, got %d", store.listCalls)
	}
}

func TestLoadSnapshot_StoreError(t *testing.T) {
	store := &mockStore{listErr: errors.New("supabase down")}
	svc := newService(store, &mockExtractor{})

	if _, err := svc.LoadSnapshot(context.Background()); err == nil {
		t.Fatal("expected error when store is unavailable")
	}
}

func TestMissingAccountReport(t *testing.T) {
	store := &mockStore{
		accounts: []domain.Account{{ID: "acc-1", Name: "Conta Corrente"}},
	}
	svc := newService(store, &mockExtractor{})

	_, err := svc.ProcessExtraction(context.Background(), &domain.DocumentMetadata{
		ID:          "doc-1",
		UploadDate:  "2024-03-02",
		SourceType:  domain.SourceInvoice,
		Amount:      amt(10),
		DueDate:     "2024-03-20",
		AccountHint: "conta ordenado",
		CompanyName: "EDP Comercial",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	report := svc.MissingAccountReport()
	if len(report) != 1 {
		t.Fatalf("expected 1 unresolved hint, got %d", len(report))
	}
	if report[0].Hint != "conta ordenado" {
		t.Errorf("expected hint 'conta ordenado', got %q", report[0].Hint)
	}
}

func TestDeleteDocument_RemovesDerivedEntities(t *testing.T) {
	store := &mockStore{
		expenses: []domain.Expense{
			{ID: "exp-1", DocumentID: "doc-1", Description: "EDP Comercial", DueDate: "2024-03-20"},
			{ID: "exp-2", Description: "Netflix", DueDate: "2024-03-15"},
		},
		timeline: []domain.TimelineEntry{
			{ID: "tl-1", LinkedExpenseID: "exp-1", Date: "2024-03-20"},
			{ID: "tl-2", LinkedExpenseID: "exp-2", Date: "2024-03-15"},
		},
	}
	svc := newService(store, &mockExtractor{})

	if err := svc.DeleteDocument(context.Background(), "doc-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := map[string]bool{"document:doc-1": true, "expense:exp-1": true, "timeline:tl-1": true}
	for _, key := range store.deleted {
		delete(want, key)
	}
	if len(want) != 0 {
		t.Errorf("missing deletions: %v (got %v)", want, store.deleted)
	}

	expenses, err := svc.Expenses(context.Background())
	if err != nil {
		t.Fatalf("expected snapshot, got %v", err)
	}
	if len(expenses) != 1 || expenses[0].ID != "exp-2" {
		t.Errorf("expected only exp-2 to remain, got %+v", expenses)
	}
}
