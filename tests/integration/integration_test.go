package integration_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/docledger/docledger-go/internal/domain"
	"github.com/docledger/docledger-go/internal/handler"
	"github.com/docledger/docledger-go/internal/infra/cache"
	"github.com/docledger/docledger-go/internal/infra/extractor"
	"github.com/docledger/docledger-go/internal/infra/observability"
	"github.com/docledger/docledger-go/internal/infra/resilience"
	"github.com/docledger/docledger-go/internal/infra/supabase"
	"github.com/docledger/docledger-go/internal/port"
	"github.com/docledger/docledger-go/internal/reconcile"
	"github.com/docledger/docledger-go/internal/service"
)

// fakePostgREST is an in-memory stand-in for Supabase PostgREST: rows are
// keyed by their "id" column, upserts replace, filters support id=eq only.
type fakePostgREST struct {
	mu     sync.Mutex
	tables map[string]map[string]json.RawMessage
}

func newFakePostgREST() *fakePostgREST {
	return &fakePostgREST{tables: make(map[string]map[string]json.RawMessage)}
}

func (f *fakePostgREST) seed(t *testing.T, table string, row any) {
	t.Helper()
	raw, err := json.Marshal(row)
	if err != nil {
		t.Fatal(err)
	}
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tables[table] == nil {
		f.tables[table] = make(map[string]json.RawMessage)
	}
	f.tables[table][probe.ID] = raw
}

func (f *fakePostgREST) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
		if table == r.URL.Path || table == "" {
			http.NotFound(w, r)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.tables[table] == nil {
			f.tables[table] = make(map[string]json.RawMessage)
		}

		switch r.Method {
		case http.MethodGet:
			rows := make([]json.RawMessage, 0, len(f.tables[table]))
			for _, raw := range f.tables[table] {
				rows = append(rows, raw)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(rows)

		case http.MethodPost:
			var body json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			var probe struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(body, &probe); err != nil || probe.ID == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.tables[table][probe.ID] = body
			w.WriteHeader(http.StatusCreated)

		case http.MethodDelete:
			id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
			delete(f.tables[table], id)
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func amt(v float64) *float64 { return &v }

func buildRouter(t *testing.T, store *fakePostgREST, extractorURL string) http.Handler {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	resilienceCfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	storeServer := httptest.NewServer(store.handler())
	t.Cleanup(storeServer.Close)

	supabaseClient := supabase.NewClient(
		httpClient,
		storeServer.URL,
		"anon-key",
		"service-key",
		resilience.NewCircuitBreaker("test-supabase"),
		resilienceCfg,
		logger,
	)
	extractorClient := extractor.NewClient(httpClient, extractorURL, resilience.NewCircuitBreaker("test-extractor"), resilienceCfg)

	engine := reconcile.NewReconciler(supabaseClient, port.NopEvents{}, reconcile.DefaultMatchingConfig(), reconcile.Policy{}, logger)
	svc := service.NewReconciler(
		supabaseClient,
		extractorClient,
		engine,
		cache.New[domain.Snapshot](5*time.Minute),
		metrics,
		logger,
	)

	return handler.NewRouter(svc, metrics, logger)
}

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// TestIntegration_InvoiceLifecycle walks one invoice through upload,
// idempotent re-upload and settlement by a later bank statement.
func TestIntegration_InvoiceLifecycle(t *testing.T) {
	// --- Mock extraction service ---
	extractorServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := domain.DocumentMetadata{
			UploadDate:  "2024-03-02",
			SourceType:  domain.SourceInvoice,
			Amount:      amt(54.20),
			DueDate:     "2024-03-20",
			AccountHint: "conta corrente",
			CompanyName: "EDP Comercial",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(meta)
	}))
	defer extractorServer.Close()

	store := newFakePostgREST()
	store.seed(t, "accounts", domain.Account{
		ID:       "acc-1",
		Name:     "Conta Corrente",
		IBAN:     "PT50000201231234567890154",
		Currency: "EUR",
	})

	router := buildRouter(t, store, extractorServer.URL)

	// --- Step 1: upload the invoice ---
	rec := uploadFile(t, router, "edp-marco.pdf", []byte("%PDF-1.4 edp marco"))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var first domain.ReconcileResult
	if err := json.NewDecoder(rec.Body).Decode(&first); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(first.ExpensesCreated) != 1 {
		t.Fatalf("expected 1 expense created, got %d", len(first.ExpensesCreated))
	}
	if len(first.SuppliersCreated) != 1 {
		t.Errorf("expected 1 supplier created, got %d", len(first.SuppliersCreated))
	}
	if len(first.TimelineUpserts) != 1 {
		t.Errorf("expected 1 timeline upsert, got %d", len(first.TimelineUpserts))
	}
	expense := first.ExpensesCreated[0]
	if expense.AccountID != "acc-1" {
		t.Errorf("expected expense on acc-1, got %q", expense.AccountID)
	}
	if expense.Status != domain.ExpensePlanned {
		t.Errorf("expected planned status, got %q", expense.Status)
	}

	// --- Step 2: re-upload the same bytes, expect a no-op ---
	rec = uploadFile(t, router, "edp-marco.pdf", []byte("%PDF-1.4 edp marco"))
	if rec.Code != http.StatusOK {
		t.Fatalf("re-upload: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var second domain.ReconcileResult
	if err := json.NewDecoder(rec.Body).Decode(&second); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if second.DocumentID != first.DocumentID {
		t.Errorf("expected same document id on re-upload, got %q and %q", first.DocumentID, second.DocumentID)
	}
	if len(second.ExpensesCreated) != 0 || len(second.ExpensesUpdated) != 0 {
		t.Errorf("expected no expense changes on re-upload, got %d created, %d updated",
			len(second.ExpensesCreated), len(second.ExpensesUpdated))
	}

	// --- Step 3: bank statement settles the expense ---
	statement := domain.DocumentMetadata{
		ID:                   "doc-statement-marco",
		OriginalName:         "extrato-marco.pdf",
		UploadDate:           "2024-04-01",
		SourceType:           domain.SourceStatement,
		StatementAccountIBAN: "PT50000201231234567890154",
		StatementSettlements: []domain.StatementSettlement{
			{Description: "EDP COMERCIAL LISBOA", Amount: amt(54.20), SettledOn: "2024-03-19"},
		},
	}
	payload, _ := json.Marshal(statement)
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/reconcile", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("statement: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var third domain.ReconcileResult
	if err := json.NewDecoder(rec.Body).Decode(&third); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if third.SettlementsMatched != 1 {
		t.Fatalf("expected 1 settlement matched, got %d", third.SettlementsMatched)
	}

	// --- Step 4: the expense is now paid ---
	req = httptest.NewRequest(http.MethodGet, "/v1/expenses", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("list expenses: expected 200, got %d", rec.Code)
	}
	var expenses []domain.Expense
	if err := json.NewDecoder(rec.Body).Decode(&expenses); err != nil {
		t.Fatalf("failed to decode expenses: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(expenses))
	}
	if expenses[0].Status != domain.ExpensePaid {
		t.Errorf("expected paid status, got %q", expenses[0].Status)
	}
	if expenses[0].PaidAt != "2024-03-19" {
		t.Errorf("expected paid_at 2024-03-19, got %q", expenses[0].PaidAt)
	}
}

// TestIntegration_ExtractorDown verifies upstream failures surface as 502.
func TestIntegration_ExtractorDown(t *testing.T) {
	extractorServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer extractorServer.Close()

	store := newFakePostgREST()
	router := buildRouter(t, store, extractorServer.URL)

	rec := uploadFile(t, router, "doc.pdf", []byte("bytes"))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d. Body: %s", rec.Code, rec.Body.String())
	}
}
