// Package service orchestrates document processing: extraction, snapshot
// loading, reconciliation and persistence bookkeeping.
package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docledger/docledger-go/internal/domain"
	"github.com/docledger/docledger-go/internal/infra/observability"
	"github.com/docledger/docledger-go/internal/port"
	"github.com/docledger/docledger-go/internal/reconcile"
)

var tracer = otel.Tracer("service/reconciler")

const snapshotCacheKey = "ledger"

// docNamespace seeds deterministic document ids minted from file content,
// so re-uploading the same bytes maps to the same document.
var docNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("docledger.document"))

// Reconciler is the application service in front of the core engine. It
// owns the in-memory ledger snapshot and serializes document processing;
// the engine itself is stateless between calls.
type Reconciler struct {
	store     port.LedgerStore
	extractor port.Extractor
	engine    *reconcile.Reconciler
	cache     port.Cache[domain.Snapshot]
	metrics   *observability.Metrics
	logger    *zap.Logger

	// mu guards snapshot, loaded and missing. Documents are reconciled
	// one at a time; concurrent uploads queue here.
	mu       sync.Mutex
	snapshot domain.Snapshot
	loaded   bool
	missing  map[string]domain.UnresolvedHint
}

// NewReconciler creates the service with all dependencies injected.
func NewReconciler(
	store port.LedgerStore,
	extractor port.Extractor,
	engine *reconcile.Reconciler,
	cache port.Cache[domain.Snapshot],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		store:     store,
		extractor: extractor,
		engine:    engine,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		missing:   make(map[string]domain.UnresolvedHint),
	}
}

// LoadSnapshot returns the current ledger snapshot, fetching all four
// collections from the store in parallel on a cold cache.
func (s *Reconciler) LoadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSnapshotLocked(ctx)
}

func (s *Reconciler) loadSnapshotLocked(ctx context.Context) (domain.Snapshot, error) {
	if s.loaded {
		return s.snapshot, nil
	}
	if snap, ok := s.cache.Get(snapshotCacheKey); ok {
		s.metrics.IncrCacheHit("snapshot")
		s.snapshot = snap
		s.loaded = true
		return snap, nil
	}
	s.metrics.IncrCacheMiss("snapshot")

	ctx, span := tracer.Start(ctx, "Reconciler.LoadSnapshot")
	defer span.End()

	var snap domain.Snapshot
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		accounts, err := s.store.ListAccounts(gCtx)
		if err != nil {
			return fmt.Errorf("accounts fetch: %w", err)
		}
		snap.Accounts = accounts
		return nil
	})
	g.Go(func() error {
		suppliers, err := s.store.ListSuppliers(gCtx)
		if err != nil {
			return fmt.Errorf("suppliers fetch: %w", err)
		}
		snap.Suppliers = suppliers
		return nil
	})
	g.Go(func() error {
		expenses, err := s.store.ListExpenses(gCtx)
		if err != nil {
			return fmt.Errorf("expenses fetch: %w", err)
		}
		snap.Expenses = expenses
		return nil
	})
	g.Go(func() error {
		entries, err := s.store.ListTimelineEntries(gCtx)
		if err != nil {
			return fmt.Errorf("timeline fetch: %w", err)
		}
		snap.Timeline = entries
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load ledger snapshot", zap.Error(err))
		s.metrics.IncrExternalError("supabase")
		return domain.Snapshot{}, err
	}

	s.snapshot = snap
	s.loaded = true
	s.cache.Set(snapshotCacheKey, snap)
	return snap, nil
}

// ProcessDocument runs the full upload path: extraction, document
// persistence, reconciliation. The returned result lists only entities
// that were actually created or changed.
func (s *Reconciler) ProcessDocument(ctx context.Context, filename string, content []byte) (*domain.ReconcileResult, error) {
	ctx, span := tracer.Start(ctx, "Reconciler.ProcessDocument")
	defer span.End()
	span.SetAttributes(attribute.String("document.filename", filename))

	meta, err := s.extractor.Extract(ctx, filename, content)
	if err != nil {
		s.logger.Error("extraction failed",
			zap.String("filename", filename),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("extractor")
		return nil, fmt.Errorf("extract: %w", err)
	}

	if meta.ID == "" {
		sum := sha256.Sum256(content)
		meta.ID = "doc-" + uuid.NewSHA1(docNamespace, sum[:]).String()
	}
	if meta.OriginalName == "" {
		meta.OriginalName = filename
	}
	if meta.UploadDate == "" {
		meta.UploadDate = time.Now().Format("2006-01-02")
	}

	return s.ProcessExtraction(ctx, meta)
}

// ProcessExtraction reconciles an already-extracted document record.
// Used by the upload path and by callers that edit extraction output by
// hand before replaying it.
func (s *Reconciler) ProcessExtraction(ctx context.Context, meta *domain.DocumentMetadata) (*domain.ReconcileResult, error) {
	if err := validateExtraction(meta); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Reconciler.ProcessExtraction")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", meta.ID),
		attribute.String("document.source_type", meta.SourceType),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("reconcile", time.Since(start))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.loadSnapshotLocked(ctx)
	if err != nil {
		s.metrics.RecordDocument(meta.SourceType, "error")
		return nil, err
	}

	if err := s.store.UpsertDocument(ctx, meta); err != nil {
		s.logger.Error("failed to persist document",
			zap.String("document_id", meta.ID),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("supabase")
		s.metrics.RecordDocument(meta.SourceType, "error")
		return nil, fmt.Errorf("persist document: %w", err)
	}

	next, result, err := s.engine.ReconcileDocument(ctx, meta, snap)
	if err != nil {
		s.metrics.RecordDocument(meta.SourceType, "error")
		return nil, err
	}

	s.snapshot = next
	s.cache.Set(snapshotCacheKey, next)
	for _, hint := range result.UnresolvedHints {
		s.missing[hint.Hint] = hint
	}

	s.metrics.RecordDocument(meta.SourceType, "ok")
	s.metrics.RecordReconcileResult(result)
	s.logger.Info("document reconciled",
		zap.String("document_id", meta.ID),
		zap.String("source_type", meta.SourceType),
		zap.Int("expenses_created", len(result.ExpensesCreated)),
		zap.Int("expenses_updated", len(result.ExpensesUpdated)),
		zap.Int("settlements_matched", result.SettlementsMatched),
	)
	return result, nil
}

// Accounts returns the current account collection.
func (s *Reconciler) Accounts(ctx context.Context) ([]domain.Account, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Accounts, nil
}

// Suppliers returns the current supplier collection.
func (s *Reconciler) Suppliers(ctx context.Context) ([]domain.Supplier, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Suppliers, nil
}

// Expenses returns the current expense collection.
func (s *Reconciler) Expenses(ctx context.Context) ([]domain.Expense, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Expenses, nil
}

// Timeline returns the current timeline, due-date ordered by the store.
func (s *Reconciler) Timeline(ctx context.Context) ([]domain.TimelineEntry, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Timeline, nil
}

// MissingAccountReport lists account hints that matched no known account
// since startup, each with its closest-name suggestions.
func (s *Reconciler) MissingAccountReport() []domain.UnresolvedHint {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := make([]domain.UnresolvedHint, 0, len(s.missing))
	for _, hint := range s.missing {
		report = append(report, hint)
	}
	return report
}

// DeleteDocument removes a document and the expense and timeline entry
// derived from it. Expenses promoted from statement candidates are left
// alone; only the document-linked expense goes.
func (s *Reconciler) DeleteDocument(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "Reconciler.DeleteDocument")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", documentID))

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.loadSnapshotLocked(ctx)
	if err != nil {
		return err
	}

	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		s.metrics.IncrExternalError("supabase")
		return fmt.Errorf("delete document: %w", err)
	}

	next := snap.Clone()
	legacyID := reconcile.LegacyExpensePrefix + documentID

	kept := next.Expenses[:0]
	var removed []domain.Expense
	for _, exp := range next.Expenses {
		if exp.DocumentID == documentID || exp.ID == legacyID {
			removed = append(removed, exp)
			continue
		}
		kept = append(kept, exp)
	}
	next.Expenses = kept

	for _, exp := range removed {
		if err := s.store.DeleteExpense(ctx, exp.ID); err != nil {
			s.metrics.IncrExternalError("supabase")
			return fmt.Errorf("delete expense %s: %w", exp.ID, err)
		}

		keptTimeline := next.Timeline[:0]
		for _, entry := range next.Timeline {
			if entry.LinkedExpenseID == exp.ID {
				if err := s.store.DeleteTimelineEntry(ctx, entry.ID); err != nil {
					s.metrics.IncrExternalError("supabase")
					return fmt.Errorf("delete timeline entry %s: %w", entry.ID, err)
				}
				continue
			}
			keptTimeline = append(keptTimeline, entry)
		}
		next.Timeline = keptTimeline
	}

	s.snapshot = next
	s.cache.Set(snapshotCacheKey, next)
	s.logger.Info("document deleted",
		zap.String("document_id", documentID),
		zap.Int("expenses_removed", len(removed)),
	)
	return nil
}

// InvalidateSnapshot drops the cached snapshot so the next call reloads
// from the store. Exposed for operational use after out-of-band edits.
func (s *Reconciler) InvalidateSnapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.cache.Delete(snapshotCacheKey)
}

func validateExtraction(meta *domain.DocumentMetadata) error {
	if meta == nil {
		return &domain.ErrValidation{Field: "document", Message: "missing extraction record"}
	}
	if meta.ID == "" {
		return &domain.ErrValidation{Field: "id", Message: "document id is required"}
	}
	if meta.UploadDate == "" {
		return &domain.ErrValidation{Field: "upload_date", Message: "upload date is required"}
	}
	switch meta.SourceType {
	case domain.SourceInvoice, domain.SourceReceipt, domain.SourceStatement:
	default:
		return &domain.ErrValidation{Field: "source_type", Message: "must be invoice, receipt or statement"}
	}
	if _, err := time.Parse("2006-01-02", meta.UploadDate); err != nil {
		return &domain.ErrValidation{Field: "upload_date", Message: "must be an ISO date (2006-01-02)"}
	}
	return nil
}
