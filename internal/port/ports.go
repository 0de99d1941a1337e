// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain and
// reconciliation layers from concrete implementations.
package port

import (
	"context"

	"github.com/docledger/docledger-go/internal/domain"
)

// Extractor is the external text/AI extraction service. It is opaque:
// the engine only consumes the structured record it produces.
type Extractor interface {
	Extract(ctx context.Context, filename string, content []byte) (*domain.DocumentMetadata, error)
}

// EntityWriter is the keyed upsert surface the reconciliation engine
// writes through. Upserts are create-or-replace by entity id; the engine
// never reads back, it works on caller-supplied snapshots.
type EntityWriter interface {
	UpsertAccount(ctx context.Context, account *domain.Account) error
	UpsertSupplier(ctx context.Context, supplier *domain.Supplier) error
	UpsertExpense(ctx context.Context, expense *domain.Expense) error
	UpsertTimelineEntry(ctx context.Context, entry *domain.TimelineEntry) error
}

// LedgerStore is the full persistence surface: the reconciler's write
// path plus the list/delete operations the service layer uses to load
// snapshots and remove documents.
type LedgerStore interface {
	EntityWriter

	ListAccounts(ctx context.Context) ([]domain.Account, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	ListExpenses(ctx context.Context) ([]domain.Expense, error)
	ListTimelineEntries(ctx context.Context) ([]domain.TimelineEntry, error)

	UpsertDocument(ctx context.Context, doc *domain.DocumentMetadata) error
	DeleteDocument(ctx context.Context, id string) error
	DeleteExpense(ctx context.Context, id string) error
	DeleteTimelineEntry(ctx context.Context, id string) error
}

// ReconcileEvents receives one callback per entity that was actually
// created or changed — never for no-op resolutions. Implementations
// must be cheap; they run inline in the reconciliation path.
type ReconcileEvents interface {
	OnAccountUpsert(account domain.Account)
	OnSupplierUpsert(supplier domain.Supplier)
	OnExpenseUpsert(expense domain.Expense)
	OnTimelineUpsert(entry domain.TimelineEntry)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// NopEvents discards all events.
type NopEvents struct{}

func (NopEvents) OnAccountUpsert(domain.Account)        {}
func (NopEvents) OnSupplierUpsert(domain.Supplier)      {}
func (NopEvents) OnExpenseUpsert(domain.Expense)        {}
func (NopEvents) OnTimelineUpsert(domain.TimelineEntry) {}
