package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/docledger/docledger-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the reconciliation service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	documentsProcessed *prometheus.CounterVec
	expensesWritten    *prometheus.CounterVec
	suppliersWritten   *prometheus.CounterVec
	settlements        *prometheus.CounterVec
	unresolvedHints    prometheus.Counter
	externalErrors     *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docledger_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		documentsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docledger_documents_processed_total",
				Help: "Documents reconciled, by source type and outcome.",
			},
			[]string{"source_type", "status"},
		),
		expensesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docledger_expenses_written_total",
				Help: "Expenses created or updated by reconciliation.",
			},
			[]string{"op"},
		),
		suppliersWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docledger_suppliers_written_total",
				Help: "Suppliers created or merged by reconciliation.",
			},
			[]string{"op"},
		),
		settlements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docledger_settlements_total",
				Help: "Statement settlement lines by match outcome.",
			},
			[]string{"outcome"},
		),
		unresolvedHints: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docledger_unresolved_account_hints_total",
				Help: "Account hints that matched no known account.",
			},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docledger_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docledger_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docledger_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordDocument increments the processed-document counter.
func (m *Metrics) RecordDocument(sourceType, status string) {
	m.documentsProcessed.WithLabelValues(sourceType, status).Inc()
}

// RecordReconcileResult translates a reconciliation result into counters.
func (m *Metrics) RecordReconcileResult(res *domain.ReconcileResult) {
	if res == nil {
		return
	}
	m.expensesWritten.WithLabelValues("create").Add(float64(len(res.ExpensesCreated)))
	m.expensesWritten.WithLabelValues("update").Add(float64(len(res.ExpensesUpdated)))
	m.suppliersWritten.WithLabelValues("create").Add(float64(len(res.SuppliersCreated)))
	m.suppliersWritten.WithLabelValues("merge").Add(float64(len(res.SuppliersUpdated)))
	m.settlements.WithLabelValues("matched").Add(float64(res.SettlementsMatched))
	m.settlements.WithLabelValues("skipped").Add(float64(res.SettlementsSkipped))
	m.unresolvedHints.Add(float64(len(res.UnresolvedHints)))
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetReconcileStats returns a snapshot of reconciliation counters suitable for
// the GET /v1/metrics/reconciliation endpoint.
func (m *Metrics) GetReconcileStats() *domain.ReconcileStats {
	// Gather current values from Prometheus counters.
	// Note: Prometheus counters expose cumulative values.
	stats := &domain.ReconcileStats{
		ExpensesCreated:    int64(getCounterValue(m.expensesWritten, "create")),
		ExpensesUpdated:    int64(getCounterValue(m.expensesWritten, "update")),
		SuppliersCreated:   int64(getCounterValue(m.suppliersWritten, "create")),
		SuppliersMerged:    int64(getCounterValue(m.suppliersWritten, "merge")),
		SettlementsMatched: int64(getCounterValue(m.settlements, "matched")),
		SettlementsSkipped: int64(getCounterValue(m.settlements, "skipped")),
		Period:             "all_time",
	}

	hints := &dto.Metric{}
	if err := m.unresolvedHints.Write(hints); err == nil && hints.Counter != nil && hints.Counter.Value != nil {
		stats.UnresolvedHints = int64(*hints.Counter.Value)
	}

	for _, source := range []string{domain.SourceInvoice, domain.SourceReceipt, domain.SourceStatement} {
		stats.DocumentsProcessed += int64(getCounterValue(m.documentsProcessed, source, "ok"))
		stats.DocumentsFailed += int64(getCounterValue(m.documentsProcessed, source, "error"))
	}
	return stats
}

// getCounterValue extracts the current float64 value from a CounterVec for the
// given label values.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
