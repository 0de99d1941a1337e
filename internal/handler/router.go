package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/docledger/docledger-go/internal/infra/observability"
	"github.com/docledger/docledger-go/internal/service"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *service.Reconciler, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Documents — upload & reconcile
		// =============================================
		r.Post("/documents", uploadDocumentHandler(svc, logger))
		r.Post("/documents/reconcile", reconcileExtractionHandler(svc, logger))
		r.Delete("/documents/{documentId}", deleteDocumentHandler(svc, logger))

		// =============================================
		// 2. Ledger collections
		// =============================================
		r.Get("/accounts", listAccountsHandler(svc, logger))
		r.Get("/suppliers", listSuppliersHandler(svc, logger))
		r.Get("/expenses", listExpensesHandler(svc, logger))
		r.Get("/timeline", listTimelineHandler(svc, logger))

		// =============================================
		// 3. Reports & metrics
		// =============================================
		r.Get("/reports/missing-accounts", missingAccountsHandler(svc))
		r.Get("/metrics/reconciliation", reconcileStatsHandler(metrics))
	})

	return r
}

// ============================================================
// Probes
// ============================================================

func healthzHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status := "healthy"
		store := "healthy"

		start := time.Now()
		if _, err := svc.LoadSnapshot(ctx); err != nil {
			logger.Warn("health check: store unavailable", zap.Error(err))
			status = "degraded"
			store = "degraded"
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status": status,
			"services": map[string]any{
				"docledger-api": "healthy",
				"supabase":      store,
			},
			"latency_ms": time.Since(start).Milliseconds(),
			"checked_at": time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
