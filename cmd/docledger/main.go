package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/docledger/docledger-go/internal/config"
	"github.com/docledger/docledger-go/internal/domain"
	"github.com/docledger/docledger-go/internal/handler"
	"github.com/docledger/docledger-go/internal/infra/cache"
	"github.com/docledger/docledger-go/internal/infra/extractor"
	"github.com/docledger/docledger-go/internal/infra/observability"
	"github.com/docledger/docledger-go/internal/infra/resilience"
	"github.com/docledger/docledger-go/internal/infra/supabase"
	"github.com/docledger/docledger-go/internal/reconcile"
	"github.com/docledger/docledger-go/internal/service"
)

// zapEvents logs every entity the reconciler actually created or changed.
type zapEvents struct {
	logger *zap.Logger
}

func (e zapEvents) OnAccountUpsert(a domain.Account) {
	e.logger.Info("account upserted", zap.String("id", a.ID), zap.String("name", a.Name))
}

func (e zapEvents) OnSupplierUpsert(s domain.Supplier) {
	e.logger.Info("supplier upserted", zap.String("id", s.ID), zap.String("name", s.Name))
}

func (e zapEvents) OnExpenseUpsert(exp domain.Expense) {
	e.logger.Info("expense upserted",
		zap.String("id", exp.ID),
		zap.String("description", exp.Description),
		zap.Float64("amount", exp.Amount),
		zap.String("status", exp.Status),
	)
}

func (e zapEvents) OnTimelineUpsert(entry domain.TimelineEntry) {
	e.logger.Info("timeline entry upserted",
		zap.String("id", entry.ID),
		zap.String("date", entry.Date),
	)
}

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("extractor_url", cfg.ExtractorURL),
		zap.String("supabase_url", cfg.SupabaseURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("snapshot_cache_ttl", cfg.SnapshotCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("auto_create_accounts", cfg.AutoCreateAccounts),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(context.Background(), cfg.OTLPEndpoint, "docledger")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	snapshotCache := cache.New[domain.Snapshot](cfg.SnapshotCacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	storeCB := resilience.NewCircuitBreaker("supabase")
	extractorCB := resilience.NewCircuitBreaker("extractor")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	store := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		storeCB,
		resilienceCfg,
		logger,
	)
	extractorClient := extractor.NewClient(httpClient, cfg.ExtractorURL, extractorCB, resilienceCfg)

	// --- Core engine ---
	matching := reconcile.MatchingConfig{
		MinFuzzyLength:          cfg.MinFuzzyLength,
		AmountTolerancePercent:  cfg.AmountTolerancePercent,
		AmountToleranceAbsolute: cfg.AmountToleranceAbsolute,
		MinRecurringMonths:      cfg.MinRecurringMonths,
		MaxHintSuggestions:      cfg.MaxHintSuggestions,
	}
	policy := reconcile.Policy{AutoCreateAccounts: cfg.AutoCreateAccounts}
	engine := reconcile.NewReconciler(store, zapEvents{logger: logger}, matching, policy, logger)

	// --- Service ---
	svc := service.NewReconciler(store, extractorClient, engine, snapshotCache, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(svc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
