package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/docledger/docledger-go/internal/infra/observability"
	"github.com/docledger/docledger-go/internal/service"
)

// ============================================================
// Ledger collections — GET /v1/{accounts,suppliers,expenses,timeline}
// ============================================================

func listAccountsHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts")
		defer span.End()

		accounts, err := svc.Accounts(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, accounts)
	}
}

func listSuppliersHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/suppliers")
		defer span.End()

		suppliers, err := svc.Suppliers(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, suppliers)
	}
}

func listExpensesHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/expenses")
		defer span.End()

		expenses, err := svc.Expenses(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, expenses)
	}
}

func listTimelineHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/timeline")
		defer span.End()

		entries, err := svc.Timeline(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// ============================================================
// Reports & metrics
// ============================================================

func missingAccountsHandler(svc *service.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/reports/missing-accounts")
		defer span.End()

		writeJSON(w, http.StatusOK, svc.MissingAccountReport())
	}
}

func reconcileStatsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/metrics/reconciliation")
		defer span.End()

		writeJSON(w, http.StatusOK, metrics.GetReconcileStats())
	}
}
