package reconcile

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/docledger/docledger-go/internal/domain"
	"github.com/docledger/docledger-go/internal/port"
)

var tracer = otel.Tracer("reconcile")

// Reconciler sequences the per-document reconciliation: entity
// resolution, expense derivation, timeline derivation and, for
// statements, settlement matching. It owns no state between calls;
// every call takes the latest snapshot and returns the next one.
type Reconciler struct {
	store  port.EntityWriter
	events port.ReconcileEvents
	cfg    MatchingConfig
	policy Policy
	logger *zap.Logger
}

// NewReconciler wires the engine to its persistence and event sinks.
func NewReconciler(store port.EntityWriter, events port.ReconcileEvents, cfg MatchingConfig, policy Policy, logger *zap.Logger) *Reconciler {
	if events == nil {
		events = port.NopEvents{}
	}
	return &Reconciler{store: store, events: events, cfg: cfg, policy: policy, logger: logger}
}

// ReconcileDocument processes one extracted document against the given
// snapshot and returns the updated snapshot plus a report of what
// changed. Resolution misses are skips, not errors; only persistence
// failures abort, and then the original snapshot is returned untouched
// so the caller keeps its last-known-good collections.
func (r *Reconciler) ReconcileDocument(ctx context.Context, doc *domain.DocumentMetadata, snap domain.Snapshot) (domain.Snapshot, *domain.ReconcileResult, error) {
	ctx, span := tracer.Start(ctx, "Reconciler.ReconcileDocument")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", doc.ID),
		attribute.String("document.source_type", doc.SourceType),
	)

	next := snap.Clone()
	res := &domain.ReconcileResult{DocumentID: doc.ID}

	var err error
	if doc.SourceType == domain.SourceStatement {
		err = r.reconcileStatement(ctx, doc, &next, res)
	} else {
		err = r.reconcileInvoice(ctx, doc, &next, res)
	}
	if err != nil {
		r.logger.Error("reconciliation aborted",
			zap.String("document_id", doc.ID),
			zap.String("source_type", doc.SourceType),
			zap.Error(err),
		)
		return snap, nil, err
	}

	r.logger.Info("document reconciled",
		zap.String("document_id", doc.ID),
		zap.String("source_type", doc.SourceType),
		zap.Int("expenses_created", len(res.ExpensesCreated)),
		zap.Int("expenses_updated", len(res.ExpensesUpdated)),
		zap.Int("settlements_matched", res.SettlementsMatched),
	)
	return next, res, nil
}

// reconcileInvoice handles the invoice/receipt path: supplier, account,
// single expense, single timeline entry.
func (r *Reconciler) reconcileInvoice(ctx context.Context, doc *domain.DocumentMetadata, next *domain.Snapshot, res *domain.ReconcileResult) error {
	supplierID, err := r.applySupplierResolution(ctx, ResolveSupplier(doc, next.Suppliers), next, res)
	if err != nil {
		return err
	}

	if _, err := r.resolveOrCreateAccount(ctx, doc.AccountHint, doc, next, res); err != nil {
		return err
	}

	existing := findExistingExpense(doc, next.Expenses)
	exp := DeriveExpenseFromDocument(doc, next.Accounts, existing, supplierID, r.cfg)
	if exp == nil || !HasExpenseChanged(existing, exp) {
		return nil
	}

	if err := r.upsertExpense(ctx, exp, existing != nil, next, res); err != nil {
		return err
	}
	return r.deriveAndUpsertTimeline(ctx, exp, next, res)
}

// reconcileStatement handles the statement path: the bank as a
// best-effort supplier, the statement's own account, one expense and
// timeline entry per qualifying recurring candidate, then settlement
// matching against the accumulated expense set.
func (r *Reconciler) reconcileStatement(ctx context.Context, doc *domain.DocumentMetadata, next *domain.Snapshot, res *domain.ReconcileResult) error {
	if _, err := r.applySupplierResolution(ctx, ResolveSupplier(doc, next.Suppliers), next, res); err != nil {
		return err
	}

	statementHint := doc.StatementAccountIBAN
	if statementHint == "" {
		statementHint = doc.AccountHint
	}
	statementAccountID, err := r.resolveOrCreateAccount(ctx, statementHint, doc, next, res)
	if err != nil {
		return err
	}

	for i := range doc.RecurringExpenses {
		cand := &doc.RecurringExpenses[i]
		// Malformed or single-month candidates are per-candidate skips;
		// siblings in the same statement still process.
		if cand.Description == "" || len(cand.MonthsObserved) < r.cfg.MinRecurringMonths {
			continue
		}

		accountID := statementAccountID
		if cand.AccountHint != "" {
			if acc := ResolveAccount(cand.AccountHint, next.Accounts, r.cfg); acc != nil {
				accountID = acc.ID
			} else if created, err := r.resolveOrCreateAccount(ctx, cand.AccountHint, doc, next, res); err != nil {
				return err
			} else if created != "" {
				accountID = created
			}
		}
		if accountID == "" {
			continue
		}

		supplierID, err := r.applySupplierResolution(ctx, ResolveSupplierForRecurringCandidate(cand, next.Suppliers), next, res)
		if err != nil {
			return err
		}

		existing := findExistingRecurringExpense(cand, doc, next.Expenses)
		exp := BuildRecurringExpense(cand, doc, accountID, supplierID, existing, r.cfg)
		if exp == nil || !HasExpenseChanged(existing, exp) {
			continue
		}
		if err := r.upsertExpense(ctx, exp, existing != nil, next, res); err != nil {
			return err
		}
		if err := r.deriveAndUpsertTimeline(ctx, exp, next, res); err != nil {
			return err
		}
	}

	outcome := SettleExpensesFromStatement(doc.StatementSettlements, statementAccountID, doc, next.Expenses, r.cfg)
	next.Expenses = outcome.Expenses
	res.SettlementsMatched = outcome.Matched
	res.SettlementsSkipped = outcome.Skipped
	for i := range outcome.Settled {
		exp := &outcome.Settled[i]
		if err := r.store.UpsertExpense(ctx, exp); err != nil {
			return err
		}
		r.events.OnExpenseUpsert(*exp)
		res.ExpensesUpdated = append(res.ExpensesUpdated, *exp)
	}
	return nil
}

// applySupplierResolution installs a supplier resolution into the
// snapshot and persists/emits only when something was actually created
// or changed. Returns the resolved supplier id ("" when the document
// carries no supplier signal).
func (r *Reconciler) applySupplierResolution(ctx context.Context, resolution SupplierResolution, next *domain.Snapshot, res *domain.ReconcileResult) (string, error) {
	next.Suppliers = resolution.Suppliers
	if resolution.Supplier == nil {
		return "", nil
	}

	if resolution.Created || resolution.Updated {
		if err := r.store.UpsertSupplier(ctx, resolution.Supplier); err != nil {
			return "", err
		}
		r.events.OnSupplierUpsert(*resolution.Supplier)
		if resolution.Created {
			res.SuppliersCreated = append(res.SuppliersCreated, *resolution.Supplier)
		} else {
			res.SuppliersUpdated = append(res.SuppliersUpdated, *resolution.Supplier)
		}
	}
	return resolution.Supplier.ID, nil
}

// resolveOrCreateAccount resolves a hint against the snapshot accounts.
// Under the auto-create policy an unmatched non-empty hint materializes
// a placeholder account pending manual validation; otherwise the miss is
// recorded in the result for the missing-account report.
func (r *Reconciler) resolveOrCreateAccount(ctx context.Context, hint string, doc *domain.DocumentMetadata, next *domain.Snapshot, res *domain.ReconcileResult) (string, error) {
	if hint == "" {
		return "", nil
	}
	if acc := ResolveAccount(hint, next.Accounts, r.cfg); acc != nil {
		return acc.ID, nil
	}

	if !r.policy.AutoCreateAccounts {
		res.UnresolvedHints = append(res.UnresolvedHints, domain.UnresolvedHint{
			DocumentID:  doc.ID,
			Hint:        hint,
			Suggestions: SuggestAccounts(hint, next.Accounts, r.cfg.MaxHintSuggestions),
		})
		return "", nil
	}

	account := PlaceholderAccount(hint, doc.Currency)
	if err := r.store.UpsertAccount(ctx, &account); err != nil {
		return "", err
	}
	next.Accounts = append(next.Accounts, account)
	r.events.OnAccountUpsert(account)
	res.AccountsCreated = append(res.AccountsCreated, account)
	return account.ID, nil
}

// findExistingExpense locates the expense a document maps to. Lookup
// order is kept for backward compatibility with ids minted by earlier
// versions: document link, legacy document-derived id, deterministic
// dedup id, then the dedup key itself.
func findExistingExpense(doc *domain.DocumentMetadata, expenses []domain.Expense) *domain.Expense {
	for i := range expenses {
		if expenses[i].DocumentID != "" && expenses[i].DocumentID == doc.ID {
			return &expenses[i]
		}
	}

	legacyID := LegacyExpensePrefix + doc.ID
	for i := range expenses {
		if expenses[i].ID == legacyID {
			return &expenses[i]
		}
	}

	key := DocumentExpenseKey(doc)
	if key == "" {
		return nil
	}
	id := ExpenseIDFromKey(DocumentExpensePrefix, key)
	for i := range expenses {
		if expenses[i].ID == id {
			return &expenses[i]
		}
	}
	for i := range expenses {
		if expenses[i].DeduplicationKey == key {
			return &expenses[i]
		}
	}
	return nil
}

func findExistingRecurringExpense(cand *domain.RecurringExpenseCandidate, doc *domain.DocumentMetadata, expenses []domain.Expense) *domain.Expense {
	key := RecurringExpenseKey(cand, doc)
	if key == "" {
		return nil
	}
	id := ExpenseIDFromKey(RecurringExpensePrefix, key)
	for i := range expenses {
		if expenses[i].ID == id {
			return &expenses[i]
		}
	}
	for i := range expenses {
		if expenses[i].DeduplicationKey == key {
			return &expenses[i]
		}
	}
	return nil
}

func (r *Reconciler) upsertExpense(ctx context.Context, exp *domain.Expense, isUpdate bool, next *domain.Snapshot, res *domain.ReconcileResult) error {
	if err := r.store.UpsertExpense(ctx, exp); err != nil {
		return err
	}

	replaced := false
	for i := range next.Expenses {
		if next.Expenses[i].ID == exp.ID {
			next.Expenses[i] = *exp
			replaced = true
			break
		}
	}
	if !replaced {
		next.Expenses = append(next.Expenses, *exp)
	}

	r.events.OnExpenseUpsert(*exp)
	if isUpdate {
		res.ExpensesUpdated = append(res.ExpensesUpdated, *exp)
	} else {
		res.ExpensesCreated = append(res.ExpensesCreated, *exp)
	}
	return nil
}

func (r *Reconciler) deriveAndUpsertTimeline(ctx context.Context, exp *domain.Expense, next *domain.Snapshot, res *domain.ReconcileResult) error {
	existing := findExistingTimelineEntry(exp, next.Timeline)
	entry := DeriveTimelineEntryFromExpense(exp, existing)
	if entry == nil || !HasTimelineEntryChanged(existing, entry) {
		return nil
	}

	if err := r.store.UpsertTimelineEntry(ctx, entry); err != nil {
		return err
	}

	replaced := false
	for i := range next.Timeline {
		if next.Timeline[i].ID == entry.ID {
			next.Timeline[i] = *entry
			replaced = true
			break
		}
	}
	if !replaced {
		next.Timeline = append(next.Timeline, *entry)
	}

	r.events.OnTimelineUpsert(*entry)
	res.TimelineUpserts = append(res.TimelineUpserts, *entry)
	return nil
}

func findExistingTimelineEntry(exp *domain.Expense, entries []domain.TimelineEntry) *domain.TimelineEntry {
	id := TimelineEntryID(exp)
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i]
		}
	}
	for i := range entries {
		if entries[i].LinkedExpenseID != "" && entries[i].LinkedExpenseID == exp.ID {
			return &entries[i]
		}
	}
	return nil
}
