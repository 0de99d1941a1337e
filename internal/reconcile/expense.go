package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/docledger/docledger-go/internal/domain"
)

const dateLayout = "2006-01-02"

// DeriveExpenseFromDocument builds or updates the expense for an
// invoice/receipt document. Field precedence: the new extraction wins,
// the existing value fills gaps. Returns nil when there is not enough
// signal to create a brand-new expense (no amount or no explicit due
// date), or the existing expense unchanged when the account cannot be
// resolved — the engine never creates orphan expenses.
//
// ID and DeduplicationKey are fixed at creation and never rewritten.
func DeriveExpenseFromDocument(doc *domain.DocumentMetadata, accounts []domain.Account, existing *domain.Expense, supplierID string, cfg MatchingConfig) *domain.Expense {
	if existing == nil && (doc.Amount == nil || doc.DueDate == "") {
		return nil
	}

	accountID := ""
	if acc := ResolveAccount(doc.AccountHint, accounts, cfg); acc != nil {
		accountID = acc.ID
	} else if existing != nil {
		accountID = existing.AccountID
	}
	if accountID == "" {
		return existing
	}

	next := domain.Expense{
		AccountID: accountID,
		Status:    domain.ExpensePlanned,
	}
	if existing != nil {
		next = *existing
		next.AccountID = accountID
	} else {
		key := DocumentExpenseKey(doc)
		if key == "" {
			return nil
		}
		next.ID = ExpenseIDFromKey(DocumentExpensePrefix, key)
		next.DeduplicationKey = key
		next.DocumentID = doc.ID
	}
	if next.DocumentID == "" {
		next.DocumentID = doc.ID
	}

	if doc.Amount != nil {
		next.Amount = *doc.Amount
	}
	if doc.Currency != "" {
		next.Currency = doc.Currency
	}
	if doc.DueDate != "" {
		next.DueDate = doc.DueDate
	} else if next.DueDate == "" {
		// Upload date is only an acceptable fallback for edits of an
		// existing expense; creation requires an explicit due date.
		next.DueDate = doc.UploadDate
	}
	if desc := documentDescription(doc); desc != "" {
		next.Description = desc
	}
	if doc.ExpenseType != "" {
		next.Category = doc.ExpenseType
	}
	if supplierID != "" {
		next.SupplierID = supplierID
	}

	return &next
}

// BuildRecurringExpense builds or updates the expense for a recurring
// charge detected in a bank statement. Candidates observed in fewer than
// cfg.MinRecurringMonths distinct months are noise and return the
// existing expense (or nil) unchanged, as do candidates with an empty
// description or an unresolved account.
func BuildRecurringExpense(cand *domain.RecurringExpenseCandidate, doc *domain.DocumentMetadata, accountID, supplierID string, existing *domain.Expense, cfg MatchingConfig) *domain.Expense {
	if cand.Description == "" || len(cand.MonthsObserved) < cfg.MinRecurringMonths {
		return existing
	}
	if accountID == "" {
		return existing
	}

	existingDueDate := ""
	next := domain.Expense{
		// Auto-detected, pending user confirmation.
		Status: domain.ExpenseUnderReview,
	}
	if existing != nil {
		next = *existing
		existingDueDate = existing.DueDate
	} else {
		key := RecurringExpenseKey(cand, doc)
		next.ID = ExpenseIDFromKey(RecurringExpensePrefix, key)
		next.DeduplicationKey = key
	}

	next.AccountID = accountID
	next.Description = cand.Description
	next.Amount = cand.AverageAmount
	if cand.Currency != "" {
		next.Currency = cand.Currency
	} else if next.Currency == "" {
		next.Currency = doc.Currency
	}
	next.DueDate = ComputeNextDueDate(cand.DayOfMonth, doc.UploadDate, existingDueDate)
	next.Recurrence = domain.RecurrenceMonthly
	next.Fixed = true
	if supplierID != "" {
		next.SupplierID = supplierID
	}

	return &next
}

// ComputeNextDueDate picks the next due date for a recurring charge. An
// existing due date is kept as-is. Otherwise the charge day (candidate's
// day-of-month, defaulting to the reference date's day) is clamped to
// [1,28] — so February and 30-day months can never produce an invalid
// date — placed in the reference month, and rolled one month forward
// when it already passed relative to the reference date.
func ComputeNextDueDate(dayOfMonth *int, referenceDate, existingDueDate string) string {
	if existingDueDate != "" {
		return existingDueDate
	}

	ref, err := time.Parse(dateLayout, referenceDate)
	if err != nil {
		return ""
	}

	day := ref.Day()
	if dayOfMonth != nil {
		day = *dayOfMonth
	}
	if day < 1 {
		day = 1
	}
	if day > 28 {
		day = 28
	}

	due := time.Date(ref.Year(), ref.Month(), day, 0, 0, 0, 0, time.UTC)
	if due.Before(ref.Truncate(24 * time.Hour)) {
		due = due.AddDate(0, 1, 0)
	}
	return due.Format(dateLayout)
}

// HasExpenseChanged reports whether any mutable expense field differs.
// A missing existing expense always counts as changed. This gate is what
// keeps redundant store writes and redundant timeline derivation out.
func HasExpenseChanged(existing *domain.Expense, next *domain.Expense) bool {
	if existing == nil {
		return true
	}
	return existing.AccountID != next.AccountID ||
		existing.Description != next.Description ||
		existing.Category != next.Category ||
		existing.Amount != next.Amount ||
		existing.Currency != next.Currency ||
		existing.DueDate != next.DueDate ||
		existing.Recurrence != next.Recurrence ||
		existing.Fixed != next.Fixed ||
		existing.Status != next.Status
}

// amountApproximatelyEquals compares an expense amount to a settlement
// amount within max(absolute, percent * settlement) tolerance. Decimal
// arithmetic keeps the comparison free of float accumulation noise.
func amountApproximatelyEquals(expenseAmount, settlementAmount float64, cfg MatchingConfig) bool {
	a := decimal.NewFromFloat(expenseAmount)
	b := decimal.NewFromFloat(settlementAmount)

	tolerance := decimal.NewFromFloat(cfg.AmountToleranceAbsolute)
	if pct := b.Abs().Mul(decimal.NewFromFloat(cfg.AmountTolerancePercent)); pct.GreaterThan(tolerance) {
		tolerance = pct
	}
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

func documentDescription(doc *domain.DocumentMetadata) string {
	if doc.CompanyName != "" {
		return doc.CompanyName
	}
	return doc.OriginalName
}
