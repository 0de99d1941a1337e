// Package domain holds the core entities of the document ledger:
// accounts, suppliers, expenses and the unified timeline.
package domain

// Account validation statuses.
const (
	AccountValidated       = "validated"
	AccountNeedsValidation = "needs-manual-validation"
)

// Expense statuses.
const (
	ExpensePlanned     = "planned"
	ExpensePaid        = "paid"
	ExpenseUnderReview = "under-review"
)

// Timeline entry types.
const (
	TimelineExpense  = "expense"
	TimelineDueDate  = "due-date"
	TimelineTransfer = "transfer"
)

// RecurrenceMonthly is the only recurrence the statement analyzer emits.
const RecurrenceMonthly = "monthly"

// Account is a user bank account. Accounts are set up manually; the
// reconciliation engine only resolves against them (unless the
// auto-create policy is enabled, in which case placeholders are tagged
// AccountNeedsValidation).
type Account struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Type             string            `json:"type,omitempty"`
	Balance          float64           `json:"balance"`
	Currency         string            `json:"currency,omitempty"`
	ValidationStatus string            `json:"validation_status,omitempty"`
	IBAN             string            `json:"iban,omitempty"`
	AccountNumber    string            `json:"account_number,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// SupplierMetadata is merged (union, never overwritten) on every match.
type SupplierMetadata struct {
	TaxID        string   `json:"tax_id,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
	AccountHints []string `json:"account_hints,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

// Supplier is a company that bills the user. A supplier may be a weak
// pointer to a canonical record via ReferenceToID; resolution follows the
// pointer before merging metadata.
type Supplier struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	ReferenceToID string            `json:"reference_to_id,omitempty"`
	Metadata      *SupplierMetadata `json:"metadata,omitempty"`
}

// Expense is a single bill, planned or paid. ID and DeduplicationKey are
// fixed at creation and never change, which is what makes repeat uploads
// of the same bill update in place instead of duplicating.
//
// Dates are ISO "2006-01-02" strings, as produced by the extraction
// service.
type Expense struct {
	ID               string  `json:"id"`
	DocumentID       string  `json:"document_id,omitempty"`
	AccountID        string  `json:"account_id"`
	Description      string  `json:"description"`
	Category         string  `json:"category,omitempty"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency,omitempty"`
	DueDate          string  `json:"due_date"`
	Recurrence       string  `json:"recurrence,omitempty"`
	Fixed            bool    `json:"fixed"`
	Status           string  `json:"status"`
	SupplierID       string  `json:"supplier_id,omitempty"`
	DeduplicationKey string  `json:"deduplication_key,omitempty"`
	PaidAt           string  `json:"paid_at,omitempty"`
}

// TimelineEntry is one event on the unified financial timeline, derived
// 1:1 from an expense's due date.
type TimelineEntry struct {
	ID               string  `json:"id"`
	Date             string  `json:"date"`
	Type             string  `json:"type"`
	Description      string  `json:"description"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency,omitempty"`
	LinkedExpenseID  string  `json:"linked_expense_id,omitempty"`
	LinkedTransferID string  `json:"linked_transfer_id,omitempty"`
}

// Snapshot is the full in-memory state the reconciler operates on.
// The reconciler never mutates a snapshot in place; it returns a new one.
type Snapshot struct {
	Accounts  []Account
	Suppliers []Supplier
	Expenses  []Expense
	Timeline  []TimelineEntry
}

// Clone returns a shallow-copied snapshot whose slices are safe to append
// to without touching the original.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Accounts:  append([]Account(nil), s.Accounts...),
		Suppliers: append([]Supplier(nil), s.Suppliers...),
		Expenses:  append([]Expense(nil), s.Expenses...),
		Timeline:  append([]TimelineEntry(nil), s.Timeline...),
	}
}

// ReconcileStats aggregates reconciliation counters for the metrics endpoint.
type ReconcileStats struct {
	DocumentsProcessed int64  `json:"documents_processed"`
	DocumentsFailed    int64  `json:"documents_failed"`
	ExpensesCreated    int64  `json:"expenses_created"`
	ExpensesUpdated    int64  `json:"expenses_updated"`
	SuppliersCreated   int64  `json:"suppliers_created"`
	SuppliersMerged    int64  `json:"suppliers_merged"`
	SettlementsMatched int64  `json:"settlements_matched"`
	SettlementsSkipped int64  `json:"settlements_skipped"`
	UnresolvedHints    int64  `json:"unresolved_hints"`
	Period             string `json:"period"`
}
