package domain

// Document source types.
const (
	SourceInvoice   = "invoice"
	SourceReceipt   = "receipt"
	SourceStatement = "statement"
)

// DocumentMetadata is the structured extraction of one uploaded document.
// All fields except ID, OriginalName, UploadDate and SourceType are
// optional — extraction output is noisy and partial by nature.
type DocumentMetadata struct {
	ID           string `json:"id"`
	OriginalName string `json:"original_name"`
	UploadDate   string `json:"upload_date"`
	SourceType   string `json:"source_type"`

	Amount      *float64 `json:"amount,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
	AccountHint string   `json:"account_hint,omitempty"`
	CompanyName string   `json:"company_name,omitempty"`
	ExpenseType string   `json:"expense_type,omitempty"`
	Notes       string   `json:"notes,omitempty"`

	SupplierID    string `json:"supplier_id,omitempty"`
	SupplierTaxID string `json:"supplier_tax_id,omitempty"`

	// Statement-only fields.
	StatementAccountIBAN string                       `json:"statement_account_iban,omitempty"`
	RecurringExpenses    []RecurringExpenseCandidate  `json:"recurring_expenses,omitempty"`
	StatementSettlements []StatementSettlement        `json:"statement_settlements,omitempty"`
}

// RecurringExpenseCandidate is a repeating charge pattern detected inside
// a bank statement. It is only promoted to an expense once it has been
// observed in at least two distinct months.
type RecurringExpenseCandidate struct {
	Description    string   `json:"description"`
	AverageAmount  float64  `json:"average_amount"`
	Currency       string   `json:"currency,omitempty"`
	AccountHint    string   `json:"account_hint,omitempty"`
	DayOfMonth     *int     `json:"day_of_month,omitempty"`
	MonthsObserved []string `json:"months_observed"`
}

// StatementSettlement is a bank-statement line representing an actual
// payment, to be matched against an open expense.
type StatementSettlement struct {
	Description    string   `json:"description,omitempty"`
	Amount         *float64 `json:"amount,omitempty"`
	SettledOn      string   `json:"settled_on,omitempty"`
	ExpenseIDHint  string   `json:"expense_id_hint,omitempty"`
	DocumentIDHint string   `json:"document_id_hint,omitempty"`
}

// ReconcileResult reports what one document's reconciliation actually
// changed. Entities that resolved to a no-op are not listed.
type ReconcileResult struct {
	DocumentID string `json:"document_id"`

	AccountsCreated  []Account       `json:"accounts_created,omitempty"`
	SuppliersCreated []Supplier      `json:"suppliers_created,omitempty"`
	SuppliersUpdated []Supplier      `json:"suppliers_updated,omitempty"`
	ExpensesCreated  []Expense       `json:"expenses_created,omitempty"`
	ExpensesUpdated  []Expense       `json:"expenses_updated,omitempty"`
	TimelineUpserts  []TimelineEntry `json:"timeline_upserts,omitempty"`

	SettlementsMatched int `json:"settlements_matched"`
	SettlementsSkipped int `json:"settlements_skipped"`

	UnresolvedHints []UnresolvedHint `json:"unresolved_hints,omitempty"`
}

// UnresolvedHint is an account hint no known account matched. Suggestions
// are the closest account names by edit distance, for manual follow-up.
type UnresolvedHint struct {
	DocumentID  string   `json:"document_id"`
	Hint        string   `json:"hint"`
	Suggestions []string `json:"suggestions,omitempty"`
}
