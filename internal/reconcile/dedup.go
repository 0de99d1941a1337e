package reconcile

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/docledger/docledger-go/internal/domain"
	"github.com/docledger/docledger-go/internal/normalize"
)

// idNamespace seeds the SHA-1 UUID derivation for content-addressed ids.
// It must never change: ids derived from it are persisted.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("docledger.ledger"))

// Expense id prefixes. "exp-" for document-derived expenses, "rec-" for
// statement recurring-pattern expenses. The "expense-" form is the
// legacy scheme that derived ids straight from document ids; it is only
// consulted when looking up existing expenses.
const (
	DocumentExpensePrefix  = "exp-"
	RecurringExpensePrefix = "rec-"
	LegacyExpensePrefix    = "expense-"
)

// DocumentExpenseKey computes the stable deduplication key for an
// invoice/receipt document: normalized company name (original filename
// when no company was extracted) plus the amount serialized to two
// decimal places. Whitespace, case and diacritic variation in the name
// does not change the key. Returns "" when the document has no amount —
// not enough signal to identify a bill.
func DocumentExpenseKey(doc *domain.DocumentMetadata) string {
	if doc.Amount == nil {
		return ""
	}
	name := doc.CompanyName
	if name == "" {
		name = doc.OriginalName
	}
	return normalize.Text(name) + "|" + decimal.NewFromFloat(*doc.Amount).StringFixed(2)
}

// RecurringExpenseKey computes the stable key for a recurring-charge
// candidate: normalized description plus the normalized account
// reference (candidate hint, falling back to the statement's IBAN).
// Equivalent-but-distinct candidate values yield the same key.
func RecurringExpenseKey(cand *domain.RecurringExpenseCandidate, doc *domain.DocumentMetadata) string {
	if cand.Description == "" {
		return ""
	}
	ref := cand.AccountHint
	if ref == "" {
		ref = doc.StatementAccountIBAN
	}
	return normalize.Text(cand.Description) + "|" + normalize.Text(ref)
}

// ExpenseIDFromKey derives a deterministic entity id from a dedup key.
// Same key, same id — across runs and processes. This determinism is the
// only defense against duplicate expenses from repeat uploads.
func ExpenseIDFromKey(prefix, key string) string {
	if key == "" {
		return ""
	}
	return prefix + uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// TimelineEntryID derives the timeline entry id for an expense, stable
// across edits so repeated derivation targets the same entry. Document
// id preferred, expense id as fallback.
func TimelineEntryID(exp *domain.Expense) string {
	base := exp.DocumentID
	if base == "" {
		base = exp.ID
	}
	return "tl-" + uuid.NewSHA1(idNamespace, []byte("timeline|"+base)).String()
}
