package reconcile

import (
	"github.com/docledger/docledger-go/internal/domain"
)

// DeriveTimelineEntryFromExpense derives the timeline entry for an
// expense's due date. Requires a due date; without one the existing
// entry (or nil) is returned unchanged. The entry id is stable across
// edits so repeated derivation upserts the same entry.
func DeriveTimelineEntryFromExpense(exp *domain.Expense, existing *domain.TimelineEntry) *domain.TimelineEntry {
	if exp.DueDate == "" {
		return existing
	}

	next := domain.TimelineEntry{
		ID:              TimelineEntryID(exp),
		Date:            exp.DueDate,
		Type:            domain.TimelineExpense,
		Description:     exp.Description,
		Amount:          exp.Amount,
		Currency:        exp.Currency,
		LinkedExpenseID: exp.ID,
	}
	if existing != nil {
		next.ID = existing.ID
		next.LinkedTransferID = existing.LinkedTransferID
	}
	return &next
}

// HasTimelineEntryChanged mirrors HasExpenseChanged for timeline
// entries. A missing existing entry always counts as changed.
func HasTimelineEntryChanged(existing *domain.TimelineEntry, next *domain.TimelineEntry) bool {
	if existing == nil {
		return true
	}
	return existing.Date != next.Date ||
		existing.Description != next.Description ||
		existing.Amount != next.Amount ||
		existing.Currency != next.Currency ||
		existing.LinkedExpenseID != next.LinkedExpenseID
}
