package reconcile

import (
	"strings"

	"github.com/docledger/docledger-go/internal/domain"
	"github.com/docledger/docledger-go/internal/normalize"
)

// SettlementOutcome is the result of applying one statement's settlement
// lines. Expenses is the updated collection; Settled lists only the
// expenses that actually flipped to paid, in match order.
type SettlementOutcome struct {
	Expenses []domain.Expense
	Settled  []domain.Expense
	Matched  int
	Skipped  int
}

// SettleExpensesFromStatement matches bank-statement settlement lines
// against open expenses and marks matches paid. Stages, strict order,
// first hit wins:
//
//  1. exact expense id hint
//  2. exact document id hint
//  3. description containment on the statement's account, amount
//     within tolerance when the line carries one
//  4. amount-only within tolerance on the statement's account
//
// A line that matches nothing is skipped silently — statement noise is
// expected and must not halt processing. Already-paid expenses are
// never candidates and never mutated, which makes replaying the same
// statement a no-op. A hint match pointing at an expense on a different
// account is rejected rather than settled cross-account.
func SettleExpensesFromStatement(settlements []domain.StatementSettlement, accountID string, doc *domain.DocumentMetadata, expenses []domain.Expense, cfg MatchingConfig) SettlementOutcome {
	out := SettlementOutcome{Expenses: append([]domain.Expense(nil), expenses...)}

	for i := range settlements {
		idx := matchSettlement(&settlements[i], accountID, out.Expenses, cfg)
		if idx < 0 {
			out.Skipped++
			continue
		}

		exp := &out.Expenses[idx]
		exp.Status = domain.ExpensePaid
		switch {
		case settlements[i].SettledOn != "":
			exp.PaidAt = settlements[i].SettledOn
		case exp.PaidAt != "":
			// keep
		default:
			exp.PaidAt = doc.UploadDate
		}
		out.Settled = append(out.Settled, *exp)
		out.Matched++
	}
	return out
}

// matchSettlement returns the index of the expense the settlement line
// pays, or -1. Only open (not yet paid) expenses are candidates.
func matchSettlement(s *domain.StatementSettlement, accountID string, expenses []domain.Expense, cfg MatchingConfig) int {
	// Stage 1: expense id hint.
	if s.ExpenseIDHint != "" {
		for i := range expenses {
			if expenses[i].ID == s.ExpenseIDHint {
				return acceptSettlement(&expenses[i], accountID, i)
			}
		}
	}

	// Stage 2: document id hint.
	if s.DocumentIDHint != "" {
		for i := range expenses {
			if expenses[i].DocumentID == s.DocumentIDHint {
				return acceptSettlement(&expenses[i], accountID, i)
			}
		}
	}

	// Stages 3 and 4 only ever look at the statement's own account.
	desc := normalize.Text(s.Description)
	if desc != "" {
		for i := range expenses {
			exp := &expenses[i]
			if exp.Status == domain.ExpensePaid || exp.AccountID != accountID {
				continue
			}
			expDesc := normalize.Text(exp.Description)
			if expDesc == "" {
				continue
			}
			if !strings.Contains(expDesc, desc) && !strings.Contains(desc, expDesc) {
				continue
			}
			if s.Amount != nil && !amountApproximatelyEquals(exp.Amount, *s.Amount, cfg) {
				continue
			}
			return i
		}
	}

	if s.Amount != nil {
		for i := range expenses {
			exp := &expenses[i]
			if exp.Status == domain.ExpensePaid || exp.AccountID != accountID {
				continue
			}
			if amountApproximatelyEquals(exp.Amount, *s.Amount, cfg) {
				return i
			}
		}
	}

	return -1
}

// acceptSettlement validates a hint-stage match: reject cross-account
// settlements and expenses that are already paid.
func acceptSettlement(exp *domain.Expense, accountID string, idx int) int {
	if exp.Status == domain.ExpensePaid {
		return -1
	}
	if accountID != "" && exp.AccountID != accountID {
		return -1
	}
	return idx
}
