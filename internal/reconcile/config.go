// Package reconcile implements the document-to-entity reconciliation
// engine: resolving noisy account/supplier references, deriving expenses
// and timeline entries from extracted documents, and settling open
// expenses against bank-statement lines.
//
// Everything in this package is snapshot-in/snapshot-out: callers pass
// the current collections and receive updated copies. Persistence and
// event emission happen only through the interfaces the Reconciler is
// constructed with.
package reconcile

// MatchingConfig holds the fuzzy-matching thresholds. The defaults are
// empirically chosen, not derived from a model; they are configuration,
// not constants baked into the match code.
type MatchingConfig struct {
	// MinFuzzyLength is the shortest normalized token allowed to match
	// by substring containment. Shorter tokens ("nb") only match by
	// exact equality.
	MinFuzzyLength int

	// AmountTolerancePercent and AmountToleranceAbsolute bound the
	// settlement amount comparison: a settlement amount matches an
	// expense amount when the difference is within
	// max(absolute, percent * settlement amount).
	AmountTolerancePercent  float64
	AmountToleranceAbsolute float64

	// MinRecurringMonths is how many distinct months a recurring charge
	// must be observed in before it is promoted to an expense.
	MinRecurringMonths int

	// MaxHintSuggestions caps the "did you mean" list attached to
	// unresolved account hints.
	MaxHintSuggestions int
}

// DefaultMatchingConfig returns the tuned defaults.
func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		MinFuzzyLength:          4,
		AmountTolerancePercent:  0.02,
		AmountToleranceAbsolute: 0.5,
		MinRecurringMonths:      2,
		MaxHintSuggestions:      3,
	}
}

// Policy captures behavior switches that changed across the product's
// history and are therefore configurable rather than hard-coded.
type Policy struct {
	// AutoCreateAccounts re-enables the earlier behavior of creating a
	// placeholder account (validation_status = needs-manual-validation)
	// when no known account matches a hint. Off by default: unresolved
	// hints are surfaced in the report instead.
	AutoCreateAccounts bool
}
