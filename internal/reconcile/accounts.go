package reconcile

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/docledger/docledger-go/internal/domain"
	"github.com/docledger/docledger-go/internal/normalize"
)

// ResolveAccount matches a free-text account hint against the known
// accounts. It never creates accounts. Returns nil when the hint is
// empty or nothing matches.
//
// A hint matches an account when any of the account's candidate strings
// (id, name, IBAN, account number, identifier-like metadata values)
// equals the normalized hint, or when one contains the other and the
// contained string is at least cfg.MinFuzzyLength characters long. The
// floor keeps short tokens like "nb" from matching "Banco NB Premium"
// by substring alone; exact equality matches at any length.
func ResolveAccount(hint string, accounts []domain.Account, cfg MatchingConfig) *domain.Account {
	h := normalize.Text(hint)
	if h == "" {
		return nil
	}

	for i := range accounts {
		for _, raw := range accountCandidates(&accounts[i]) {
			c := normalize.Text(raw)
			if c == "" {
				continue
			}
			if c == h {
				return &accounts[i]
			}
			if len(h) >= cfg.MinFuzzyLength && strings.Contains(c, h) {
				return &accounts[i]
			}
			if len(c) >= cfg.MinFuzzyLength && strings.Contains(h, c) {
				return &accounts[i]
			}
		}
	}
	return nil
}

// accountCandidates collects every string an account can be referred to
// by: id, name, declared identifier fields, and identifier-like values
// from the free-form metadata bag.
func accountCandidates(a *domain.Account) []string {
	out := []string{a.ID, a.Name, a.IBAN, a.AccountNumber}
	for k, v := range a.Metadata {
		nk := normalize.Text(k)
		if strings.Contains(nk, "iban") || strings.Contains(nk, "number") || strings.Contains(nk, "account") {
			out = append(out, v)
		}
	}
	return out
}

// PlaceholderAccount builds the auto-created account the legacy policy
// used when a hint resolved to nothing. Its id is derived from the
// normalized hint so repeated uploads materialize the same placeholder.
func PlaceholderAccount(hint, currency string) domain.Account {
	slug := normalize.Text(hint)
	return domain.Account{
		ID:               "acc-" + uuid.NewSHA1(idNamespace, []byte("account|"+slug)).String(),
		Name:             strings.TrimSpace(hint),
		Currency:         currency,
		ValidationStatus: domain.AccountNeedsValidation,
	}
}

// SuggestAccounts ranks account names by edit distance to an unresolved
// hint. Advisory only — it feeds the missing-account report, never the
// match decision.
func SuggestAccounts(hint string, accounts []domain.Account, limit int) []string {
	h := normalize.Text(hint)
	if h == "" || limit <= 0 {
		return nil
	}

	type scored struct {
		name string
		dist int
	}
	ranked := make([]scored, 0, len(accounts))
	for i := range accounts {
		n := normalize.Text(accounts[i].Name)
		if n == "" {
			continue
		}
		ranked = append(ranked, scored{accounts[i].Name, levenshtein.ComputeDistance(h, n)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.name
	}
	return out
}
