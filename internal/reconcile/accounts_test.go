package reconcile

import (
	"testing"

	"github.com/docledger/docledger-go/internal/domain"
)

func testAccounts() []domain.Account {
	return []domain.Account{
		{ID: "acc-1", Name: "Conta Corrente", IBAN: "PT50000201231234567890154"},
		{ID: "acc-2", Name: "Banco NB Premium"},
		{ID: "acc-3", Name: "Poupança", Metadata: map[string]string{"account_number": "998877"}},
	}
}

func TestResolveAccount_ExactName(t *testing.T) {
	acc := ResolveAccount("conta   corrente", testAccounts(), DefaultMatchingConfig())
	if acc == nil || acc.ID != "acc-1" {
		t.Fatalf("expected acc-1, got %+v", acc)
	}
}

func TestResolveAccount_IBAN(t *testing.T) {
	acc := ResolveAccount("PT50 0002 0123 1234 5678 9015 4", testAccounts(), DefaultMatchingConfig())
	if acc == nil || acc.ID != "acc-1" {
		t.Fatalf("expected acc-1 by IBAN, got %+v", acc)
	}
}

func TestResolveAccount_MetadataNumber(t *testing.T) {
	acc := ResolveAccount("998877", testAccounts(), DefaultMatchingConfig())
	if acc == nil || acc.ID != "acc-3" {
		t.Fatalf("expected acc-3 by metadata account number, got %+v", acc)
	}
}

func TestResolveAccount_Containment(t *testing.T) {
	acc := ResolveAccount("corrente", testAccounts(), DefaultMatchingConfig())
	if acc == nil || acc.ID != "acc-1" {
		t.Fatalf("expected acc-1 by containment, got %+v", acc)
	}
}

// A hint shorter than the fuzzy floor must not match by substring, even
// though it occurs inside a longer account name.
func TestResolveAccount_ShortHintNoSubstringMatch(t *testing.T) {
	acc := ResolveAccount("nb", testAccounts(), DefaultMatchingConfig())
	if acc != nil {
		t.Fatalf("hint 'nb' must not match by containment, got %+v", acc)
	}
}

// Exact equality still matches below the floor.
func TestResolveAccount_ShortExactMatch(t *testing.T) {
	accounts := []domain.Account{{ID: "acc-9", Name: "NB"}}
	acc := ResolveAccount("nb", accounts, DefaultMatchingConfig())
	if acc == nil || acc.ID != "acc-9" {
		t.Fatalf("expected exact short match, got %+v", acc)
	}
}

func TestResolveAccount_NoHint(t *testing.T) {
	if acc := ResolveAccount("", testAccounts(), DefaultMatchingConfig()); acc != nil {
		t.Fatalf("empty hint must not resolve, got %+v", acc)
	}
}

func TestPlaceholderAccount_Deterministic(t *testing.T) {
	a := PlaceholderAccount("Conta Ordenado", "EUR")
	b := PlaceholderAccount("  conta ORDENADO ", "EUR")
	if a.ID != b.ID {
		t.Errorf("placeholder ids differ for equivalent hints: %s vs %s", a.ID, b.ID)
	}
	if a.ValidationStatus != domain.AccountNeedsValidation {
		t.Errorf("expected %s, got %s", domain.AccountNeedsValidation, a.ValidationStatus)
	}
}

func TestSuggestAccounts_RanksClosest(t *testing.T) {
	got := SuggestAccounts("Conta Corente", testAccounts(), 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0] != "Conta Corrente" {
		t.Errorf("expected 'Conta Corrente' ranked first, got %q", got[0])
	}
}
