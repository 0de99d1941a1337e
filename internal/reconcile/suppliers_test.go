package reconcile

import (
	"testing"

	"github.com/docledger/docledger-go/internal/domain"
)

func TestResolveSupplier_CreatesWithSlugID(t *testing.T) {
	doc := &domain.DocumentMetadata{CompanyName: "Energia Lisboa", SupplierTaxID: "PT501234567", AccountHint: "Conta Corrente"}
	res := ResolveSupplier(doc, nil)

	if !res.Created || res.Supplier == nil {
		t.Fatalf("expected creation, got %+v", res)
	}
	if res.Supplier.ID != "sup-energialisboa" {
		t.Errorf("id = %s, want sup-energialisboa", res.Supplier.ID)
	}
	if res.Supplier.Metadata == nil || res.Supplier.Metadata.TaxID != "PT501234567" {
		t.Errorf("tax id not carried into metadata: %+v", res.Supplier.Metadata)
	}
	if len(res.Supplier.Metadata.AccountHints) != 1 {
		t.Errorf("account hint not recorded: %+v", res.Supplier.Metadata)
	}
}

func TestResolveSupplier_SlugCollisionSuffix(t *testing.T) {
	existing := []domain.Supplier{{ID: "sup-energialisboa", Name: "Energia Lisboa Antiga"}}
	doc := &domain.DocumentMetadata{CompanyName: "Energia, Lisboa!"}
	res := ResolveSupplier(doc, existing)

	if !res.Created {
		t.Fatal("expected creation")
	}
	if res.Supplier.ID != "sup-energialisboa-2" {
		t.Errorf("id = %s, want numeric suffix on collision", res.Supplier.ID)
	}
}

func TestResolveSupplier_MatchByNameMergesMetadata(t *testing.T) {
	existing := []domain.Supplier{{ID: "sup-1", Name: "Energia Lisboa", Metadata: &domain.SupplierMetadata{TaxID: "PT501234567"}}}
	doc := &domain.DocumentMetadata{CompanyName: "ENERGIA LISBOA", SupplierTaxID: "PT999999999", AccountHint: "Conta Corrente"}

	res := ResolveSupplier(doc, existing)
	if res.Created || !res.Updated {
		t.Fatalf("expected metadata update, got %+v", res)
	}
	// Existing tax id wins; the hint is new and gets unioned in.
	if res.Supplier.Metadata.TaxID != "PT501234567" {
		t.Errorf("existing tax id must win, got %s", res.Supplier.Metadata.TaxID)
	}
	if len(res.Supplier.Metadata.AccountHints) != 1 || res.Supplier.Metadata.AccountHints[0] != "Conta Corrente" {
		t.Errorf("hint not merged: %+v", res.Supplier.Metadata.AccountHints)
	}
	if existing[0].Metadata.AccountHints != nil {
		t.Error("input supplier slice was mutated")
	}
}

// Merging the same document twice must not report an update twice.
func TestResolveSupplier_MergeIdempotent(t *testing.T) {
	doc := &domain.DocumentMetadata{CompanyName: "Energia Lisboa", AccountHint: "Conta Corrente"}
	first := ResolveSupplier(doc, nil)
	if !first.Created {
		t.Fatal("expected creation")
	}

	second := ResolveSupplier(doc, first.Suppliers)
	if second.Created || second.Updated {
		t.Fatalf("second resolution must be a no-op, got %+v", second)
	}
	if second.Supplier.ID != first.Supplier.ID {
		t.Errorf("resolved to a different supplier: %s vs %s", first.Supplier.ID, second.Supplier.ID)
	}
}

func TestResolveSupplier_ByExplicitID(t *testing.T) {
	existing := []domain.Supplier{{ID: "sup-1", Name: "EDP Comercial"}}
	doc := &domain.DocumentMetadata{SupplierID: "sup-1"}
	res := ResolveSupplier(doc, existing)

	if res.Supplier == nil || res.Supplier.ID != "sup-1" {
		t.Fatalf("expected id match, got %+v", res.Supplier)
	}
	if res.Created {
		t.Error("id match must not create")
	}
}

func TestResolveSupplier_FollowsReference(t *testing.T) {
	existing := []domain.Supplier{
		{ID: "sup-alias", Name: "EDP", ReferenceToID: "sup-canonical"},
		{ID: "sup-canonical", Name: "EDP Comercial"},
	}
	doc := &domain.DocumentMetadata{CompanyName: "EDP", AccountHint: "Conta Corrente"}

	res := ResolveSupplier(doc, existing)
	if res.Supplier == nil || res.Supplier.ID != "sup-canonical" {
		t.Fatalf("expected canonical supplier, got %+v", res.Supplier)
	}
	if !res.Updated {
		t.Error("merge must land on the canonical record")
	}
}

func TestResolveSupplier_ReferenceCycleGuard(t *testing.T) {
	existing := []domain.Supplier{
		{ID: "sup-a", Name: "Alpha", ReferenceToID: "sup-b"},
		{ID: "sup-b", Name: "Beta", ReferenceToID: "sup-a"},
	}
	doc := &domain.DocumentMetadata{CompanyName: "Alpha"}

	res := ResolveSupplier(doc, existing)
	if res.Supplier == nil {
		t.Fatal("cycle must still resolve to some record")
	}
}

func TestResolveSupplier_MatchByAlias(t *testing.T) {
	existing := []domain.Supplier{{ID: "sup-1", Name: "EDP Comercial", Metadata: &domain.SupplierMetadata{Aliases: []string{"EDP"}}}}
	doc := &domain.DocumentMetadata{CompanyName: "edp"}

	res := ResolveSupplier(doc, existing)
	if res.Supplier == nil || res.Supplier.ID != "sup-1" {
		t.Fatalf("expected alias match, got %+v", res.Supplier)
	}
}

func TestResolveSupplier_NoSignalNoSupplier(t *testing.T) {
	doc := &domain.DocumentMetadata{OriginalName: "scan001.pdf"}
	res := ResolveSupplier(doc, nil)
	if res.Supplier != nil || res.Created {
		t.Fatalf("no company name and no id must not fabricate a supplier, got %+v", res.Supplier)
	}
}

func TestResolveSupplierForRecurringCandidate(t *testing.T) {
	existing := []domain.Supplier{{ID: "sup-1", Name: "Netflix"}}

	matched := ResolveSupplierForRecurringCandidate(&domain.RecurringExpenseCandidate{Description: "NETFLIX"}, existing)
	if matched.Supplier == nil || matched.Supplier.ID != "sup-1" {
		t.Fatalf("expected description match, got %+v", matched.Supplier)
	}

	created := ResolveSupplierForRecurringCandidate(&domain.RecurringExpenseCandidate{Description: "Spotify"}, existing)
	if !created.Created || created.Supplier.Name != "Spotify" {
		t.Fatalf("expected creation from description, got %+v", created.Supplier)
	}
}
