package reconcile

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/docledger/docledger-go/internal/domain"
	"github.com/docledger/docledger-go/internal/normalize"
)

// SupplierResolution is the outcome of resolving a document against the
// supplier set. Suppliers is the (possibly) updated collection; the
// original slice is never mutated.
type SupplierResolution struct {
	Supplier  *domain.Supplier
	Suppliers []domain.Supplier
	Created   bool
	Updated   bool
}

// ResolveSupplier matches or creates a supplier for a document.
//
// Match priority, first hit wins: explicit supplier id on the document,
// then canonical-name equality (normalized), then alias equality. A
// matched supplier that is itself a reference (ReferenceToID set) is
// followed to the canonical record before merging. On match the
// document's metadata is merged in (union, existing values win); the
// supplier is only rewritten when the merge actually changed something.
//
// With no match and no company name or supplier id on the document there
// is no supplier to attach and Supplier is nil. Otherwise a new supplier
// is created with a deterministic slug id, numerically suffixed on
// collision.
func ResolveSupplier(doc *domain.DocumentMetadata, suppliers []domain.Supplier) SupplierResolution {
	if match := findSupplier(doc, suppliers); match != nil {
		canonical := followReference(match, suppliers)
		return mergeIntoSupplier(canonical, doc, suppliers)
	}

	if doc.CompanyName == "" && doc.SupplierID == "" {
		return SupplierResolution{Suppliers: suppliers}
	}

	name := doc.CompanyName
	if name == "" {
		name = doc.OriginalName
	}
	created := domain.Supplier{
		ID:       newSupplierID(name, suppliers),
		Name:     strings.TrimSpace(name),
		Metadata: supplierMetadataFromDocument(doc),
	}
	out := append(append([]domain.Supplier(nil), suppliers...), created)
	return SupplierResolution{Supplier: &out[len(out)-1], Suppliers: out, Created: true}
}

// ResolveSupplierForRecurringCandidate resolves a statement recurring
// charge to a supplier purely by description text against supplier
// names. Unmatched descriptions drive the same create/merge logic
// through a synthetic name-only document.
func ResolveSupplierForRecurringCandidate(cand *domain.RecurringExpenseCandidate, suppliers []domain.Supplier) SupplierResolution {
	desc := normalize.Text(cand.Description)
	if desc == "" {
		return SupplierResolution{Suppliers: suppliers}
	}

	synthetic := &domain.DocumentMetadata{CompanyName: cand.Description}

	for i := range suppliers {
		if normalize.Text(suppliers[i].Name) == desc {
			canonical := followReference(&suppliers[i], suppliers)
			return mergeIntoSupplier(canonical, synthetic, suppliers)
		}
	}
	return ResolveSupplier(synthetic, suppliers)
}

func findSupplier(doc *domain.DocumentMetadata, suppliers []domain.Supplier) *domain.Supplier {
	if doc.SupplierID != "" {
		for i := range suppliers {
			if suppliers[i].ID == doc.SupplierID {
				return &suppliers[i]
			}
		}
	}

	name := normalize.Text(doc.CompanyName)
	if name == "" {
		return nil
	}
	for i := range suppliers {
		if normalize.Text(suppliers[i].Name) == name {
			return &suppliers[i]
		}
	}
	for i := range suppliers {
		if suppliers[i].Metadata == nil {
			continue
		}
		for _, alias := range suppliers[i].Metadata.Aliases {
			if normalize.Text(alias) == name {
				return &suppliers[i]
			}
		}
	}
	return nil
}

// followReference resolves the weak-pointer chain to the canonical
// supplier. The visited set guards against reference cycles in bad data.
func followReference(s *domain.Supplier, suppliers []domain.Supplier) *domain.Supplier {
	visited := map[string]bool{s.ID: true}
	current := s
	for current.ReferenceToID != "" {
		var next *domain.Supplier
		for i := range suppliers {
			if suppliers[i].ID == current.ReferenceToID {
				next = &suppliers[i]
				break
			}
		}
		if next == nil || visited[next.ID] {
			break
		}
		visited[next.ID] = true
		current = next
	}
	return current
}

func mergeIntoSupplier(target *domain.Supplier, doc *domain.DocumentMetadata, suppliers []domain.Supplier) SupplierResolution {
	merged := mergeSupplierMetadata(target.Metadata, doc)
	if reflect.DeepEqual(merged, target.Metadata) {
		return SupplierResolution{Supplier: target, Suppliers: suppliers}
	}

	out := append([]domain.Supplier(nil), suppliers...)
	for i := range out {
		if out[i].ID == target.ID {
			out[i].Metadata = merged
			return SupplierResolution{Supplier: &out[i], Suppliers: out, Updated: true}
		}
	}
	// Target not in the slice should not happen; treat as no-op.
	return SupplierResolution{Supplier: target, Suppliers: suppliers}
}

// mergeSupplierMetadata unions document metadata into the existing bag.
// Existing values always win; the document only fills gaps and extends
// the account-hint set. Never mutates the existing metadata.
func mergeSupplierMetadata(existing *domain.SupplierMetadata, doc *domain.DocumentMetadata) *domain.SupplierMetadata {
	merged := domain.SupplierMetadata{}
	if existing != nil {
		merged.TaxID = existing.TaxID
		merged.Notes = existing.Notes
		merged.Aliases = append([]string(nil), existing.Aliases...)
		merged.AccountHints = append([]string(nil), existing.AccountHints...)
	}

	if merged.TaxID == "" {
		merged.TaxID = doc.SupplierTaxID
	}
	if merged.Notes == "" {
		merged.Notes = doc.Notes
	}
	merged.AccountHints = appendHint(merged.AccountHints, doc.AccountHint)
	merged.AccountHints = appendHint(merged.AccountHints, doc.StatementAccountIBAN)

	if merged.TaxID == "" && merged.Notes == "" && len(merged.Aliases) == 0 && len(merged.AccountHints) == 0 {
		return existing
	}
	return &merged
}

// appendHint adds a hint unless an equivalent one (by normalization) is
// already present.
func appendHint(hints []string, hint string) []string {
	h := normalize.Text(hint)
	if h == "" {
		return hints
	}
	for _, existing := range hints {
		if normalize.Text(existing) == h {
			return hints
		}
	}
	return append(hints, strings.TrimSpace(hint))
}

func supplierMetadataFromDocument(doc *domain.DocumentMetadata) *domain.SupplierMetadata {
	return mergeSupplierMetadata(nil, doc)
}

// newSupplierID derives a readable deterministic id from the normalized
// name, suffixing a counter when the slug is already taken.
func newSupplierID(name string, suppliers []domain.Supplier) string {
	slug := normalize.Text(name)
	if slug == "" {
		slug = "supplier"
	}

	taken := make(map[string]bool, len(suppliers))
	for i := range suppliers {
		taken[suppliers[i].ID] = true
	}

	id := "sup-" + slug
	for n := 2; taken[id]; n++ {
		id = fmt.Sprintf("sup-%s-%d", slug, n)
	}
	return id
}
