// Package normalize canonicalizes human-entered identifiers (account
// hints, supplier names, alias lists) for tolerant comparison.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, drops combining marks (diacritics) and
// recomposes. "Ginásio" -> "Ginasio".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Text canonicalizes a string for fuzzy comparison: strips diacritics,
// lowercases and removes everything that is not a letter or digit.
// Pure and total — it never fails, it just returns "" for empty input.
func Text(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		// transform only fails on malformed UTF-8; fall back to the raw
		// string so comparison still degrades gracefully.
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Equal reports whether two strings are equal after normalization.
func Equal(a, b string) bool {
	return Text(a) == Text(b)
}
