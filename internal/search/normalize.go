// Package search holds the pure query-processing pieces: normalization,
// variation expansion and the relevance ranking policy. Everything here is
// deterministic and store-agnostic.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes a raw user query: lowercase, accents folded to
// their base letters, punctuation collapsed to spaces, whitespace squeezed.
// It is total (any input yields a valid result) and idempotent.
func Normalize(raw string) string {
	lowered := strings.ToLower(raw)
	folded := stripCombiningMarks(norm.NFD.String(lowered))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '_' || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// stripCombiningMarks removes non-spacing marks left behind by NFD
// decomposition, turning "é" into "e".
func stripCombiningMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
