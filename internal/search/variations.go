package search

import "strings"

// Variations expands a normalized query into the spelling variants the
// matcher should treat as equivalent: the query itself, spaces swapped for
// hyphens, separators removed, and the reverse mappings. The result is
// de-duplicated, preserves first-seen order, and always starts with q.
func Variations(q string) []string {
	if q == "" {
		return nil
	}

	candidates := []string{
		q,
		strings.ReplaceAll(q, " ", "-"),
		strings.ReplaceAll(q, " ", ""),
		strings.ReplaceAll(q, "-", " "),
		strings.ReplaceAll(q, "-", ""),
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Tokens splits a normalized query on whitespace and hyphens for conjunctive
// matching. It returns nil for single-token queries, where variation
// matching already covers everything token matching would.
func Tokens(q string) []string {
	tokens := strings.FieldsFunc(q, func(r rune) bool {
		return r == ' ' || r == '-'
	})
	if len(tokens) < 2 {
		return nil
	}
	return tokens
}
