// Package normalize canonicalizes free-text cocktail names so that names coming
// from different data sources can be compared.
package normalize

import (
	"regexp"
	"strings"
)

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	disallowed    = regexp.MustCompile(`[^a-z0-9 ]`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// noiseToken is dropped from names; sources disagree on whether it is part of the name.
const noiseToken = "cocktail"

// Name returns the canonical form of a cocktail name.
//
// The steps run in order, each on the output of the previous one: lowercase,
// drop parenthesized text, drop the token "cocktail", turn anything outside
// [a-z0-9 ] into a space, collapse whitespace and trim.
//
// Name is total and idempotent: Name(Name(s)) == Name(s).
func Name(raw string) string {
	s := strings.ToLower(raw)
	s = parenthetical.ReplaceAllString(s, "")
	// Removing one occurrence can splice together another one.
	for strings.Contains(s, noiseToken) {
		s = strings.ReplaceAll(s, noiseToken, "")
	}
	s = disallowed.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Variants returns the simplified search variants of an already normalized
// name: the full name and, for multi-word names, the first word, the last word
// and the first two words. Duplicates and blanks are skipped; order is kept.
func Variants(normalized string) []string {
	tokens := strings.Fields(normalized)
	candidates := []string{strings.Join(tokens, " ")}
	if len(tokens) >= 2 {
		candidates = append(candidates,
			tokens[0],
			tokens[len(tokens)-1],
			tokens[0]+" "+tokens[1],
		)
	}

	seen := make(map[string]bool, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, v := range candidates {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		variants = append(variants, v)
	}
	return variants
}
