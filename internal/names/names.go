package names

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics removes combining marks so "Björk" and "Bjork"
// compare equal.
func stripDiacritics(s string) string {
	t := norm.NFD.String(s)
	out := make([]rune, 0, len(t))
	for _, r := range t {
		if unicode.IsMark(r) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// Normalize lowercases, folds diacritics and collapses whitespace.
// Used for artist-name comparison, never for display.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = stripDiacritics(s)
	s = strings.ReplaceAll(s, "&", " and ")
	return strings.Join(strings.Fields(s), " ")
}

// Equal reports whether two names are the same after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Similarity returns a 0..1 match score between two normalized names.
func Similarity(a, b string) float64 {
	return levenshtein.Similarity(Normalize(a), Normalize(b), nil)
}
