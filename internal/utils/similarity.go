package utils

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// SimilarityRatio returns the difflib ratio 2*M/T of a and b, compared
// case-insensitively and rune by rune. Identical strings score 1.0.
func SimilarityRatio(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == "" && b == "" {
		return 1.0
	}
	m := difflib.NewMatcher(splitRunes(a), splitRunes(b))
	return m.Ratio()
}

func splitRunes(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "")
}
