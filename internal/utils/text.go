package utils

import (
	"strings"
	"unicode/utf8"
)

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Preview truncates s to n runes and appends "..." when something was cut.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return Truncate(s, n) + "..."
}

// FirstSentences keeps the first n '.'-separated pieces of s, rejoined with ". " and closed with ".".
func FirstSentences(s string, n int) string {
	parts := strings.Split(s, ".")
	if len(parts) > n {
		parts = parts[:n]
	}
	return strings.Join(parts, ". ") + "."
}

// ContainsAny reports whether s contains any of the substrings.
func ContainsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
