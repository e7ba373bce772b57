// Package textutil normalizes free-text Japanese firmographic fields so that
// substring matching is stable across width and case variants.
package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize folds half-width katakana and full-width latin to their canonical
// forms (NFKC), then lowercases. Locations and industries arrive as free text
// from imports and scrapes with no guaranteed width or case.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(width.Fold.String(s)))
}

// ContainsFold reports whether haystack contains needle after normalization.
// An empty needle never matches.
func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), Normalize(needle))
}

// ContainsAnyFold reports whether haystack contains any of the needles after
// normalization, and returns the first matching needle in its original form.
func ContainsAnyFold(haystack string, needles []string) (string, bool) {
	h := Normalize(haystack)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(h, Normalize(n)) {
			return n, true
		}
	}
	return "", false
}

// EqualFold reports whether two strings are equal after normalization.
func EqualFold(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// InSetFold reports whether s equals any member of set after normalization.
func InSetFold(s string, set []string) bool {
	for _, member := range set {
		if EqualFold(s, member) {
			return true
		}
	}
	return false
}
