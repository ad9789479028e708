package validation

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeAnswer trims surrounding whitespace, composes the string to NFC
// and applies Unicode case folding
func NormalizeAnswer(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// A Caser is stateful and not safe for concurrent use, so build one per call.
	return cases.Fold().String(norm.NFC.String(s))
}

// IsCorrect reports whether submitted matches canonical after normalization.
// Empty or whitespace-only submissions are never correct.
func IsCorrect(submitted, canonical string) bool {
	got := NormalizeAnswer(submitted)
	if got == "" {
		return false
	}
	return got == NormalizeAnswer(canonical)
}
