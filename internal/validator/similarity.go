package validator

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// Similarity returns the normalized Levenshtein similarity of a and b in [0,1]:
// 1 - distance/max(len(a), len(b)), measured in runes. Two empty strings are
// an exact match.
func Similarity(a, b string) float64 {
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}

	return 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

// NormalizeName folds a place or crop name for comparison: NFC composed,
// lower-cased, inner whitespace collapsed. Devanagari input from different
// keyboards can differ only in composition, which NFC removes.
func NormalizeName(s string) string {
	s = norm.NFC.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
