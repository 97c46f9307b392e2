package parsers

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// CanonicalKey reduces a raw counterparty string to its dedup key: every rune
// that is not a letter, digit or underscore becomes a space, whitespace runs
// collapse to one space, and the result is Unicode case-folded. Idempotent.
// A Caser may be stateful, so one is created per call rather than shared
// across request goroutines.
func CanonicalKey(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	collapsed := strings.Join(strings.Fields(b.String()), " ")
	return cases.Fold().String(collapsed)
}
