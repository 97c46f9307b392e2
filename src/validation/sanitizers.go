package validation

import (
	"strings"
	"unicode"
)

// SanitizeForFormulaInjection neutralizes spreadsheet formula characters at
// the start of a value. Statement descriptions flow back out through CSV-able
// report surfaces, so a leading '=' must not survive as a live formula.
func SanitizeForFormulaInjection(s string) string {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) > 0 {
		switch rune(trimmed[0]) {
		case '=', '+', '@', '\t', '\r':
			return "'" + s
		}
	}
	return s
}

// StripUnprintable drops control characters while keeping ordinary
// whitespace. Bank exports occasionally embed stray control bytes in the
// description column.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}
