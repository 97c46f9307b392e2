package parsers

import (
	"fmt"
	"io"

	"github.com/ayael01/tazrim/src/models"
)

// ParseResult carries the accepted rows in file order plus the parallel log
// of rows that were silently dropped. Hard failures never produce a partial
// result; they surface as the Parse error instead.
type ParseResult struct {
	Activities []models.ParsedActivity
	Skipped    []models.SkippedRow
}

// StatementParser turns a raw statement export into parsed activities.
type StatementParser interface {
	Parse(file io.Reader) (*ParseResult, error)
}

// GetParser returns the parser for a feed kind. defaultCurrency is the
// account's home currency, used when an amount cell names no currency.
func GetParser(source string, defaultCurrency string) (StatementParser, error) {
	switch source {
	case "bank":
		return NewBankParser(defaultCurrency), nil
	case "card":
		return NewCardParser(defaultCurrency), nil
	default:
		return nil, fmt.Errorf("no parser available for source: %s", source)
	}
}
