package parsers

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingColumns means the header row lacked required fields; nothing
	// was parsed.
	ErrMissingColumns = errors.New("missing required columns")
	// ErrDateParse means a non-blank row had no parseable date. Aborts the
	// whole import.
	ErrDateParse = errors.New("unparseable date")
	// ErrInvalidAmount means an amount cell was non-blank but not decimal.
	// Aborts the whole import.
	ErrInvalidAmount = errors.New("invalid amount")
)

// MissingColumnsError names the canonical fields absent from a header row.
type MissingColumnsError struct {
	Fields []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Fields, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// RowError pins a hard parse failure to its 1-based file row.
type RowError struct {
	Row   int
	Value string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v (value %q)", e.Row, e.Err, e.Value)
}

func (e *RowError) Unwrap() error { return e.Err }
