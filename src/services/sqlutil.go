package services

import (
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dbtx lets the batch helpers run against either database.DB or an open
// transaction.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

const sqlDateFormat = "2006-01-02"

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// Amounts are stored as exact decimal strings, never floats.
func decToArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func strToArg(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func dateToArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(sqlDateFormat)
}

func scanDec(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(sqlDateFormat, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
