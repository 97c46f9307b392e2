package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParsedActivity is the unified, intermediate representation of one statement
// row. Each parser is responsible for populating as many of these fields as
// possible directly from the source file; bank-style feeds fill Debit/Credit,
// card-style feeds fill Amount (signed) and optionally the charged pair.
type ParsedActivity struct {
	Date            time.Time        `json:"date"`
	ValueDate       *time.Time       `json:"value_date,omitempty"`
	Description     string           `json:"description"`
	Reference       string           `json:"reference,omitempty"`
	Debit           *decimal.Decimal `json:"debit,omitempty"`
	Credit          *decimal.Decimal `json:"credit,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	ChargedAmount   *decimal.Decimal `json:"charged_amount,omitempty"`
	ChargedCurrency string           `json:"charged_currency,omitempty"`
	Balance         *decimal.Decimal `json:"balance,omitempty"`
	Currency        string           `json:"currency"`
	CategoryHint    string           `json:"category_hint,omitempty"`
	CounterpartyRaw string           `json:"counterparty_raw"`
	CounterpartyKey string           `json:"counterparty_key"`
}

// SkippedRow records a row the parser dropped without failing the import.
// The snapshot keeps the raw cells so the uploader can see what was ignored.
type SkippedRow struct {
	RowIndex int               `json:"row_index"`
	Reason   string            `json:"reason"`
	Snapshot map[string]string `json:"snapshot"`
}
