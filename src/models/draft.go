package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Draft statuses. pending is the only state that accepts review edits;
// committed and discarded are both terminal.
const (
	DraftStatusPending   = "pending"
	DraftStatusCommitted = "committed"
	DraftStatusDiscarded = "discarded"
)

// ImportDraft is a staged, reviewable import awaiting approval before
// permanent commit.
type ImportDraft struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"account_id"`
	SourceFilename string    `json:"source_filename,omitempty"`
	PeriodLabel    string    `json:"period_label"`
	RowCount       int       `json:"row_count"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// DraftRow holds one staged statement row plus the review state around its
// category. RowIndex preserves original file order.
type DraftRow struct {
	ID                    int64            `json:"id"`
	DraftID               int64            `json:"draft_id"`
	RowIndex              int              `json:"row_index"`
	Date                  time.Time        `json:"date"`
	ValueDate             *time.Time       `json:"value_date,omitempty"`
	Description           string           `json:"description"`
	Reference             string           `json:"reference,omitempty"`
	CounterpartyRaw       string           `json:"counterparty_raw"`
	CounterpartyKey       string           `json:"counterparty_key"`
	Debit                 *decimal.Decimal `json:"debit,omitempty"`
	Credit                *decimal.Decimal `json:"credit,omitempty"`
	Amount                *decimal.Decimal `json:"amount,omitempty"`
	ChargedAmount         *decimal.Decimal `json:"charged_amount,omitempty"`
	ChargedCurrency       string           `json:"charged_currency,omitempty"`
	Balance               *decimal.Decimal `json:"balance,omitempty"`
	Currency              string           `json:"currency,omitempty"`
	CategoryHint          string           `json:"category_hint,omitempty"`
	SuggestedCategoryText string           `json:"suggested_category_text,omitempty"`
	ApprovedCategoryText  string           `json:"approved_category_text,omitempty"`
}
