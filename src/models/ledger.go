package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountKindBank = "bank"
	AccountKindCard = "card"
)

type Account struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Currency string `json:"currency,omitempty"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Entity is a deduplicated counterparty (merchant or payee). NormalizedKey is
// the canonicalization of the first-seen raw string; DisplayName is that raw
// string and is never overwritten by later imports.
type Entity struct {
	ID            int64  `json:"id"`
	NormalizedKey string `json:"normalized_key"`
	DisplayName   string `json:"display_name"`
}

// EntityCategoryLink maps an entity to at most one category.
type EntityCategoryLink struct {
	ID         int64 `json:"id"`
	EntityID   int64 `json:"entity_id"`
	CategoryID int64 `json:"category_id"`
}

// ImportBatch is the immutable record of one committed ingestion event.
type ImportBatch struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"account_id"`
	SourceFilename string    `json:"source_filename,omitempty"`
	PeriodLabel    string    `json:"period_label"`
	RowCount       int       `json:"row_count"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// Activity is a permanent ledger row, owned by its ImportBatch. Nothing in it
// is ever mutated except ManualCategoryID, the per-row user override.
type Activity struct {
	ID               int64            `json:"id"`
	AccountID        int64            `json:"account_id"`
	BatchID          int64            `json:"batch_id"`
	Date             time.Time        `json:"date"`
	ValueDate        *time.Time       `json:"value_date,omitempty"`
	Description      string           `json:"description"`
	Reference        string           `json:"reference,omitempty"`
	CounterpartyRaw  string           `json:"counterparty_raw"`
	EntityID         *int64           `json:"entity_id,omitempty"`
	Debit            *decimal.Decimal `json:"debit,omitempty"`
	Credit           *decimal.Decimal `json:"credit,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	ChargedAmount    *decimal.Decimal `json:"charged_amount,omitempty"`
	ChargedCurrency  string           `json:"charged_currency,omitempty"`
	Balance          *decimal.Decimal `json:"balance,omitempty"`
	Currency         string           `json:"currency,omitempty"`
	CategoryHint     string           `json:"category_hint,omitempty"`
	ManualCategoryID *int64           `json:"manual_category_id,omitempty"`
}
