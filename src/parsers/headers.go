package parsers

import (
	"strings"
)

// Canonical field names parsers pull cells by, regardless of what the
// statement's actual header row says.
const (
	FieldActivityDate    = "activity_date"
	FieldValueDate       = "value_date"
	FieldDescription     = "description"
	FieldReference       = "reference"
	FieldDebit           = "debit"
	FieldCredit          = "credit"
	FieldBalance         = "balance"
	FieldCategoryHint    = "category_hint"
	FieldTransactionDate = "transaction_date"
	FieldPostingDate     = "posting_date"
	FieldMerchant        = "merchant"
	FieldAmount          = "amount"
	FieldChargedAmount   = "charged_amount"
)

// bankHeaderSynonyms covers the bank statement label sets observed across
// issuers and export revisions, Hebrew originals included.
var bankHeaderSynonyms = map[string]string{
	"תאריך":            FieldActivityDate,
	"תאריך ערך":        FieldValueDate,
	"תיאור":            FieldDescription,
	"סוג תנועה":        FieldDescription,
	"אסמכתא":           FieldReference,
	"חובה":             FieldDebit,
	"זכות":             FieldCredit,
	"יתרה בש\"ח":       FieldBalance,
	"סוגי קטגוריות":    FieldCategoryHint,
	"date":             FieldActivityDate,
	"activity date":    FieldActivityDate,
	"value date":       FieldValueDate,
	"description":      FieldDescription,
	"transaction type": FieldDescription,
	"reference":        FieldReference,
	"debit":            FieldDebit,
	"credit":           FieldCredit,
	"balance":          FieldBalance,
	"category":         FieldCategoryHint,
}

// cardHeaderSynonyms is the card-feed counterpart.
var cardHeaderSynonyms = map[string]string{
	"תאריך העסקה":        FieldTransactionDate,
	"תאריך חיוב":         FieldPostingDate,
	"בית העסק":           FieldMerchant,
	"סכום העסקה":         FieldAmount,
	"סכום החיוב":         FieldChargedAmount,
	"transaction date":   FieldTransactionDate,
	"posting date":       FieldPostingDate,
	"billing date":       FieldPostingDate,
	"merchant":           FieldMerchant,
	"merchant name":      FieldMerchant,
	"transaction amount": FieldAmount,
	"amount":             FieldAmount,
	"charged amount":     FieldChargedAmount,
	"billed amount":      FieldChargedAmount,
}

// NormalizeHeader strips the byte-order mark, trims, and collapses internal
// whitespace so lookup is stable across export revisions.
func NormalizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\uFEFF", "")
	return strings.Join(strings.Fields(value), " ")
}

// HeaderMap maps canonical field names to column indexes in the raw records.
type HeaderMap map[string]int

// BuildHeaderMap resolves a raw header row against a synonym table. Latin
// labels match case-insensitively; duplicates keep the first column seen.
func BuildHeaderMap(header []string, synonyms map[string]string) HeaderMap {
	mapping := make(HeaderMap)
	for idx, label := range header {
		normalized := NormalizeHeader(label)
		field, ok := synonyms[normalized]
		if !ok {
			field, ok = synonyms[strings.ToLower(normalized)]
		}
		if !ok {
			continue
		}
		if _, seen := mapping[field]; !seen {
			mapping[field] = idx
		}
	}
	return mapping
}

// Require fails with a MissingColumnsError naming every absent field.
func (m HeaderMap) Require(fields ...string) error {
	var missing []string
	for _, field := range fields {
		if _, ok := m[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Fields: missing}
	}
	return nil
}

// Cell pulls a trimmed cell by canonical field name, tolerating short records.
func (m HeaderMap) Cell(record []string, field string) string {
	idx, ok := m[field]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
