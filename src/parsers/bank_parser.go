package parsers

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ayael01/tazrim/src/models"
	"github.com/shopspring/decimal"
)

// BankParser parses bank account statement exports: dated debit/credit rows
// with a running balance and an optional category hint column.
type BankParser struct {
	defaultCurrency string
}

func NewBankParser(defaultCurrency string) *BankParser {
	return &BankParser{defaultCurrency: defaultCurrency}
}

func (p *BankParser) Parse(file io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	// Issuer exports carry bare quotes in header labels (יתרה בש"ח).
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read all CSV records: %w", err)
	}

	headerMap := BuildHeaderMap(header, bankHeaderSynonyms)
	if err := headerMap.Require(FieldActivityDate, FieldDescription); err != nil {
		return nil, err
	}

	// Date order is a column-wide decision, made over the full batch before
	// any row is parsed.
	activityValues := make([]string, 0, len(records))
	valueValues := make([]string, 0, len(records))
	for _, record := range records {
		activityValues = append(activityValues, headerMap.Cell(record, FieldActivityDate))
		valueValues = append(valueValues, headerMap.Cell(record, FieldValueDate))
	}
	activityFormats := FormatsForOrder(DetectDateOrder(activityValues))
	valueFormats := activityFormats
	if _, ok := headerMap[FieldValueDate]; ok {
		valueFormats = FormatsForOrder(DetectDateOrder(valueValues))
	}

	result := &ParseResult{}
	for i, record := range records {
		rowIndex := i + 2 // header is row 1

		rawActivityDate := headerMap.Cell(record, FieldActivityDate)
		rawValueDate := headerMap.Cell(record, FieldValueDate)
		description := headerMap.Cell(record, FieldDescription)
		reference := headerMap.Cell(record, FieldReference)
		debitRaw := headerMap.Cell(record, FieldDebit)
		creditRaw := headerMap.Cell(record, FieldCredit)
		balanceRaw := headerMap.Cell(record, FieldBalance)
		categoryHint := headerMap.Cell(record, FieldCategoryHint)

		snapshot := func() map[string]string {
			return map[string]string{
				FieldActivityDate: rawActivityDate,
				FieldValueDate:    rawValueDate,
				FieldDescription:  description,
				FieldReference:    reference,
				FieldDebit:        debitRaw,
				FieldCredit:       creditRaw,
				FieldBalance:      balanceRaw,
				FieldCategoryHint: categoryHint,
			}
		}

		if rawActivityDate == "" && rawValueDate == "" && description == "" && debitRaw == "" && creditRaw == "" {
			result.Skipped = append(result.Skipped, models.SkippedRow{
				RowIndex: rowIndex, Reason: "empty row", Snapshot: snapshot(),
			})
			continue
		}

		activityDate, haveActivityDate := TryParseDate(rawActivityDate, activityFormats)
		valueDate, haveValueDate := TryParseDate(rawValueDate, valueFormats)

		// The value date fills in for a missing activity date.
		if !haveActivityDate && haveValueDate {
			activityDate = valueDate
			haveActivityDate = true
		}
		if !haveActivityDate {
			return nil, &RowError{Row: rowIndex, Value: rawActivityDate, Err: ErrDateParse}
		}

		debit, currency, err := p.parseOptionalAmount(debitRaw, rowIndex)
		if err != nil {
			return nil, err
		}
		credit, creditCurrency, err := p.parseOptionalAmount(creditRaw, rowIndex)
		if err != nil {
			return nil, err
		}
		if currency == "" {
			currency = creditCurrency
		}
		balance, _, err := p.parseOptionalAmount(balanceRaw, rowIndex)
		if err != nil {
			return nil, err
		}

		if debit == nil && credit == nil {
			result.Skipped = append(result.Skipped, models.SkippedRow{
				RowIndex: rowIndex, Reason: "empty amount", Snapshot: snapshot(),
			})
			continue
		}

		if description == "" {
			description = "UNKNOWN"
		}
		counterpartyRaw := description

		activity := models.ParsedActivity{
			Date:            activityDate,
			Description:     description,
			Reference:       reference,
			Debit:           debit,
			Credit:          credit,
			Balance:         balance,
			Currency:        currency,
			CategoryHint:    categoryHint,
			CounterpartyRaw: counterpartyRaw,
			CounterpartyKey: CanonicalKey(counterpartyRaw),
		}
		if haveValueDate {
			activity.ValueDate = &valueDate
		}
		result.Activities = append(result.Activities, activity)
	}

	return result, nil
}

// parseOptionalAmount treats a blank cell as absent, but a non-blank cell
// that fails to parse is a hard failure for the whole import.
func (p *BankParser) parseOptionalAmount(raw string, rowIndex int) (*decimal.Decimal, string, error) {
	if raw == "" {
		return nil, "", nil
	}
	amount, currency, err := ParseMoney(raw, p.defaultCurrency)
	if err != nil {
		return nil, "", &RowError{Row: rowIndex, Value: raw, Err: ErrInvalidAmount}
	}
	return &amount, currency, nil
}
