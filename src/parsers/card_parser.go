package parsers

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ayael01/tazrim/src/models"
)

// CardParser parses credit card statement exports: one signed amount per
// row, with an optional charged amount/currency pair when the merchant
// billed in a foreign currency.
type CardParser struct {
	defaultCurrency string
}

func NewCardParser(defaultCurrency string) *CardParser {
	return &CardParser{defaultCurrency: defaultCurrency}
}

func (p *CardParser) Parse(file io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read all CSV records: %w", err)
	}

	headerMap := BuildHeaderMap(header, cardHeaderSynonyms)
	if err := headerMap.Require(FieldTransactionDate, FieldMerchant, FieldAmount); err != nil {
		return nil, err
	}

	transactionValues := make([]string, 0, len(records))
	postingValues := make([]string, 0, len(records))
	for _, record := range records {
		transactionValues = append(transactionValues, headerMap.Cell(record, FieldTransactionDate))
		postingValues = append(postingValues, headerMap.Cell(record, FieldPostingDate))
	}
	transactionFormats := FormatsForOrder(DetectDateOrder(transactionValues))
	postingFormats := transactionFormats
	if _, ok := headerMap[FieldPostingDate]; ok {
		postingFormats = FormatsForOrder(DetectDateOrder(postingValues))
	}

	result := &ParseResult{}
	for i, record := range records {
		rowIndex := i + 2

		rawTransactionDate := headerMap.Cell(record, FieldTransactionDate)
		rawPostingDate := headerMap.Cell(record, FieldPostingDate)
		merchantRaw := headerMap.Cell(record, FieldMerchant)
		amountRaw := headerMap.Cell(record, FieldAmount)
		chargedRaw := headerMap.Cell(record, FieldChargedAmount)

		snapshot := func() map[string]string {
			return map[string]string{
				FieldTransactionDate: rawTransactionDate,
				FieldPostingDate:     rawPostingDate,
				FieldMerchant:        merchantRaw,
				FieldAmount:          amountRaw,
				FieldChargedAmount:   chargedRaw,
			}
		}

		if rawTransactionDate == "" && rawPostingDate == "" && merchantRaw == "" && amountRaw == "" {
			result.Skipped = append(result.Skipped, models.SkippedRow{
				RowIndex: rowIndex, Reason: "empty row", Snapshot: snapshot(),
			})
			continue
		}

		transactionDate, haveTransactionDate := TryParseDate(rawTransactionDate, transactionFormats)
		postingDate, havePostingDate := TryParseDate(rawPostingDate, postingFormats)

		if !haveTransactionDate && havePostingDate {
			transactionDate = postingDate
			haveTransactionDate = true
		}
		if !haveTransactionDate {
			return nil, &RowError{Row: rowIndex, Value: rawTransactionDate, Err: ErrDateParse}
		}
		if !havePostingDate {
			postingDate = transactionDate
		}

		if merchantRaw == "" {
			merchantRaw = "UNKNOWN"
		}

		if amountRaw == "" {
			result.Skipped = append(result.Skipped, models.SkippedRow{
				RowIndex: rowIndex, Reason: "empty amount", Snapshot: snapshot(),
			})
			continue
		}

		amount, currency, err := ParseMoney(amountRaw, p.defaultCurrency)
		if err != nil {
			return nil, &RowError{Row: rowIndex, Value: amountRaw, Err: ErrInvalidAmount}
		}

		activity := models.ParsedActivity{
			Date:            transactionDate,
			ValueDate:       &postingDate,
			Description:     merchantRaw,
			Amount:          &amount,
			Currency:        currency,
			CounterpartyRaw: merchantRaw,
			CounterpartyKey: CanonicalKey(merchantRaw),
		}

		if chargedRaw != "" {
			charged, chargedCurrency, err := ParseMoney(chargedRaw, p.defaultCurrency)
			if err != nil {
				return nil, &RowError{Row: rowIndex, Value: chargedRaw, Err: ErrInvalidAmount}
			}
			activity.ChargedAmount = &charged
			activity.ChargedCurrency = chargedCurrency
		}

		result.Activities = append(result.Activities, activity)
	}

	return result, nil
}
