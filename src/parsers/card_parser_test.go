package parsers

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardParserHappyPath(t *testing.T) {
	csvData := "תאריך העסקה,תאריך חיוב,בית העסק,סכום העסקה,סכום החיוב\n" +
		"13/01/2024,02/02/2024,סופר-פארם,₪89.90,₪89.90\n" +
		"15/01/2024,02/02/2024,AMZN Mktp*US,$25.00,₪93.75\n"

	parser := NewCardParser("ILS")
	result, err := parser.Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, result.Activities, 2)
	assert.Empty(t, result.Skipped)

	first := result.Activities[0]
	assert.Equal(t, time.Date(2024, time.January, 13, 0, 0, 0, 0, time.UTC), first.Date)
	require.NotNil(t, first.ValueDate)
	assert.Equal(t, time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC), *first.ValueDate)
	assert.Equal(t, "סופר-פארם", first.Description)
	require.NotNil(t, first.Amount)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("89.90")))
	assert.Equal(t, "ILS", first.Currency)

	second := result.Activities[1]
	assert.Equal(t, "USD", second.Currency)
	require.NotNil(t, second.ChargedAmount)
	assert.True(t, second.ChargedAmount.Equal(decimal.RequireFromString("93.75")))
	assert.Equal(t, "ILS", second.ChargedCurrency)
	assert.Equal(t, CanonicalKey("AMZN Mktp*US"), second.CounterpartyKey)
}

func TestCardParserPostingDateFallsBackToTransactionDate(t *testing.T) {
	csvData := "transaction date,merchant,amount\n" +
		"13/01/2024,Coffee Shop,4.50\n"

	parser := NewCardParser("ILS")
	result, err := parser.Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, result.Activities, 1)

	activity := result.Activities[0]
	require.NotNil(t, activity.ValueDate)
	assert.True(t, activity.ValueDate.Equal(activity.Date))
}

func TestCardParserTransactionDateFallsBackToPostingDate(t *testing.T) {
	csvData := "transaction date,posting date,merchant,amount\n" +
		",02/02/2024,Coffee Shop,4.50\n"

	parser := NewCardParser("ILS")
	result, err := parser.Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, result.Activities, 1)
	assert.Equal(t, time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC), result.Activities[0].Date)
}

func TestCardParserSkipsBlankAmount(t *testing.T) {
	csvData := "transaction date,merchant,amount\n" +
		"13/01/2024,Pending hold,\n" +
		"14/01/2024,Groceries,120.00\n"

	parser := NewCardParser("ILS")
	result, err := parser.Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, result.Activities, 1)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 2, result.Skipped[0].RowIndex)
	assert.Equal(t, "empty amount", result.Skipped[0].Reason)
}

func TestCardParserBadAmountAborts(t *testing.T) {
	csvData := "transaction date,merchant,amount\n" +
		"13/01/2024,Groceries,12xy\n"

	parser := NewCardParser("ILS")
	_, err := parser.Parse(strings.NewReader(csvData))
	require.Error(t, err)

	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 2, rowErr.Row)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCardParserMissingColumns(t *testing.T) {
	csvData := "merchant,amount\nShop,10.00\n"

	parser := NewCardParser("ILS")
	_, err := parser.Parse(strings.NewReader(csvData))
	require.Error(t, err)

	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Fields, FieldTransactionDate)
}

func TestCardParserBlankMerchantBecomesUnknown(t *testing.T) {
	csvData := "transaction date,merchant,amount\n" +
		"13/01/2024,,50.00\n"

	parser := NewCardParser("ILS")
	result, err := parser.Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, result.Activities, 1)
	assert.Equal(t, "UNKNOWN", result.Activities[0].Description)
}

func TestGetParser(t *testing.T) {
	bank, err := GetParser("bank", "ILS")
	require.NoError(t, err)
	assert.IsType(t, &BankParser{}, bank)

	card, err := GetParser("card", "ILS")
	require.NoError(t, err)
	assert.IsType(t, &CardParser{}, card)

	_, err = GetParser("broker", "ILS")
	require.Error(t, err)
}
