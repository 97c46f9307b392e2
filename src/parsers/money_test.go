package parsers

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoneySymbol(t *testing.T) {
	amount, currency, err := ParseMoney("₪1,234.50", "ILS")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("1234.50")))
	assert.Equal(t, "ILS", currency)
}

func TestParseMoneyDollarSign(t *testing.T) {
	amount, currency, err := ParseMoney("$99.99", "ILS")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("99.99")))
	assert.Equal(t, "USD", currency)
}

func TestParseMoneyISOToken(t *testing.T) {
	amount, currency, err := ParseMoney("1,000 USD", "ILS")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "USD", currency)
}

func TestParseMoneyDefaultCurrency(t *testing.T) {
	amount, currency, err := ParseMoney("250.00", "ILS")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("250")))
	assert.Equal(t, "ILS", currency)
}

func TestParseMoneyNegative(t *testing.T) {
	amount, currency, err := ParseMoney("-42.10", "EUR")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("-42.10")))
	assert.Equal(t, "EUR", currency)
}

func TestParseMoneyExactness(t *testing.T) {
	// 0.1 + 0.2 style values must survive without binary float drift.
	amount, _, err := ParseMoney("0.30", "ILS")
	require.NoError(t, err)
	assert.Equal(t, "0.30", amount.StringFixed(2))
}

func TestParseMoneyGarbage(t *testing.T) {
	_, _, err := ParseMoney("abc", "ILS")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseMoneyEmpty(t *testing.T) {
	_, _, err := ParseMoney("   ", "ILS")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseMoneyCurrencyOnly(t *testing.T) {
	_, _, err := ParseMoney("USD", "ILS")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
