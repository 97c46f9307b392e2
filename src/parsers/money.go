package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// currencySymbols maps the symbols seen in statement exports to ISO codes.
var currencySymbols = map[string]string{
	"₪": "ILS",
	"$": "USD",
	"£": "GBP",
	"€": "EUR",
}

var isoCodeRe = regexp.MustCompile(`\b[A-Z]{3}\b`)

// ParseMoney extracts an exact decimal amount and a currency code from a
// locale-ambiguous monetary string. The currency comes from a known symbol,
// else a bare 3-letter ISO token, else defaultCurrency. Sign and exact value
// are preserved.
func ParseMoney(value, defaultCurrency string) (decimal.Decimal, string, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return decimal.Decimal{}, "", fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}

	currency := ""
	for symbol, code := range currencySymbols {
		if strings.Contains(raw, symbol) {
			currency = code
			raw = strings.ReplaceAll(raw, symbol, "")
			break
		}
	}

	if currency == "" {
		if match := isoCodeRe.FindString(raw); match != "" {
			currency = match
			raw = isoCodeRe.ReplaceAllString(raw, "")
		}
	}

	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.ReplaceAll(raw, " ", "")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, "", fmt.Errorf("%w: no amount left after normalization in %q", ErrInvalidAmount, value)
	}

	if currency == "" {
		currency = defaultCurrency
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, "", fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}

	return amount, currency, nil
}
