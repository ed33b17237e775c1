package normalizer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"printwatch/internal/models"
)

// currencySymbols maps symbols found in budget fragments to ISO codes.
var currencySymbols = map[string]string{
	"€": "EUR",
	"$": "USD",
	"£": "GBP",
}

// currencyCodes are textual codes recognized inside budget fragments.
var currencyCodes = []string{"EUR", "USD", "GBP", "CHF", "PLN", "SEK", "DKK"}

var amountPattern = regexp.MustCompile(`-?[\d.,]*\d`)

// ParseCurrency converts a raw budget fragment like "12.345,67 €" into a
// signed decimal amount with an explicit currency code. The site's default
// currency applies when the fragment names none. Unparseable fragments
// yield nil.
func ParseCurrency(raw, defaultCurrency string) *models.Money {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	currency := detectCurrency(raw, defaultCurrency)

	numeric := amountPattern.FindString(raw)
	if numeric == "" {
		return nil
	}

	normalized := normalizeSeparators(numeric)

	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return nil
	}

	return &models.Money{Amount: amount, Currency: currency}
}

func detectCurrency(raw, fallback string) string {
	for symbol, code := range currencySymbols {
		if strings.Contains(raw, symbol) {
			return code
		}
	}

	upper := strings.ToUpper(raw)
	for _, code := range currencyCodes {
		if strings.Contains(upper, code) {
			return code
		}
	}

	return fallback
}

// normalizeSeparators rewrites locale-formatted numbers into plain decimal
// notation. When both '.' and ',' appear, the rightmost one is the decimal
// separator. A single separator followed by exactly three digits is read as
// a thousands separator, which is how German sources write "5.000 €".
func normalizeSeparators(numeric string) string {
	lastDot := strings.LastIndex(numeric, ".")
	lastComma := strings.LastIndex(numeric, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// German style: 12.345,67
			numeric = strings.ReplaceAll(numeric, ".", "")
			numeric = strings.Replace(numeric, ",", ".", 1)
		} else {
			// English style: 12,345.67
			numeric = strings.ReplaceAll(numeric, ",", "")
		}
	case lastComma >= 0:
		numeric = replaceSingleSeparator(numeric, ",", lastComma)
	case lastDot >= 0:
		numeric = replaceSingleSeparator(numeric, ".", lastDot)
	}

	return numeric
}

func replaceSingleSeparator(numeric, sep string, lastIdx int) string {
	digitsAfter := len(numeric) - lastIdx - 1
	if strings.Count(numeric, sep) > 1 || digitsAfter == 3 {
		// Thousands grouping: 5.000 or 1.234.567
		return strings.ReplaceAll(numeric, sep, "")
	}

	return strings.Replace(numeric, sep, ".", 1)
}
