package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal monetary value with CSV marshaling that always renders
// two fraction digits.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a decimal in an Amount.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// MarshalCSV renders the amount with two decimal places.
func (a Amount) MarshalCSV() (string, error) {
	return a.StringFixed(2), nil
}

// UnmarshalCSV parses an amount from a CSV cell, tolerating currency symbols
// and thousand separators.
func (a *Amount) UnmarshalCSV(csv string) error {
	parsed, err := ParseAmount(csv)
	if err != nil {
		return err
	}
	a.Decimal = parsed
	return nil
}

// currencyMarks lists symbols and codes stripped before numeric parsing.
var currencyMarks = []string{"₹", "$", "€", "£", "¥", "INR", "USD", "EUR", "GBP", "CHF", "Rs.", "Rs"}

// ParseAmount parses a monetary string into a decimal, stripping currency
// symbols, codes, thousand separators, and whitespace. The sign is preserved.
func ParseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	upper := strings.ToUpper(cleaned)
	for _, mark := range currencyMarks {
		upper = strings.ReplaceAll(upper, strings.ToUpper(mark), "")
	}
	upper = strings.NewReplacer(",", "", "'", "", " ", "", " ", "").Replace(upper)
	upper = strings.TrimSpace(upper)

	// Trailing sign as some statement exports write "100.00-".
	if strings.HasSuffix(upper, "-") {
		upper = "-" + strings.TrimSuffix(upper, "-")
	}

	parsed, err := decimal.NewFromString(upper)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cannot parse amount %q: %w", value, err)
	}
	return parsed, nil
}

// NormalizeMerchant canonicalizes a merchant string for fingerprinting and
// keyword matching: trimmed, inner whitespace collapsed, upper-cased.
func NormalizeMerchant(value string) string {
	return strings.ToUpper(strings.Join(strings.Fields(value), " "))
}
