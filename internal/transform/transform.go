// Package transform provides the named normalization functions extraction
// templates may reference. Transforms are pure: same input, same output.
package transform

import (
	"fmt"
	"strings"

	"spendwise/importer/internal/dateutils"
	"spendwise/importer/internal/models"
	"spendwise/importer/internal/parsererror"
)

// Func normalizes a raw captured string.
type Func func(string) (string, error)

var registry = map[string]Func{
	"amount": Amount,
	"date":   Date,
	"time":   Time,
	"text":   Text,
	"upper":  Upper,
}

// Lookup resolves a transform by name. Templates referencing an unknown name
// must be rejected at load time.
func Lookup(name string) (Func, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Names returns the registered transform names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Amount normalizes a monetary string to a plain positive decimal string.
// Zero and negative values are rejected; notification amounts carry their
// sign in the surrounding wording, not the number.
func Amount(raw string) (string, error) {
	parsed, err := models.ParseAmount(raw)
	if err != nil {
		return "", err
	}
	if !parsed.IsPositive() {
		return "", parsererror.NewInvalidAmountError(raw, "must be positive")
	}
	return parsed.String(), nil
}

// Date normalizes a date string to YYYY-MM-DD.
func Date(raw string) (string, error) {
	return dateutils.NormalizeDate(raw)
}

// Time normalizes a time string to HH:mm:ss.
func Time(raw string) (string, error) {
	return dateutils.NormalizeTime(raw)
}

// Text trims the value and collapses inner whitespace runs.
func Text(raw string) (string, error) {
	cleaned := strings.Join(strings.Fields(raw), " ")
	if cleaned == "" {
		return "", fmt.Errorf("empty text")
	}
	return cleaned, nil
}

// Upper applies Text then upper-cases the result.
func Upper(raw string) (string, error) {
	cleaned, err := Text(raw)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(cleaned), nil
}
