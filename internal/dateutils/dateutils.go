// Package dateutils normalizes the date and time formats found in bank
// notifications and statement exports to ISO forms.
package dateutils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// layouts lists the input formats accepted, most common first.
var layouts = []string{
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-01-2006",
	"02/01/2006",
	"2 Jan 2006",
	"2-Jan-2006",
	"02.01.2006",
	"2006/01/02",
	"Jan 2 2006",
}

var monthNumbers = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// NormalizeDate converts a date string in any supported format to YYYY-MM-DD.
func NormalizeDate(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("empty date")
	}

	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.Format("2006-01-02"), nil
		}
	}

	// Month-name fallback for variants like "16th Feb, 2026".
	if iso, ok := parseMonthName(trimmed); ok {
		return iso, nil
	}

	return "", fmt.Errorf("unsupported date format: %q", value)
}

// NormalizeTime converts a time string to HH:mm:ss, accepting HH:mm and
// 12-hour clock suffixes.
func NormalizeTime(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("empty time")
	}

	for _, layout := range []string{"15:04:05", "15:04", "3:04:05 PM", "3:04 PM", "3:04PM"} {
		if parsed, err := time.Parse(layout, strings.ToUpper(trimmed)); err == nil {
			return parsed.Format("15:04:05"), nil
		}
	}

	return "", fmt.Errorf("unsupported time format: %q", value)
}

// parseMonthName handles free-form dates with a spelled-out month, tolerating
// ordinal suffixes and stray punctuation.
func parseMonthName(value string) (string, bool) {
	cleaned := strings.NewReplacer(",", " ", ".", " ").Replace(value)
	parts := strings.Fields(cleaned)
	if len(parts) != 3 {
		return "", false
	}

	var day, month, year int
	for _, part := range parts {
		lower := strings.ToLower(part)
		if m, ok := monthNumbers[lower[:min(3, len(lower))]]; ok && !isDigits(part) {
			month = m
			continue
		}
		digits := strings.TrimRight(part, "stndrh")
		n, err := strconv.Atoi(digits)
		if err != nil {
			return "", false
		}
		if n > 31 {
			year = n
		} else {
			day = n
		}
	}

	if day == 0 || month == 0 || year == 0 {
		return "", false
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || int(date.Month()) != month {
		return "", false
	}
	return date.Format("2006-01-02"), true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
