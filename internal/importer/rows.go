package importer

import (
	"strings"

	"github.com/shopspring/decimal"

	"spendwise/importer/internal/dateutils"
	"spendwise/importer/internal/models"
)

// Row is one staged input row: either a candidate or a skip reason.
type Row struct {
	Number     int
	Candidate  *models.Candidate
	SkipReason string
}

// successfulStatuses lists status values that represent a settled
// transaction. Rows with any other non-empty status are skipped.
var successfulStatuses = map[string]bool{
	"SUCCESS":    true,
	"SUCCESSFUL": true,
	"COMPLETED":  true,
	"PAID":       true,
	"PROCESSED":  true,
	"SETTLED":    true,
}

// buildRow converts one matrix row into a candidate. Unusable rows return a
// skip reason instead of an error; a bad row never aborts the file.
func buildRow(mapping Mapping, row []string, number int, defaults StageOptions) Row {
	if isEmptyRow(row) {
		return Row{Number: number, SkipReason: "empty row"}
	}

	if status := cell(row, mapping, ColStatus); status != "" {
		if !successfulStatuses[strings.ToUpper(strings.TrimSpace(status))] {
			return Row{Number: number, SkipReason: "status " + strings.TrimSpace(status)}
		}
	}

	amount, direction, reason := resolveAmount(mapping, row)
	if reason != "" {
		return Row{Number: number, SkipReason: reason}
	}

	date, err := dateutils.NormalizeDate(cell(row, mapping, ColDate))
	if err != nil {
		return Row{Number: number, SkipReason: "unparseable date"}
	}

	candidate := &models.Candidate{
		Amount:    amount,
		Currency:  defaults.Currency,
		Merchant:  strings.Join(strings.Fields(cell(row, mapping, ColDescription)), " "),
		Date:      date,
		Direction: direction,
		Account:   strings.TrimSpace(cell(row, mapping, ColAccount)),
		Ledger:    defaults.Ledger,
		Recorder:  models.RecorderImport,
	}

	if raw := cell(row, mapping, ColTime); raw != "" {
		if normalized, err := dateutils.NormalizeTime(raw); err == nil {
			candidate.Time = normalized
		}
	}

	if candidate.Account == "" {
		candidate.Account = defaults.Account
	}

	if reference := strings.TrimSpace(cell(row, mapping, ColReference)); reference != "" {
		candidate.ExternalID = reference
	}

	if tag := cell(row, mapping, ColTags); tag != "" {
		candidate.Category, candidate.Subcategory = parseTag(tag)
	}

	return Row{Number: number, Candidate: candidate}
}

// resolveAmount picks the amount and direction from either split
// debit/credit columns or a single signed amount column, with an optional
// type column overriding the sign.
func resolveAmount(mapping Mapping, row []string) (amount decimal.Decimal, direction models.Direction, skipReason string) {
	debitRaw := strings.TrimSpace(cell(row, mapping, ColDebit))
	creditRaw := strings.TrimSpace(cell(row, mapping, ColCredit))

	if debitRaw != "" || creditRaw != "" {
		raw, dir := debitRaw, models.Expense
		if debitRaw == "" {
			raw, dir = creditRaw, models.Income
		}
		parsed, err := models.ParseAmount(raw)
		if err != nil || parsed.IsZero() {
			return amount, dir, "unparseable amount"
		}
		return parsed.Abs(), dir, ""
	}

	raw := strings.TrimSpace(cell(row, mapping, ColAmount))
	if raw == "" {
		return amount, direction, "no amount"
	}
	parsed, err := models.ParseAmount(raw)
	if err != nil {
		return amount, direction, "unparseable amount"
	}
	if parsed.IsZero() {
		return amount, direction, "zero amount"
	}

	direction = models.Income
	if parsed.IsNegative() {
		direction = models.Expense
	}
	if override, ok := directionFromType(cell(row, mapping, ColType)); ok {
		direction = override
	}
	return parsed.Abs(), direction, ""
}

func directionFromType(value string) (models.Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEBIT", "DR", "EXPENSE", "PAYMENT", "WITHDRAWAL":
		return models.Expense, true
	case "CREDIT", "CR", "INCOME", "DEPOSIT", "REFUND":
		return models.Income, true
	}
	return "", false
}

// parseTag splits a "#Category: Subcategory" label, tolerating a missing
// subcategory and stray symbol prefixes.
func parseTag(tag string) (category, subcategory string) {
	cleaned := strings.TrimSpace(tag)
	cleaned = strings.TrimLeft(cleaned, "#")
	cleaned = strings.TrimFunc(cleaned, func(r rune) bool {
		return r > 0x2FFF // emoji and pictographs around category labels
	})

	parts := strings.SplitN(cleaned, ":", 2)
	category = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		subcategory = strings.TrimSpace(parts[1])
	}
	return category, subcategory
}

func cell(row []string, mapping Mapping, role string) string {
	index, ok := mapping[role]
	if !ok || index >= len(row) {
		return ""
	}
	return row[index]
}

func isEmptyRow(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
