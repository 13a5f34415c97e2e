// Package extractor turns raw notification text into transaction candidates
// by applying an extraction template.
package extractor

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"spendwise/importer/internal/logging"
	"spendwise/importer/internal/models"
	"spendwise/importer/internal/parsererror"
	"spendwise/importer/internal/template"
)

// Record is the outcome of extracting one notification.
type Record struct {
	Fields    map[string]string
	Amount    decimal.Decimal
	Currency  string
	Direction models.Direction
	Warnings  []string
}

// Extractor applies templates to notification text.
type Extractor struct {
	logger logging.Logger
}

// New creates an Extractor.
func New(logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Extractor{logger: logger}
}

// Extract applies the template to the text. The template must have passed
// Validate. Required fields that fail to match or transform abort the
// extraction; optional fields degrade to their default with a warning.
func (e *Extractor) Extract(tmpl *template.Template, text string) (*Record, error) {
	record := &Record{Fields: make(map[string]string, len(tmpl.Fields))}

	for i := range tmpl.Fields {
		field := &tmpl.Fields[i]

		raw, matched := field.Capture(text)
		if !matched {
			if !field.Optional {
				return nil, parsererror.NewMissingFieldError(tmpl.Name, field.Name)
			}
			record.Fields[field.Name] = field.Default
			record.warn("field %q not found, using default %q", field.Name, field.Default)
			continue
		}

		value, err := field.Apply(raw)
		if err != nil {
			if !field.Optional {
				return nil, parsererror.NewTransformError(field.Name, raw, err)
			}
			record.Fields[field.Name] = field.Default
			record.warn("field %q value %q failed to normalize, using default %q", field.Name, raw, field.Default)
			continue
		}
		record.Fields[field.Name] = value
	}

	amount, err := decimal.NewFromString(record.Fields[template.FieldAmount])
	if err != nil {
		return nil, parsererror.NewTransformError(template.FieldAmount, record.Fields[template.FieldAmount], err)
	}
	if !amount.IsPositive() {
		return nil, parsererror.NewInvalidAmountError(record.Fields[template.FieldAmount], "must be positive")
	}
	record.Amount = amount

	record.Currency = tmpl.Currency.Capture(text)
	record.Direction = classifyDirection(&tmpl.Classification, text)

	e.logger.Debug("extracted notification",
		logging.Field{Key: "template", Value: tmpl.Name},
		logging.Field{Key: "amount", Value: record.Amount.String()},
		logging.Field{Key: "direction", Value: string(record.Direction)},
		logging.Field{Key: "warnings", Value: len(record.Warnings)})

	return record, nil
}

// Candidate converts the record into a transaction candidate, filling the
// account and ledger from the template when the text did not provide them.
func (e *Extractor) Candidate(tmpl *template.Template, record *Record, externalID string) models.Candidate {
	candidate := models.Candidate{
		Amount:     record.Amount,
		Currency:   record.Currency,
		Merchant:   record.Fields[template.FieldMerchant],
		Date:       record.Fields[template.FieldDate],
		Time:       record.Fields[template.FieldTime],
		Direction:  record.Direction,
		Account:    record.Fields[template.FieldAccount],
		Ledger:     tmpl.Ledger,
		ExternalID: externalID,
		Recorder:   models.RecorderEmail,
	}
	if candidate.Account == "" {
		candidate.Account = tmpl.Account
	}
	return candidate
}

// classifyDirection counts keyword occurrences on each side; the side with
// more hits wins, ties fall to Expense, no hits fall to the template default.
func classifyDirection(c *template.Classification, text string) models.Direction {
	upper := strings.ToUpper(text)

	expenseHits := countHits(upper, c.ExpenseKeywords)
	incomeHits := countHits(upper, c.IncomeKeywords)

	switch {
	case expenseHits == 0 && incomeHits == 0:
		return c.DefaultDirection
	case incomeHits > expenseHits:
		return models.Income
	default:
		return models.Expense
	}
}

func countHits(upperText string, keywords []string) int {
	total := 0
	for _, keyword := range keywords {
		total += strings.Count(upperText, strings.ToUpper(keyword))
	}
	return total
}

func (r *Record) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
