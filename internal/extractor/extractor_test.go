package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/importer/internal/logging"
	"spendwise/importer/internal/models"
	"spendwise/importer/internal/parsererror"
	"spendwise/importer/internal/template"
)

func bankTemplate(t *testing.T) *template.Template {
	t.Helper()
	tmpl := &template.Template{
		Name:    "hdfc-alert",
		Account: "HDFC Savings",
		Fields: []template.FieldSpec{
			{Name: template.FieldAmount, Pattern: `INR\s*([\d,]+\.\d{2})`, Group: 1, Transform: "amount"},
			{Name: template.FieldDate, Pattern: `on\s+(\w+ \d{1,2}, \d{4})`, Group: 1, Transform: "date"},
			{Name: template.FieldTime, Pattern: `at\s+(\d{2}:\d{2}:\d{2})`, Group: 1, Transform: "time", Optional: true},
			{Name: template.FieldMerchant, Pattern: `Info:\s*([^.]+)\.`, Group: 1, Transform: "text"},
		},
		Classification: template.Classification{
			ExpenseKeywords:  []string{"debited", "spent"},
			IncomeKeywords:   []string{"credited", "refund"},
			DefaultDirection: models.Expense,
		},
		Currency: template.Currency{Pattern: `INR|USD|EUR`, Default: "INR"},
	}
	require.NoError(t, tmpl.Validate())
	return tmpl
}

func TestExtractDebitAlert(t *testing.T) {
	tmpl := bankTemplate(t)
	text := "Your account has been debited with INR 240.00 on Feb 16, 2026 at 10:31:46. Info: TWINS TOWER CASH."

	record, err := New(&logging.MockLogger{}).Extract(tmpl, text)
	require.NoError(t, err)

	assert.Equal(t, "240", record.Amount.String())
	assert.Equal(t, "INR", record.Currency)
	assert.Equal(t, "2026-02-16", record.Fields[template.FieldDate])
	assert.Equal(t, "10:31:46", record.Fields[template.FieldTime])
	assert.Equal(t, "TWINS TOWER CASH", record.Fields[template.FieldMerchant])
	assert.Equal(t, models.Expense, record.Direction)
	assert.Empty(t, record.Warnings)
}

func TestExtractCreditAlert(t *testing.T) {
	tmpl := bankTemplate(t)
	text := "Your account was credited with INR 2,000.16 as refund from IRCTC on Feb 20, 2026. Info: IRCTC REFUND."

	record, err := New(&logging.MockLogger{}).Extract(tmpl, text)
	require.NoError(t, err)

	assert.Equal(t, "2000.16", record.Amount.String())
	assert.Equal(t, models.Income, record.Direction)
}

func TestExtractDirectionTieGoesToExpense(t *testing.T) {
	tmpl := bankTemplate(t)
	text := "Amount debited; a refund will follow. INR 50.00 on Feb 16, 2026. Info: STORE."

	record, err := New(&logging.MockLogger{}).Extract(tmpl, text)
	require.NoError(t, err)
	assert.Equal(t, models.Expense, record.Direction)
}

func TestExtractDirectionDefault(t *testing.T) {
	tmpl := bankTemplate(t)
	tmpl.Classification.DefaultDirection = models.Income
	text := "Transaction of INR 50.00 on Feb 16, 2026. Info: STORE."

	record, err := New(&logging.MockLogger{}).Extract(tmpl, text)
	require.NoError(t, err)
	assert.Equal(t, models.Income, record.Direction)
}

func TestExtractMissingRequiredField(t *testing.T) {
	tmpl := bankTemplate(t)
	text := "Your account has been debited with INR 240.00 on Feb 16, 2026."

	_, err := New(&logging.MockLogger{}).Extract(tmpl, text)
	require.Error(t, err)

	var missing *parsererror.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, template.FieldMerchant, missing.Field)
}

func TestExtractOptionalFieldDegrades(t *testing.T) {
	tmpl := bankTemplate(t)
	text := "Debited INR 240.00 on Feb 16, 2026. Info: STORE."

	record, err := New(&logging.MockLogger{}).Extract(tmpl, text)
	require.NoError(t, err)
	assert.Equal(t, "", record.Fields[template.FieldTime])
	require.Len(t, record.Warnings, 1)
	assert.Contains(t, record.Warnings[0], "time")
}

func TestExtractRejectsNonPositiveAmount(t *testing.T) {
	tmpl := bankTemplate(t)
	text := "Debited INR 0.00 on Feb 16, 2026. Info: STORE."

	_, err := New(&logging.MockLogger{}).Extract(tmpl, text)
	require.Error(t, err)

	var transformErr *parsererror.TransformError
	assert.ErrorAs(t, err, &transformErr)
}

func TestCandidateFillsTemplateDefaults(t *testing.T) {
	tmpl := bankTemplate(t)
	ext := New(&logging.MockLogger{})

	record, err := ext.Extract(tmpl, "Debited INR 240.00 on Feb 16, 2026 at 10:31:46. Info: TWINS TOWER CASH.")
	require.NoError(t, err)

	candidate := ext.Candidate(tmpl, record, "msg-123")
	assert.Equal(t, "HDFC Savings", candidate.Account)
	assert.Equal(t, "msg-123", candidate.ExternalID)
	assert.Equal(t, models.RecorderEmail, candidate.Recorder)
	assert.Equal(t, "TWINS TOWER CASH", candidate.Merchant)
}
