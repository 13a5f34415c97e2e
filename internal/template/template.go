// Package template defines extraction templates: per-source descriptions of
// how to pull transaction fields out of notification text.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"spendwise/importer/internal/models"
	"spendwise/importer/internal/parsererror"
	"spendwise/importer/internal/transform"
)

// Well-known field names the extractor depends on.
const (
	FieldAmount   = "amount"
	FieldDate     = "date"
	FieldTime     = "time"
	FieldMerchant = "merchant"
	FieldAccount  = "account"
)

// FieldSpec describes one field to capture from the text.
type FieldSpec struct {
	Name      string `yaml:"name"`
	Pattern   string `yaml:"pattern"`
	Group     int    `yaml:"group"`
	Transform string `yaml:"transform"`
	Optional  bool   `yaml:"optional"`
	Default   string `yaml:"default"`

	compiled *regexp.Regexp
	fn       transform.Func
}

// Classification controls how the extractor decides the transaction side.
type Classification struct {
	ExpenseKeywords  []string         `yaml:"expense_keywords"`
	IncomeKeywords   []string         `yaml:"income_keywords"`
	DefaultDirection models.Direction `yaml:"default_direction"`
}

// Currency controls how the extractor picks the currency code.
type Currency struct {
	Pattern string `yaml:"pattern"`
	Default string `yaml:"default"`

	compiled *regexp.Regexp
}

// Template is one source profile: match criteria plus extraction rules.
type Template struct {
	Name    string `yaml:"name"`
	Sender  string `yaml:"sender"`
	Subject string `yaml:"subject"`
	Account string `yaml:"account"`
	Ledger  string `yaml:"ledger"`

	Fields         []FieldSpec    `yaml:"fields"`
	Classification Classification `yaml:"classification"`
	Currency       Currency       `yaml:"currency"`
}

// Validate compiles every pattern and resolves every transform. A template
// that passes Validate cannot fail structurally at extraction time.
func (t *Template) Validate() error {
	if t.Name == "" {
		return parsererror.NewValidationError("", "template name is required", nil)
	}

	required := map[string]bool{FieldAmount: false, FieldDate: false, FieldMerchant: false}
	seen := make(map[string]bool, len(t.Fields))

	for i := range t.Fields {
		field := &t.Fields[i]
		if field.Name == "" {
			return parsererror.NewValidationError(t.Name, fmt.Sprintf("field %d has no name", i), nil)
		}
		if seen[field.Name] {
			return parsererror.NewValidationError(t.Name, fmt.Sprintf("duplicate field %q", field.Name), nil)
		}
		seen[field.Name] = true

		compiled, err := regexp.Compile("(?i)" + field.Pattern)
		if err != nil {
			return parsererror.NewValidationError(t.Name, fmt.Sprintf("field %q pattern", field.Name), err)
		}
		if field.Group < 0 || field.Group > compiled.NumSubexp() {
			return parsererror.NewValidationError(t.Name,
				fmt.Sprintf("field %q group %d out of range (pattern has %d groups)",
					field.Name, field.Group, compiled.NumSubexp()), nil)
		}
		field.compiled = compiled

		if field.Transform != "" {
			fn, ok := transform.Lookup(field.Transform)
			if !ok {
				return parsererror.NewValidationError(t.Name,
					fmt.Sprintf("field %q references unknown transform %q", field.Name, field.Transform), nil)
			}
			field.fn = fn
		}

		if _, isRequired := required[field.Name]; isRequired {
			required[field.Name] = true
		}
	}

	for name, present := range required {
		if !present {
			return parsererror.NewValidationError(t.Name, fmt.Sprintf("missing required field %q", name), nil)
		}
	}

	if t.Classification.DefaultDirection == "" {
		t.Classification.DefaultDirection = models.Expense
	}
	if !t.Classification.DefaultDirection.Valid() {
		return parsererror.NewValidationError(t.Name,
			fmt.Sprintf("invalid default direction %q", t.Classification.DefaultDirection), nil)
	}

	if t.Currency.Pattern != "" {
		compiled, err := regexp.Compile("(?i)" + t.Currency.Pattern)
		if err != nil {
			return parsererror.NewValidationError(t.Name, "currency pattern", err)
		}
		t.Currency.compiled = compiled
	}
	if t.Currency.Pattern == "" && t.Currency.Default == "" {
		return parsererror.NewValidationError(t.Name, "currency needs a pattern or a default", nil)
	}

	return nil
}

// Field returns the field specification with the given name.
func (t *Template) Field(name string) (*FieldSpec, bool) {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// Capture runs the field's pattern against the text and returns the leftmost
// capture-group value.
func (f *FieldSpec) Capture(text string) (string, bool) {
	groups := f.compiled.FindStringSubmatch(text)
	if groups == nil || f.Group >= len(groups) {
		return "", false
	}
	return groups[f.Group], true
}

// Apply runs the field's transform, if any.
func (f *FieldSpec) Apply(raw string) (string, error) {
	if f.fn == nil {
		return raw, nil
	}
	return f.fn(raw)
}

// Capture resolves the currency code for the text.
func (c *Currency) Capture(text string) string {
	if c.compiled != nil {
		if match := c.compiled.FindString(text); match != "" {
			return strings.ToUpper(strings.TrimSpace(match))
		}
	}
	return c.Default
}

// Match finds the first template whose sender and subject criteria both
// appear in the message metadata. Matching is case-insensitive containment;
// an empty criterion always matches.
func Match(templates []Template, sender, subject string) (*Template, bool) {
	lowerSender := strings.ToLower(sender)
	lowerSubject := strings.ToLower(subject)

	for i := range templates {
		t := &templates[i]
		if t.Sender != "" && !strings.Contains(lowerSender, strings.ToLower(t.Sender)) {
			continue
		}
		if t.Subject != "" && !strings.Contains(lowerSubject, strings.ToLower(t.Subject)) {
			continue
		}
		return t, true
	}
	return nil, false
}
