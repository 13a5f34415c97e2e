// Package importer implements the two-phase tabular import pipeline:
// stage a decoded row matrix into a preview, then confirm or discard it.
package importer

import (
	"strings"

	"spendwise/importer/internal/parsererror"
)

// Column roles a mapping can assign.
const (
	ColDate        = "date"
	ColTime        = "time"
	ColDescription = "description"
	ColAmount      = "amount"
	ColDebit       = "debit"
	ColCredit      = "credit"
	ColType        = "type"
	ColStatus      = "status"
	ColReference   = "reference"
	ColTags        = "tags"
	ColAccount     = "account"
)

// Mapping assigns column roles to zero-based column indexes.
type Mapping map[string]int

// headerAliases lists the header spellings recognized per role. Comparison
// is against a trimmed, lower-cased, whitespace-collapsed header cell.
var headerAliases = map[string][]string{
	ColDate:        {"date", "transaction date", "txn date", "value date", "posting date"},
	ColTime:        {"time", "transaction time", "txn time"},
	ColDescription: {"description", "narration", "details", "transaction details", "particulars", "note", "merchant", "name"},
	ColAmount:      {"amount", "transaction amount", "txn amount", "price", "value"},
	ColDebit:       {"debit", "withdrawal", "withdrawal amt", "dr", "paid"},
	ColCredit:      {"credit", "deposit", "deposit amt", "cr", "received"},
	ColType:        {"type", "transaction type", "dr/cr"},
	ColStatus:      {"status", "transaction status"},
	ColReference:   {"reference", "ref no", "reference no", "transaction id", "txn id", "utr", "order id"},
	ColTags:        {"tags", "tag", "labels", "category"},
	ColAccount:     {"account", "account name", "wallet", "bank"},
}

// InferMapping derives a mapping from the header row by alias lookup. When
// the header yields neither a date nor an amount column the positional
// fallback (date, description, amount, type) is used instead.
func InferMapping(header []string) Mapping {
	mapping := make(Mapping)
	for index, cell := range header {
		normalized := strings.ToLower(strings.Join(strings.Fields(cell), " "))
		if normalized == "" {
			continue
		}
		for role, aliases := range headerAliases {
			if _, taken := mapping[role]; taken {
				continue
			}
			for _, alias := range aliases {
				if normalized == alias {
					mapping[role] = index
					break
				}
			}
		}
	}

	if !mapping.usable() {
		mapping = positionalFallback(len(header))
	}
	return mapping
}

// Merge overlays override assignments onto the mapping. A negative index
// removes the role.
func (m Mapping) Merge(overrides Mapping) Mapping {
	merged := make(Mapping, len(m)+len(overrides))
	for role, index := range m {
		merged[role] = index
	}
	for role, index := range overrides {
		if index < 0 {
			delete(merged, role)
			continue
		}
		merged[role] = index
	}
	return merged
}

// Validate checks the mapping names known roles, stays inside the header,
// and carries enough columns to build transactions.
func (m Mapping) Validate(width int) error {
	for role, index := range m {
		if _, known := headerAliases[role]; !known {
			return parsererror.NewMappingError(role, "unknown column role")
		}
		if index < 0 || index >= width {
			return parsererror.NewMappingError(role, "column index out of range")
		}
	}
	if _, ok := m[ColDate]; !ok {
		return parsererror.NewMappingError(ColDate, "no date column mapped")
	}
	if !m.hasAmount() {
		return parsererror.NewMappingError(ColAmount, "no amount or debit/credit column mapped")
	}
	return nil
}

func (m Mapping) usable() bool {
	_, hasDate := m[ColDate]
	return hasDate && m.hasAmount()
}

func (m Mapping) hasAmount() bool {
	if _, ok := m[ColAmount]; ok {
		return true
	}
	_, hasDebit := m[ColDebit]
	_, hasCredit := m[ColCredit]
	return hasDebit || hasCredit
}

func positionalFallback(width int) Mapping {
	mapping := make(Mapping)
	if width > 0 {
		mapping[ColDate] = 0
	}
	if width > 1 {
		mapping[ColDescription] = 1
	}
	if width > 2 {
		mapping[ColAmount] = 2
	}
	if width > 3 {
		mapping[ColType] = 3
	}
	return mapping
}
