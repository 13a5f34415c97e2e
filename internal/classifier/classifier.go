// Package classifier assigns categories to merchants by keyword matching.
package classifier

import (
	"strings"
	"unicode/utf8"

	"spendwise/importer/internal/logging"
	"spendwise/importer/internal/models"
)

// Entry is one keyword rule. MatchCount tracks how often the rule has won,
// which breaks ties between equally long keywords.
type Entry struct {
	Keyword     string `yaml:"keyword"`
	Category    string `yaml:"category"`
	Subcategory string `yaml:"subcategory"`
	UserDefined bool   `yaml:"user_defined"`
	MatchCount  int64  `yaml:"match_count"`

	// ID is the storage row id, zero for unsaved entries.
	ID int64 `yaml:"-"`
}

// Match is a classification outcome.
type Match struct {
	Entry       *Entry
	Category    string
	Subcategory string
}

// Table holds keyword entries in insertion order. Insertion order is the
// final tie-breaker, so it must be preserved.
type Table struct {
	entries []*Entry
	logger  logging.Logger
}

// NewTable creates a table from entries, keeping their order.
func NewTable(entries []*Entry, logger logging.Logger) *Table {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Table{entries: entries, logger: logger}
}

// Add appends an entry to the table.
func (t *Table) Add(entry *Entry) {
	t.entries = append(t.entries, entry)
}

// Entries returns the table's entries in insertion order.
func (t *Table) Entries() []*Entry {
	return t.entries
}

// Classify finds the best keyword match for the merchant. Matching is
// case-insensitive substring containment. Precedence: longest keyword first,
// then higher match count, then earliest insertion. The winning entry's
// counter is incremented unless the rule is user defined; the caller is
// responsible for persisting the changed counter.
func (t *Table) Classify(merchant string) (Match, bool) {
	normalized := models.NormalizeMerchant(merchant)
	if normalized == "" {
		return Match{}, false
	}

	var winner *Entry
	for _, entry := range t.entries {
		keyword := strings.ToUpper(strings.TrimSpace(entry.Keyword))
		if keyword == "" || !strings.Contains(normalized, keyword) {
			continue
		}
		if winner == nil || beats(entry, winner) {
			winner = entry
		}
	}

	if winner == nil {
		t.logger.Debug("no keyword match", logging.Field{Key: "merchant", Value: normalized})
		return Match{}, false
	}

	if !winner.UserDefined {
		winner.MatchCount++
	}

	t.logger.Debug("classified merchant",
		logging.Field{Key: "merchant", Value: normalized},
		logging.Field{Key: "keyword", Value: winner.Keyword},
		logging.Field{Key: "category", Value: winner.Category})

	return Match{Entry: winner, Category: winner.Category, Subcategory: winner.Subcategory}, true
}

// beats reports whether challenger outranks the current winner. The table
// iterates in insertion order, so a strict comparison keeps the earlier entry
// on full ties.
func beats(challenger, winner *Entry) bool {
	challengerLen := utf8.RuneCountInString(strings.TrimSpace(challenger.Keyword))
	winnerLen := utf8.RuneCountInString(strings.TrimSpace(winner.Keyword))
	if challengerLen != winnerLen {
		return challengerLen > winnerLen
	}
	return challenger.MatchCount > winner.MatchCount
}
