package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/importer/internal/logging"
)

func TestClassifyLongestKeywordWins(t *testing.T) {
	short := &Entry{Keyword: "CASH", Category: "Cash", Subcategory: "Withdrawal"}
	long := &Entry{Keyword: "TWINS TOWER", Category: "Groceries", Subcategory: "Supermarket"}
	table := NewTable([]*Entry{short, long}, &logging.MockLogger{})

	match, ok := table.Classify("TWINS TOWER CASH")
	require.True(t, ok)
	assert.Equal(t, "Groceries", match.Category)
	assert.Equal(t, "TWINS TOWER", match.Entry.Keyword)

	// Only the winner's counter moves.
	assert.Equal(t, int64(1), long.MatchCount)
	assert.Equal(t, int64(0), short.MatchCount)
}

func TestClassifyCaseInsensitive(t *testing.T) {
	table := NewTable([]*Entry{
		{Keyword: "zomato", Category: "Food & Dining", Subcategory: "Delivery"},
	}, &logging.MockLogger{})

	match, ok := table.Classify("Zomato Order #4411")
	require.True(t, ok)
	assert.Equal(t, "Food & Dining", match.Category)
}

func TestClassifyKeywordLengthCountsRunes(t *testing.T) {
	// "MÜSLI" is 5 characters but 6 bytes; the 6-character "SLI BA" must
	// outrank it even though the byte lengths tie.
	accented := &Entry{Keyword: "MÜSLI", Category: "Groceries"}
	longer := &Entry{Keyword: "SLI BA", Category: "Food & Dining"}
	table := NewTable([]*Entry{accented, longer}, &logging.MockLogger{})

	match, ok := table.Classify("MÜSLI BAKERY")
	require.True(t, ok)
	assert.Equal(t, "Food & Dining", match.Category)
	assert.Equal(t, "SLI BA", match.Entry.Keyword)
}

func TestClassifyTieBrokenByMatchCount(t *testing.T) {
	table := NewTable([]*Entry{
		{Keyword: "UBER", Category: "Transport", MatchCount: 1},
		{Keyword: "EATS", Category: "Food & Dining", MatchCount: 5},
	}, &logging.MockLogger{})

	match, ok := table.Classify("UBER EATS ORDER")
	require.True(t, ok)
	assert.Equal(t, "Food & Dining", match.Category)
}

func TestClassifyTieBrokenByInsertionOrder(t *testing.T) {
	table := NewTable([]*Entry{
		{Keyword: "UBER", Category: "Transport"},
		{Keyword: "EATS", Category: "Food & Dining"},
	}, &logging.MockLogger{})

	match, ok := table.Classify("UBER EATS ORDER")
	require.True(t, ok)
	assert.Equal(t, "Transport", match.Category)
}

func TestClassifyIncrementsCounter(t *testing.T) {
	learned := &Entry{Keyword: "ZOMATO", Category: "Food & Dining"}
	pinned := &Entry{Keyword: "SWIGGY", Category: "Food & Dining", UserDefined: true}
	table := NewTable([]*Entry{learned, pinned}, &logging.MockLogger{})

	_, ok := table.Classify("ZOMATO ORDER")
	require.True(t, ok)
	assert.Equal(t, int64(1), learned.MatchCount)

	_, ok = table.Classify("SWIGGY ORDER")
	require.True(t, ok)
	assert.Equal(t, int64(0), pinned.MatchCount)
}

func TestClassifyNoMatch(t *testing.T) {
	table := NewTable(DefaultEntries(), &logging.MockLogger{})

	_, ok := table.Classify("UNKNOWN VENDOR 42")
	assert.False(t, ok)

	_, ok = table.Classify("   ")
	assert.False(t, ok)
}

func TestDefaultEntriesClassifyCommonVendors(t *testing.T) {
	table := NewTable(DefaultEntries(), &logging.MockLogger{})

	tests := []struct {
		merchant string
		category string
	}{
		{merchant: "ZOMATO ONLINE ORDER", category: "Food & Dining"},
		{merchant: "IRCTC CF BOOKING", category: "Travel"},
		{merchant: "AMAZON PAY INDIA", category: "Shopping"},
		{merchant: "TWINS TOWER CASH", category: "Groceries"},
	}

	for _, tt := range tests {
		match, ok := table.Classify(tt.merchant)
		require.True(t, ok, tt.merchant)
		assert.Equal(t, tt.category, match.Category, tt.merchant)
	}
}
