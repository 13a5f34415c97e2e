package store

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/importer/internal/classifier"
	"spendwise/importer/internal/logging"
	"spendwise/importer/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), &logging.MockLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTransaction(key string) *models.Transaction {
	return &models.Transaction{
		IdempotencyKey: key,
		Ledger:         "Personal",
		Category:       "Groceries",
		Subcategory:    "Supermarket",
		Currency:       "INR",
		Amount:         models.NewAmount(decimal.RequireFromString("240.00")),
		Account:        "HDFC Savings",
		Recorder:       models.RecorderEmail,
		Date:           "2026-02-16",
		Time:           "10:31:46",
		Merchant:       "TWINS TOWER CASH",
		Direction:      models.Expense,
	}
}

func TestInsertTransactionDuplicateKey(t *testing.T) {
	s := openTestStore(t)

	id, err := s.InsertTransaction(sampleTransaction("msg:abc"))
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = s.InsertTransaction(sampleTransaction("msg:abc"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = s.InsertTransaction(sampleTransaction("msg:def"))
	assert.NoError(t, err)
}

func TestTransactionRoundTrip(t *testing.T) {
	s := openTestStore(t)

	id, err := s.InsertTransaction(sampleTransaction("msg:rt"))
	require.NoError(t, err)

	got, err := s.GetTransaction(id)
	require.NoError(t, err)
	assert.Equal(t, "240", got.Amount.String())
	assert.Equal(t, "TWINS TOWER CASH", got.Merchant)
	assert.Equal(t, models.Expense, got.Direction)

	got.Amount = models.NewAmount(decimal.RequireFromString("99.50"))
	got.Account = "SBI Current"
	require.NoError(t, s.UpdateTransaction(got))

	updated, err := s.GetTransaction(id)
	require.NoError(t, err)
	assert.Equal(t, "99.5", updated.Amount.String())
	assert.Equal(t, "SBI Current", updated.Account)

	require.NoError(t, s.DeleteTransaction(id))
	_, err = s.GetTransaction(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteTransaction(id), ErrNotFound)
}

func TestSumByDirection(t *testing.T) {
	s := openTestStore(t)

	expense := sampleTransaction("e1")
	_, err := s.InsertTransaction(expense)
	require.NoError(t, err)

	income := sampleTransaction("i1")
	income.Direction = models.Income
	income.Amount = models.NewAmount(decimal.RequireFromString("2000.16"))
	_, err = s.InsertTransaction(income)
	require.NoError(t, err)

	other := sampleTransaction("o1")
	other.Account = "Elsewhere"
	_, err = s.InsertTransaction(other)
	require.NoError(t, err)

	expenses, err := s.SumByDirection("HDFC Savings", models.Expense)
	require.NoError(t, err)
	assert.Equal(t, "240", expenses.String())

	incomes, err := s.SumByDirection("hdfc savings", models.Income)
	require.NoError(t, err)
	assert.Equal(t, "2000.16", incomes.String())
}

func TestDeleteTransactionsByBatch(t *testing.T) {
	s := openTestStore(t)

	first := sampleTransaction("b1")
	first.BatchID = "batch-1"
	_, err := s.InsertTransaction(first)
	require.NoError(t, err)

	second := sampleTransaction("b2")
	second.BatchID = "batch-1"
	second.Account = "SBI Current"
	_, err = s.InsertTransaction(second)
	require.NoError(t, err)

	unrelated := sampleTransaction("b3")
	_, err = s.InsertTransaction(unrelated)
	require.NoError(t, err)

	deleted, accounts, err := s.DeleteTransactionsByBatch("batch-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.ElementsMatch(t, []string{"HDFC Savings", "SBI Current"}, accounts)

	remaining, err := s.ListTransactionsByAccount("HDFC Savings")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestAccounts(t *testing.T) {
	s := openTestStore(t)

	created, err := s.CreateAccount("HDFC Savings", decimal.RequireFromString("1000"))
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	_, err = s.CreateAccount("hdfc savings", decimal.Zero)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	got, err := s.GetAccount("HDFC SAVINGS")
	require.NoError(t, err)
	assert.Equal(t, "1000", got.CurrentBalance.String())
	assert.True(t, got.Active)

	require.NoError(t, s.UpdateAccountBalance("HDFC Savings", decimal.RequireFromString("760")))
	got, err = s.GetAccount("HDFC Savings")
	require.NoError(t, err)
	assert.Equal(t, "760", got.CurrentBalance.String())

	_, err = s.GetAccount("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategories(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateCategory("Groceries"))
	assert.ErrorIs(t, s.CreateCategory("groceries"), ErrDuplicateKey)

	stored, err := s.GetCategory("GROCERIES")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", stored)

	_, err = s.GetCategory("Missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateSubcategory("Groceries", "Supermarket"))
	sub, err := s.GetSubcategory("groceries", "supermarket")
	require.NoError(t, err)
	assert.Equal(t, "Supermarket", sub)

	// Creating a subcategory under a new category creates the category too.
	require.NoError(t, s.CreateSubcategory("Travel", "Train"))
	_, err = s.GetCategory("Travel")
	assert.NoError(t, err)
}

func TestKeywords(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SeedKeywords())
	entries, err := s.LoadKeywords()
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	// Seeding is idempotent.
	require.NoError(t, s.SeedKeywords())
	again, err := s.LoadKeywords()
	require.NoError(t, err)
	assert.Len(t, again, len(entries))

	entries[0].MatchCount = 7
	require.NoError(t, s.UpdateKeywordMatchCount(entries[0]))
	reloaded, err := s.LoadKeywords()
	require.NoError(t, err)
	assert.Equal(t, int64(7), reloaded[0].MatchCount)

	custom := &classifier.Entry{Keyword: "MY SHOP", Category: "Shopping", UserDefined: true}
	require.NoError(t, s.SaveKeyword(custom))
	assert.Positive(t, custom.ID)
}

func TestBatches(t *testing.T) {
	s := openTestStore(t)

	batch := &Batch{
		ID:           "batch-1",
		Fingerprint:  "fp-1",
		Source:       "paytm",
		Filename:     "statement.csv",
		Status:       BatchStatusCompleted,
		CreatedCount: 10,
	}
	require.NoError(t, s.CreateBatch(batch))

	got, err := s.GetBatch("batch-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.CreatedCount)

	// Same fingerprint twice is allowed.
	require.NoError(t, s.CreateBatch(&Batch{ID: "batch-2", Fingerprint: "fp-1", Status: BatchStatusCompleted}))

	found, err := s.FindBatchByFingerprint("fp-1")
	require.NoError(t, err)
	assert.Equal(t, "batch-2", found.ID)

	_, err = s.FindBatchByFingerprint("unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpdateBatchStatus("batch-1", BatchStatusRolledBack))
	got, err = s.GetBatch("batch-1")
	require.NoError(t, err)
	assert.Equal(t, BatchStatusRolledBack, got.Status)

	batches, err := s.ListBatches(10)
	require.NoError(t, err)
	assert.Len(t, batches, 2)
}
