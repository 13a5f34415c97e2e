package importer

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/importer/internal/common"
	"spendwise/importer/internal/ledger"
	"spendwise/importer/internal/logging"
	"spendwise/importer/internal/store"
)

func newTestPipeline(t *testing.T, ttl time.Duration) (*Pipeline, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), &logging.MockLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	svc := ledger.New(s, &logging.MockLogger{}, "Uncategorized", "Uncategorized")
	return New(svc, &logging.MockLogger{}, ttl, "Uncategorized", "Uncategorized"), s
}

func paytmMatrix() Matrix {
	return Matrix{
		Header: []string{"Date", "Description", "Amount", "Status", "Tags"},
		Rows: [][]string{
			{"16/02/2026", "ZOMATO ORDER", "-240.00", "SUCCESS", "#Food & Dining: Delivery"},
			{"17/02/2026", "SALARY FEB", "50000.00", "SUCCESS", ""},
			{"17/02/2026", "FAILED UPI", "-99.00", "FAILED", ""},
		},
	}
}

func stageOptions() StageOptions {
	return StageOptions{
		Source:   "paytm",
		Filename: "statement.csv",
		Account:  "Paytm Wallet",
		Currency: "INR",
		Ledger:   "Personal",
	}
}

func TestStageBuildsPreview(t *testing.T) {
	p, _ := newTestPipeline(t, time.Minute)

	preview, err := p.Stage(paytmMatrix(), stageOptions())
	require.NoError(t, err)

	assert.NotEmpty(t, preview.Token)
	assert.NotEmpty(t, preview.Fingerprint)
	assert.Equal(t, 2, preview.CandidateCount)
	assert.Equal(t, 1, preview.SkippedCount)
	assert.False(t, preview.DuplicateWarning)

	peeked, err := p.Peek(preview.Token)
	require.NoError(t, err)
	assert.Equal(t, preview.Token, peeked.Token)
}

func TestStageRejectsUnmappableMatrix(t *testing.T) {
	p, _ := newTestPipeline(t, time.Minute)

	_, err := p.Stage(Matrix{Header: []string{"one"}, Rows: [][]string{{"x"}}}, stageOptions())
	assert.Error(t, err)
}

func TestPreviewExpiry(t *testing.T) {
	p, _ := newTestPipeline(t, 20*time.Millisecond)

	preview, err := p.Stage(paytmMatrix(), stageOptions())
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = p.Peek(preview.Token)
	assert.ErrorIs(t, err, ErrPreviewExpired)

	_, err = p.Confirm(preview.Token, nil, Policy{})
	assert.ErrorIs(t, err, ErrPreviewExpired)
}

func TestDiscard(t *testing.T) {
	p, _ := newTestPipeline(t, time.Minute)

	preview, err := p.Stage(paytmMatrix(), stageOptions())
	require.NoError(t, err)

	p.Discard(preview.Token)
	_, err = p.Peek(preview.Token)
	assert.ErrorIs(t, err, ErrPreviewExpired)
}

func TestConfirmCommitsBatch(t *testing.T) {
	p, s := newTestPipeline(t, time.Minute)
	_, err := s.CreateAccount("Paytm Wallet", decimal.RequireFromString("1000"))
	require.NoError(t, err)

	preview, err := p.Stage(paytmMatrix(), stageOptions())
	require.NoError(t, err)

	policy := Policy{CreateCategories: true, CreateSubcategories: true}
	summary, err := p.Confirm(preview.Token, nil, policy)
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Created)
	assert.Equal(t, int64(1), summary.Skipped)
	assert.Equal(t, int64(0), summary.Duplicates)
	assert.Equal(t, int64(1), summary.CategoriesCreated)
	assert.Equal(t, int64(1), summary.SubcategoriesCreated)

	// Balance: 1000 - 240 + 50000.
	account, err := s.GetAccount("Paytm Wallet")
	require.NoError(t, err)
	assert.Equal(t, "50760", account.CurrentBalance.String())

	batch, err := s.GetBatch(summary.BatchID)
	require.NoError(t, err)
	assert.Equal(t, store.BatchStatusCompleted, batch.Status)
	assert.Equal(t, "paytm", batch.Source)

	// The preview is consumed.
	_, err = p.Peek(preview.Token)
	assert.ErrorIs(t, err, ErrPreviewExpired)
}

func TestConfirmDeduplicatesIdenticalRows(t *testing.T) {
	p, _ := newTestPipeline(t, time.Minute)

	matrix := Matrix{
		Header: []string{"Date", "Description", "Amount"},
		Rows: [][]string{
			{"16/02/2026", "ZOMATO ORDER", "-240.00"},
			{"16/02/2026", "ZOMATO ORDER", "-240.00"},
		},
	}

	preview, err := p.Stage(matrix, stageOptions())
	require.NoError(t, err)

	summary, err := p.Confirm(preview.Token, nil, Policy{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Created)
	assert.Equal(t, int64(1), summary.Duplicates)
}

func TestConfirmPolicyOffUsesFallback(t *testing.T) {
	p, s := newTestPipeline(t, time.Minute)

	preview, err := p.Stage(paytmMatrix(), stageOptions())
	require.NoError(t, err)

	summary, err := p.Confirm(preview.Token, nil, Policy{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.CategoriesCreated)
	assert.Equal(t, int64(0), summary.AccountsCreated)

	txs, err := s.ListTransactionsByBatch(summary.BatchID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	for _, tx := range txs {
		assert.Equal(t, "Uncategorized", tx.Category)
		// Account creation is off, so the rows stay unassigned.
		assert.Empty(t, tx.Account)
	}

	categories, err := s.ListCategories()
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestConfirmCreatesAccountsOncePerBatch(t *testing.T) {
	p, s := newTestPipeline(t, time.Minute)

	preview, err := p.Stage(paytmMatrix(), stageOptions())
	require.NoError(t, err)

	summary, err := p.Confirm(preview.Token, nil, Policy{CreateAccounts: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.AccountsCreated)

	account, err := s.GetAccount("Paytm Wallet")
	require.NoError(t, err)
	// Auto-created accounts start at zero: 0 - 240 + 50000.
	assert.Equal(t, "49760", account.CurrentBalance.String())
}

func TestConfirmMappingOverrides(t *testing.T) {
	p, s := newTestPipeline(t, time.Minute)

	matrix := Matrix{
		Header: []string{"Date", "Counterparty", "Memo", "Amount"},
		Rows: [][]string{
			{"16/02/2026", "ZOMATO", "dinner", "-240.00"},
		},
	}

	preview, err := p.Stage(matrix, stageOptions())
	require.NoError(t, err)
	// Inference has no description column for "Counterparty".
	_, mapped := preview.Mapping[ColDescription]
	assert.False(t, mapped)

	summary, err := p.Confirm(preview.Token, Mapping{ColDescription: 1}, Policy{})
	require.NoError(t, err)
	require.Equal(t, int64(1), summary.Created)

	txs, err := s.ListTransactionsByBatch(summary.BatchID)
	require.NoError(t, err)
	assert.Equal(t, "ZOMATO", txs[0].Merchant)
}

func TestReimportWarnsAndCommitNoDuplicates(t *testing.T) {
	p, _ := newTestPipeline(t, time.Minute)

	first, err := p.Stage(paytmMatrix(), stageOptions())
	require.NoError(t, err)
	_, err = p.Confirm(first.Token, nil, Policy{})
	require.NoError(t, err)

	second, err := p.Stage(paytmMatrix(), stageOptions())
	require.NoError(t, err)
	assert.True(t, second.DuplicateWarning)
	assert.NotEmpty(t, second.PriorBatchID)

	summary, err := p.Confirm(second.Token, nil, Policy{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.Created)
	assert.Equal(t, int64(2), summary.Duplicates)
}

func TestRollbackRestoresBalances(t *testing.T) {
	p, s := newTestPipeline(t, time.Minute)
	_, err := s.CreateAccount("Paytm Wallet", decimal.RequireFromString("1000"))
	require.NoError(t, err)

	preview, err := p.Stage(paytmMatrix(), stageOptions())
	require.NoError(t, err)
	summary, err := p.Confirm(preview.Token, nil, Policy{CreateCategories: true})
	require.NoError(t, err)

	result, err := p.Rollback(summary.BatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Deleted)

	account, err := s.GetAccount("Paytm Wallet")
	require.NoError(t, err)
	assert.Equal(t, "1000", account.CurrentBalance.String())

	batch, err := s.GetBatch(summary.BatchID)
	require.NoError(t, err)
	assert.Equal(t, store.BatchStatusRolledBack, batch.Status)

	// Auto-created entities survive the rollback.
	categories, err := s.ListCategories()
	require.NoError(t, err)
	assert.Contains(t, categories, "Food & Dining")

	_, err = p.Rollback(summary.BatchID)
	assert.Error(t, err)

	_, err = p.Rollback("no-such-batch")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRollbackAllowsCleanReimport(t *testing.T) {
	p, _ := newTestPipeline(t, time.Minute)

	first, err := p.Stage(paytmMatrix(), stageOptions())
	require.NoError(t, err)
	summary, err := p.Confirm(first.Token, nil, Policy{})
	require.NoError(t, err)

	_, err = p.Rollback(summary.BatchID)
	require.NoError(t, err)

	second, err := p.Stage(paytmMatrix(), stageOptions())
	require.NoError(t, err)
	assert.False(t, second.DuplicateWarning)

	again, err := p.Confirm(second.Token, nil, Policy{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.Created)
}

func TestExportCSV(t *testing.T) {
	p, _ := newTestPipeline(t, time.Minute)

	preview, err := p.Stage(paytmMatrix(), stageOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.ExportCSV(preview.Token, &buf, ','))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(common.Header, ","), lines[0])
	assert.Contains(t, lines[1], "ZOMATO ORDER")
	assert.Contains(t, lines[1], "Expense")
	assert.Contains(t, lines[2], "Income")

	// Nothing was committed.
	batches, err := p.History(10)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestHistory(t *testing.T) {
	p, _ := newTestPipeline(t, time.Minute)

	preview, err := p.Stage(paytmMatrix(), stageOptions())
	require.NoError(t, err)
	summary, err := p.Confirm(preview.Token, nil, Policy{})
	require.NoError(t, err)

	batches, err := p.History(10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, summary.BatchID, batches[0].ID)
	assert.Equal(t, "statement.csv", batches[0].Filename)
}

func TestConfirmFailureKeepsBatchRevertable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	s, err := store.Open(path, &logging.MockLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	svc := ledger.New(s, &logging.MockLogger{}, "Uncategorized", "Uncategorized")
	p := New(svc, &logging.MockLogger{}, time.Minute, "Uncategorized", "Uncategorized")

	_, err = s.CreateAccount("Paytm Wallet", decimal.RequireFromString("1000"))
	require.NoError(t, err)

	// Plant a row the balance recomputation cannot parse, so reconciliation
	// fails after the batch rows are inserted.
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	_, err = raw.Exec(`INSERT INTO transactions (idempotency_key, amount, date, direction, account)
		VALUES ('poison', 'garbage', '2026-01-01', 'Expense', 'Paytm Wallet')`)
	require.NoError(t, err)

	matrix := Matrix{
		Header: []string{"Date", "Description", "Amount", "Tags"},
		Rows: [][]string{
			{"16/02/2026", "LATE NIGHT MAGGI", "-120.00", "#Snacks: Noodles"},
		},
	}
	preview, err := p.Stage(matrix, stageOptions())
	require.NoError(t, err)

	policy := Policy{CreateCategories: true, CreateSubcategories: true}
	summary, err := p.Confirm(preview.Token, nil, policy)
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, int64(1), summary.Created)

	// The partial commit has a batch row and stays revertable.
	batch, err := s.GetBatch(summary.BatchID)
	require.NoError(t, err)
	assert.Equal(t, store.BatchStatusStaged, batch.Status)
	assert.Equal(t, int64(1), batch.CreatedCount)
	inserted, err := s.ListTransactionsByBatch(summary.BatchID)
	require.NoError(t, err)
	require.Len(t, inserted, 1)

	// The cached preview still carries the originally staged values.
	peeked, err := p.Peek(preview.Token)
	require.NoError(t, err)
	require.NotNil(t, peeked.Staged[0].Candidate)
	assert.Equal(t, "Snacks", peeked.Staged[0].Candidate.Category)
	assert.Equal(t, "Noodles", peeked.Staged[0].Candidate.Subcategory)

	// Clear the bad row and retry: the earlier insert makes the row a
	// duplicate, and no fallback bucket leaks into the category table.
	_, err = raw.Exec(`DELETE FROM transactions WHERE idempotency_key = 'poison'`)
	require.NoError(t, err)

	retry, err := p.Confirm(preview.Token, nil, policy)
	require.NoError(t, err)
	assert.Equal(t, int64(0), retry.Created)
	assert.Equal(t, int64(1), retry.Duplicates)

	categories, err := s.ListCategories()
	require.NoError(t, err)
	assert.Contains(t, categories, "Snacks")
	assert.NotContains(t, categories, "Uncategorized")

	// The failed batch can be rolled back and the balance recovers.
	result, err := p.Rollback(summary.BatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Deleted)

	account, err := s.GetAccount("Paytm Wallet")
	require.NoError(t, err)
	assert.True(t, account.CurrentBalance.Equal(decimal.RequireFromString("1000")),
		"got %s", account.CurrentBalance)
}
