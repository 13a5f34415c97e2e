package store

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"spendwise/importer/internal/models"
)

const transactionColumns = `id, idempotency_key, batch_id, ledger, category, subcategory,
	currency, amount, account, recorder, date, time, note, direction, created_at, updated_at`

// InsertTransaction inserts the transaction and returns its row id. A
// collision on the idempotency key returns ErrDuplicateKey; the caller treats
// that as an outcome, not a failure.
func (s *Store) InsertTransaction(tx *models.Transaction) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO transactions (idempotency_key, batch_id, ledger, category, subcategory,
			currency, amount, account, recorder, date, time, note, direction)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.IdempotencyKey, tx.BatchID, tx.Ledger, tx.Category, tx.Subcategory,
		tx.Currency, tx.Amount.String(), tx.Account, tx.Recorder,
		tx.Date, tx.Time, tx.Merchant, string(tx.Direction))
	if err != nil {
		return 0, mapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	tx.ID = id
	return id, nil
}

// GetTransaction fetches a transaction by row id.
func (s *Store) GetTransaction(id int64) (*models.Transaction, error) {
	row := s.db.QueryRow(`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

// UpdateTransaction rewrites the mutable columns of a transaction.
func (s *Store) UpdateTransaction(tx *models.Transaction) error {
	result, err := s.db.Exec(`
		UPDATE transactions
		SET ledger = ?, category = ?, subcategory = ?, currency = ?, amount = ?,
			account = ?, recorder = ?, date = ?, time = ?, note = ?, direction = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')
		WHERE id = ?`,
		tx.Ledger, tx.Category, tx.Subcategory, tx.Currency, tx.Amount.String(),
		tx.Account, tx.Recorder, tx.Date, tx.Time, tx.Merchant, string(tx.Direction), tx.ID)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

// DeleteTransaction removes a transaction by row id.
func (s *Store) DeleteTransaction(id int64) error {
	result, err := s.db.Exec(`DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

// ListTransactionsByAccount returns the account's transactions, newest date first.
func (s *Store) ListTransactionsByAccount(account string) ([]*models.Transaction, error) {
	rows, err := s.db.Query(`SELECT `+transactionColumns+`
		FROM transactions WHERE account = ? COLLATE NOCASE
		ORDER BY date DESC, time DESC, id DESC`, account)
	if err != nil {
		return nil, mapError(err)
	}
	return collectTransactions(rows)
}

// ListTransactionsByDateRange returns transactions with from <= date <= to.
func (s *Store) ListTransactionsByDateRange(from, to string) ([]*models.Transaction, error) {
	rows, err := s.db.Query(`SELECT `+transactionColumns+`
		FROM transactions WHERE date >= ? AND date <= ?
		ORDER BY date ASC, time ASC, id ASC`, from, to)
	if err != nil {
		return nil, mapError(err)
	}
	return collectTransactions(rows)
}

// ListTransactionsByBatch returns the transactions committed under a batch.
func (s *Store) ListTransactionsByBatch(batchID string) ([]*models.Transaction, error) {
	rows, err := s.db.Query(`SELECT `+transactionColumns+`
		FROM transactions WHERE batch_id = ? ORDER BY id ASC`, batchID)
	if err != nil {
		return nil, mapError(err)
	}
	return collectTransactions(rows)
}

// DeleteTransactionsByBatch removes every transaction tagged with the batch
// id and returns how many were removed plus the distinct accounts touched.
func (s *Store) DeleteTransactionsByBatch(batchID string) (int64, []string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT account FROM transactions WHERE batch_id = ?`, batchID)
	if err != nil {
		return 0, nil, mapError(err)
	}
	var accounts []string
	for rows.Next() {
		var account string
		if err := rows.Scan(&account); err != nil {
			rows.Close()
			return 0, nil, err
		}
		if account != "" {
			accounts = append(accounts, account)
		}
	}
	if err := rows.Close(); err != nil {
		return 0, nil, err
	}

	result, err := s.db.Exec(`DELETE FROM transactions WHERE batch_id = ?`, batchID)
	if err != nil {
		return 0, nil, mapError(err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, nil, err
	}
	return deleted, accounts, nil
}

// SumByDirection totals the account's amounts on one side of the ledger.
func (s *Store) SumByDirection(account string, direction models.Direction) (decimal.Decimal, error) {
	rows, err := s.db.Query(`SELECT amount FROM transactions
		WHERE account = ? COLLATE NOCASE AND direction = ?`, account, string(direction))
	if err != nil {
		return decimal.Zero, mapError(err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("corrupt amount %q in account %q: %w", raw, account, err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var amount, direction string
	err := row.Scan(&tx.ID, &tx.IdempotencyKey, &tx.BatchID, &tx.Ledger, &tx.Category,
		&tx.Subcategory, &tx.Currency, &amount, &tx.Account, &tx.Recorder,
		&tx.Date, &tx.Time, &tx.Merchant, &direction, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q in transaction %d: %w", amount, tx.ID, err)
	}
	tx.Amount = models.NewAmount(parsed)
	tx.Direction = models.Direction(direction)
	return &tx, nil
}

func collectTransactions(rows *sql.Rows) ([]*models.Transaction, error) {
	defer rows.Close()
	var txs []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
