package store

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Account is a money source or destination with a tracked balance.
type Account struct {
	ID             int64
	Name           string
	InitialBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	Active         bool
	CreatedAt      string
}

// CreateAccount inserts an account. Name uniqueness is case-insensitive.
func (s *Store) CreateAccount(name string, initialBalance decimal.Decimal) (*Account, error) {
	result, err := s.db.Exec(`
		INSERT INTO accounts (name, initial_balance, current_balance)
		VALUES (?, ?, ?)`,
		name, initialBalance.String(), initialBalance.String())
	if err != nil {
		return nil, mapError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Account{
		ID:             id,
		Name:           name,
		InitialBalance: initialBalance,
		CurrentBalance: initialBalance,
		Active:         true,
	}, nil
}

// GetAccount fetches an account by name, case-insensitively.
func (s *Store) GetAccount(name string) (*Account, error) {
	row := s.db.QueryRow(`
		SELECT id, name, initial_balance, current_balance, active, created_at
		FROM accounts WHERE name = ? COLLATE NOCASE`, name)

	var account Account
	var initial, current string
	var active int
	if err := row.Scan(&account.ID, &account.Name, &initial, &current, &active, &account.CreatedAt); err != nil {
		return nil, mapError(err)
	}

	var err error
	if account.InitialBalance, err = decimal.NewFromString(initial); err != nil {
		return nil, fmt.Errorf("corrupt initial balance for %q: %w", name, err)
	}
	if account.CurrentBalance, err = decimal.NewFromString(current); err != nil {
		return nil, fmt.Errorf("corrupt current balance for %q: %w", name, err)
	}
	account.Active = active != 0
	return &account, nil
}

// ListAccounts returns all accounts in name order.
func (s *Store) ListAccounts() ([]*Account, error) {
	rows, err := s.db.Query(`
		SELECT id, name, initial_balance, current_balance, active, created_at
		FROM accounts ORDER BY name`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		var account Account
		var initial, current string
		var active int
		if err := rows.Scan(&account.ID, &account.Name, &initial, &current, &active, &account.CreatedAt); err != nil {
			return nil, err
		}
		if account.InitialBalance, err = decimal.NewFromString(initial); err != nil {
			return nil, fmt.Errorf("corrupt initial balance for %q: %w", account.Name, err)
		}
		if account.CurrentBalance, err = decimal.NewFromString(current); err != nil {
			return nil, fmt.Errorf("corrupt current balance for %q: %w", account.Name, err)
		}
		account.Active = active != 0
		accounts = append(accounts, &account)
	}
	return accounts, rows.Err()
}

// UpdateAccountBalance writes a recomputed current balance.
func (s *Store) UpdateAccountBalance(name string, balance decimal.Decimal) error {
	result, err := s.db.Exec(`
		UPDATE accounts SET current_balance = ? WHERE name = ? COLLATE NOCASE`,
		balance.String(), name)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}
