// Package ledger owns transaction mutations and keeps account balances
// consistent with the transaction log.
package ledger

import (
	"errors"
	"fmt"

	"spendwise/importer/internal/classifier"
	"spendwise/importer/internal/dedupe"
	"spendwise/importer/internal/logging"
	"spendwise/importer/internal/models"
	"spendwise/importer/internal/parsererror"
	"spendwise/importer/internal/store"
)

// Service mutates transactions and reconciles balances after each change.
type Service struct {
	store               *store.Store
	logger              logging.Logger
	fallbackCategory    string
	fallbackSubcategory string
}

// New creates a ledger Service.
func New(s *store.Store, logger logging.Logger, fallbackCategory, fallbackSubcategory string) *Service {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if fallbackCategory == "" {
		fallbackCategory = "Uncategorized"
	}
	if fallbackSubcategory == "" {
		fallbackSubcategory = "Uncategorized"
	}
	return &Service{
		store:               s,
		logger:              logger,
		fallbackCategory:    fallbackCategory,
		fallbackSubcategory: fallbackSubcategory,
	}
}

// Store exposes the underlying store for read paths.
func (s *Service) Store() *store.Store {
	return s.store
}

// Record classifies, dedupes, and persists a candidate, then reconciles the
// affected account. A Duplicate result returns the already-stored state
// untouched.
func (s *Service) Record(candidate *models.Candidate, table *classifier.Table) (*models.Transaction, dedupe.Result, error) {
	tx := s.build(candidate, table)

	result, err := dedupe.Reserve(s.store, tx)
	if err != nil {
		return nil, result, fmt.Errorf("reserving transaction: %w", err)
	}
	if result == dedupe.Duplicate {
		s.logger.Info("duplicate transaction ignored",
			logging.Field{Key: "key", Value: tx.IdempotencyKey})
		return tx, result, nil
	}

	if tx.Account != "" {
		if err := s.Reconcile(tx.Account); err != nil {
			return tx, result, err
		}
	}

	s.logger.Info("transaction recorded",
		logging.Field{Key: "id", Value: tx.ID},
		logging.Field{Key: "account", Value: tx.Account},
		logging.Field{Key: "amount", Value: tx.Amount.String()},
		logging.Field{Key: "direction", Value: string(tx.Direction)})
	return tx, result, nil
}

// Update rewrites a transaction and reconciles both the old and new accounts
// when the transaction moved.
func (s *Service) Update(tx *models.Transaction) error {
	previous, err := s.store.GetTransaction(tx.ID)
	if err != nil {
		return err
	}

	if err := s.store.UpdateTransaction(tx); err != nil {
		return err
	}

	if err := s.reconcileTouched(previous.Account, tx.Account); err != nil {
		return err
	}

	s.logger.Info("transaction updated", logging.Field{Key: "id", Value: tx.ID})
	return nil
}

// Delete removes a transaction and reconciles its account.
func (s *Service) Delete(id int64) error {
	tx, err := s.store.GetTransaction(id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteTransaction(id); err != nil {
		return err
	}

	if tx.Account != "" {
		if err := s.Reconcile(tx.Account); err != nil {
			return err
		}
	}

	s.logger.Info("transaction deleted", logging.Field{Key: "id", Value: id})
	return nil
}

// Reconcile recomputes the account's balance from scratch:
// initial + income total - expense total. Unknown accounts are skipped so
// transactions may reference accounts that are not tracked.
func (s *Service) Reconcile(account string) error {
	stored, err := s.store.GetAccount(account)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("account not tracked, skipping reconciliation",
			logging.Field{Key: "account", Value: account})
		return nil
	}
	if err != nil {
		return s.conflict(account, err)
	}

	income, err := s.store.SumByDirection(account, models.Income)
	if err != nil {
		return s.conflict(account, err)
	}
	expense, err := s.store.SumByDirection(account, models.Expense)
	if err != nil {
		return s.conflict(account, err)
	}

	balance := stored.InitialBalance.Add(income).Sub(expense)
	if err := s.store.UpdateAccountBalance(account, balance); err != nil {
		return s.conflict(account, err)
	}

	s.logger.Debug("account reconciled",
		logging.Field{Key: "account", Value: account},
		logging.Field{Key: "balance", Value: balance.String()})
	return nil
}

// build converts a candidate into a transaction, applying classification and
// the fallback bucket, and computing the idempotency key.
func (s *Service) build(candidate *models.Candidate, table *classifier.Table) *models.Transaction {
	category := candidate.Category
	subcategory := candidate.Subcategory

	if category == "" && table != nil {
		if match, ok := table.Classify(candidate.Merchant); ok {
			category = match.Category
			subcategory = match.Subcategory
			if entry := match.Entry; entry.ID != 0 && !entry.UserDefined {
				if err := s.store.UpdateKeywordMatchCount(entry); err != nil {
					s.logger.WithError(err).Warn("failed to persist keyword counter",
						logging.Field{Key: "keyword", Value: entry.Keyword})
				}
			}
		}
	}
	if category == "" {
		category = s.fallbackCategory
		subcategory = s.fallbackSubcategory
	}

	recorder := candidate.Recorder
	if recorder == "" {
		recorder = models.RecorderManual
	}

	return &models.Transaction{
		IdempotencyKey: dedupe.Key(candidate),
		Ledger:         candidate.Ledger,
		Category:       category,
		Subcategory:    subcategory,
		Currency:       candidate.Currency,
		Amount:         models.NewAmount(candidate.Amount),
		Account:        candidate.Account,
		Recorder:       recorder,
		Date:           candidate.Date,
		Time:           candidate.Time,
		Merchant:       candidate.Merchant,
		Direction:      candidate.Direction,
	}
}

func (s *Service) reconcileTouched(previous, current string) error {
	if previous != "" {
		if err := s.Reconcile(previous); err != nil {
			return err
		}
	}
	if current != "" && !equalFold(previous, current) {
		if err := s.Reconcile(current); err != nil {
			return err
		}
	}
	return nil
}

// conflict wraps busy errors as retryable conflicts, passing other failures
// through unchanged.
func (s *Service) conflict(account string, err error) error {
	if errors.Is(err, store.ErrBusy) {
		return parsererror.NewReconciliationConflictError(account, err)
	}
	return err
}

func equalFold(a, b string) bool {
	return models.NormalizeMerchant(a) == models.NormalizeMerchant(b)
}
