package importer

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"spendwise/importer/internal/classifier"
	"spendwise/importer/internal/common"
	"spendwise/importer/internal/dedupe"
	"spendwise/importer/internal/ledger"
	"spendwise/importer/internal/logging"
	"spendwise/importer/internal/models"
	"spendwise/importer/internal/store"
)

// ErrPreviewExpired means the staged preview is gone: expired, discarded,
// or already confirmed.
var ErrPreviewExpired = errors.New("preview expired")

// Matrix is an already-decoded tabular file: a header row plus data rows.
type Matrix struct {
	Header []string
	Rows   [][]string
}

// StageOptions carries per-file defaults applied while building candidates.
type StageOptions struct {
	Source   string
	Filename string
	Account  string
	Currency string
	Ledger   string
	Mapping  Mapping
}

// Policy controls which referenced entities Confirm may create.
type Policy struct {
	CreateCategories    bool
	CreateSubcategories bool
	CreateAccounts      bool
}

// Preview is a staged import awaiting confirmation.
type Preview struct {
	Token            string
	Fingerprint      string
	Matrix           Matrix
	Mapping          Mapping
	Options          StageOptions
	Staged           []Row
	CandidateCount   int
	SkippedCount     int
	DuplicateWarning bool
	PriorBatchID     string
	CreatedAt        time.Time
}

// Summary reports what a confirmed import did.
type Summary struct {
	BatchID              string
	Created              int64
	Skipped              int64
	Duplicates           int64
	CategoriesCreated    int64
	SubcategoriesCreated int64
	AccountsCreated      int64
}

// RollbackResult reports what a rollback removed.
type RollbackResult struct {
	BatchID  string
	Deleted  int64
	Accounts []string
}

// Pipeline runs the staged import flow against the ledger and store.
type Pipeline struct {
	ledger              *ledger.Service
	store               *store.Store
	logger              logging.Logger
	previews            *gocache.Cache
	fallbackCategory    string
	fallbackSubcategory string
}

// New creates a Pipeline whose previews live for ttl.
func New(ledgerSvc *ledger.Service, logger logging.Logger, ttl time.Duration, fallbackCategory, fallbackSubcategory string) *Pipeline {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if fallbackCategory == "" {
		fallbackCategory = "Uncategorized"
	}
	if fallbackSubcategory == "" {
		fallbackSubcategory = "Uncategorized"
	}
	return &Pipeline{
		ledger:              ledgerSvc,
		store:               ledgerSvc.Store(),
		logger:              logger,
		previews:            gocache.New(ttl, ttl/2),
		fallbackCategory:    fallbackCategory,
		fallbackSubcategory: fallbackSubcategory,
	}
}

// Stage builds a preview from the matrix and parks it under a fresh token.
// Nothing is persisted; the preview only lives in the TTL cache.
func (p *Pipeline) Stage(matrix Matrix, opts StageOptions) (*Preview, error) {
	mapping := opts.Mapping
	if mapping == nil {
		mapping = InferMapping(matrix.Header)
	}
	if err := mapping.Validate(maxWidth(matrix)); err != nil {
		return nil, err
	}

	preview := &Preview{
		Token:       uuid.NewString(),
		Fingerprint: dedupe.FileFingerprint(matrix.Header, matrix.Rows),
		Matrix:      matrix,
		Mapping:     mapping,
		Options:     opts,
		CreatedAt:   time.Now(),
	}
	preview.Staged = stageRows(mapping, matrix.Rows, opts)
	for _, row := range preview.Staged {
		if row.Candidate != nil {
			preview.CandidateCount++
		} else {
			preview.SkippedCount++
		}
	}

	prior, err := p.store.FindBatchByFingerprint(preview.Fingerprint)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if prior != nil && prior.Status != store.BatchStatusRolledBack {
		preview.DuplicateWarning = true
		preview.PriorBatchID = prior.ID
	}

	p.previews.SetDefault(preview.Token, preview)

	p.logger.Info("import staged",
		logging.Field{Key: "token", Value: preview.Token},
		logging.Field{Key: "candidates", Value: preview.CandidateCount},
		logging.Field{Key: "skipped", Value: preview.SkippedCount},
		logging.Field{Key: "duplicate_file", Value: preview.DuplicateWarning})
	return preview, nil
}

// Peek returns the staged preview for a token.
func (p *Pipeline) Peek(token string) (*Preview, error) {
	cached, found := p.previews.Get(token)
	if !found {
		return nil, ErrPreviewExpired
	}
	return cached.(*Preview), nil
}

// Discard drops a staged preview without committing anything.
func (p *Pipeline) Discard(token string) {
	p.previews.Delete(token)
}

// Confirm commits a staged preview: every candidate is classified, resolved
// against the entity tables per the policy, reserved, and inserted under a
// fresh batch id. The batch row is written as staged before the affected
// accounts reconcile and flipped to completed afterwards, so a confirm that
// fails mid-way leaves a batch that can still be rolled back. Partial success
// is allowed; the summary reports what actually happened.
func (p *Pipeline) Confirm(token string, overrides Mapping, policy Policy) (*Summary, error) {
	preview, err := p.Peek(token)
	if err != nil {
		return nil, err
	}

	staged := preview.Staged
	if len(overrides) > 0 {
		mapping := preview.Mapping.Merge(overrides)
		if err := mapping.Validate(maxWidth(preview.Matrix)); err != nil {
			return nil, err
		}
		staged = stageRows(mapping, preview.Matrix.Rows, preview.Options)
	}

	entries, err := p.store.LoadKeywords()
	if err != nil {
		return nil, fmt.Errorf("loading keyword table: %w", err)
	}
	table := classifier.NewTable(entries, p.logger)

	summary := &Summary{BatchID: uuid.NewString()}
	resolver := newEntityResolver(p, policy, summary)
	touchedKeywords := make(map[int64]*classifier.Entry)
	touchedAccounts := make(map[string]string)

	for _, row := range staged {
		if row.Candidate == nil {
			summary.Skipped++
			continue
		}
		// Work on a copy so the cached preview stays pristine; a failed
		// confirm must be retryable with the originally staged values.
		copied := *row.Candidate
		candidate := &copied

		if candidate.Category == "" {
			if match, ok := table.Classify(candidate.Merchant); ok {
				candidate.Category = match.Category
				candidate.Subcategory = match.Subcategory
				if match.Entry.ID != 0 && !match.Entry.UserDefined {
					touchedKeywords[match.Entry.ID] = match.Entry
				}
			}
		}

		if err := resolver.resolve(candidate); err != nil {
			return nil, err
		}

		tx := &models.Transaction{
			IdempotencyKey: dedupe.Key(candidate),
			BatchID:        summary.BatchID,
			Ledger:         candidate.Ledger,
			Category:       candidate.Category,
			Subcategory:    candidate.Subcategory,
			Currency:       candidate.Currency,
			Amount:         models.NewAmount(candidate.Amount),
			Account:        candidate.Account,
			Recorder:       models.RecorderImport,
			Date:           candidate.Date,
			Time:           candidate.Time,
			Merchant:       candidate.Merchant,
			Direction:      candidate.Direction,
		}

		result, err := dedupe.Reserve(p.store, tx)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Number, err)
		}
		if result == dedupe.Duplicate {
			summary.Duplicates++
			continue
		}
		summary.Created++
		if tx.Account != "" {
			touchedAccounts[models.NormalizeMerchant(tx.Account)] = tx.Account
		}
	}

	for _, entry := range touchedKeywords {
		if err := p.store.UpdateKeywordMatchCount(entry); err != nil {
			p.logger.WithError(err).Warn("failed to persist keyword counter",
				logging.Field{Key: "keyword", Value: entry.Keyword})
		}
	}

	// Record the batch before reconciling so a reconciliation failure never
	// leaves inserted transactions without a batch row; a staged batch can
	// still be rolled back.
	batch := &store.Batch{
		ID:                   summary.BatchID,
		Fingerprint:          preview.Fingerprint,
		Source:               preview.Options.Source,
		Filename:             preview.Options.Filename,
		Status:               store.BatchStatusStaged,
		CreatedCount:         summary.Created,
		SkippedCount:         summary.Skipped,
		DuplicateCount:       summary.Duplicates,
		CategoriesCreated:    summary.CategoriesCreated,
		SubcategoriesCreated: summary.SubcategoriesCreated,
		AccountsCreated:      summary.AccountsCreated,
	}
	if err := p.store.CreateBatch(batch); err != nil {
		return summary, fmt.Errorf("recording batch: %w", err)
	}

	for _, account := range touchedAccounts {
		if err := p.ledger.Reconcile(account); err != nil {
			return summary, err
		}
	}

	if err := p.store.UpdateBatchStatus(summary.BatchID, store.BatchStatusCompleted); err != nil {
		return summary, fmt.Errorf("completing batch: %w", err)
	}

	p.previews.Delete(token)

	p.logger.Info("import confirmed",
		logging.Field{Key: "batch", Value: summary.BatchID},
		logging.Field{Key: "created", Value: summary.Created},
		logging.Field{Key: "duplicates", Value: summary.Duplicates},
		logging.Field{Key: "skipped", Value: summary.Skipped})
	return summary, nil
}

// Rollback deletes every transaction a batch created and reconciles the
// affected accounts. Entities auto-created during the import are kept.
func (p *Pipeline) Rollback(batchID string) (*RollbackResult, error) {
	batch, err := p.store.GetBatch(batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status == store.BatchStatusRolledBack {
		return nil, fmt.Errorf("batch %s already rolled back", batchID)
	}

	deleted, accounts, err := p.store.DeleteTransactionsByBatch(batchID)
	if err != nil {
		return nil, err
	}
	if err := p.store.UpdateBatchStatus(batchID, store.BatchStatusRolledBack); err != nil {
		return nil, err
	}

	for _, account := range accounts {
		if err := p.ledger.Reconcile(account); err != nil {
			return nil, err
		}
	}

	p.logger.Info("import rolled back",
		logging.Field{Key: "batch", Value: batchID},
		logging.Field{Key: "deleted", Value: deleted})
	return &RollbackResult{BatchID: batchID, Deleted: deleted, Accounts: accounts}, nil
}

// ExportCSV renders the staged candidates as canonical CSV without
// committing anything.
func (p *Pipeline) ExportCSV(token string, w io.Writer, delimiter rune) error {
	preview, err := p.Peek(token)
	if err != nil {
		return err
	}

	var transactions []*models.Transaction
	for _, row := range preview.Staged {
		if row.Candidate == nil {
			continue
		}
		c := row.Candidate
		category, subcategory := c.Category, c.Subcategory
		if category == "" {
			category, subcategory = p.fallbackCategory, p.fallbackSubcategory
		}
		transactions = append(transactions, &models.Transaction{
			Ledger:      c.Ledger,
			Category:    category,
			Subcategory: subcategory,
			Currency:    c.Currency,
			Amount:      models.NewAmount(c.Amount),
			Account:     c.Account,
			Recorder:    models.RecorderImport,
			Date:        c.Date,
			Time:        c.Time,
			Merchant:    c.Merchant,
			Direction:   c.Direction,
		})
	}
	return common.WriteTransactions(w, transactions, delimiter)
}

// History lists recorded batches, newest first.
func (p *Pipeline) History(limit int) ([]*store.Batch, error) {
	return p.store.ListBatches(limit)
}

func stageRows(mapping Mapping, rows [][]string, opts StageOptions) []Row {
	staged := make([]Row, 0, len(rows))
	for i, row := range rows {
		// Row numbers are 1-based and count the header.
		staged = append(staged, buildRow(mapping, row, i+2, opts))
	}
	return staged
}

func maxWidth(matrix Matrix) int {
	width := len(matrix.Header)
	for _, row := range matrix.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// entityResolver applies the creation policy to categories, subcategories,
// and accounts, creating each missing name at most once per batch.
type entityResolver struct {
	pipeline *Pipeline
	policy   Policy
	summary  *Summary

	createdCategories    map[string]bool
	createdSubcategories map[string]bool
	createdAccounts      map[string]bool
}

func newEntityResolver(p *Pipeline, policy Policy, summary *Summary) *entityResolver {
	return &entityResolver{
		pipeline:             p,
		policy:               policy,
		summary:              summary,
		createdCategories:    make(map[string]bool),
		createdSubcategories: make(map[string]bool),
		createdAccounts:      make(map[string]bool),
	}
}

func (r *entityResolver) resolve(candidate *models.Candidate) error {
	category, err := r.resolveCategory(candidate.Category)
	if err != nil {
		return err
	}
	if category == r.pipeline.fallbackCategory && candidate.Category != r.pipeline.fallbackCategory {
		candidate.Subcategory = r.pipeline.fallbackSubcategory
	}
	candidate.Category = category

	if candidate.Subcategory != "" && candidate.Subcategory != r.pipeline.fallbackSubcategory {
		subcategory, err := r.resolveSubcategory(candidate.Category, candidate.Subcategory)
		if err != nil {
			return err
		}
		candidate.Subcategory = subcategory
	}

	account, err := r.resolveAccount(candidate.Account)
	if err != nil {
		return err
	}
	candidate.Account = account
	return nil
}

func (r *entityResolver) resolveCategory(name string) (string, error) {
	if name == "" {
		return r.pipeline.fallbackCategory, nil
	}

	stored, err := r.pipeline.store.GetCategory(name)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	if !r.policy.CreateCategories {
		return r.pipeline.fallbackCategory, nil
	}

	key := models.NormalizeMerchant(name)
	if !r.createdCategories[key] {
		if err := r.pipeline.store.CreateCategory(name); err != nil && !errors.Is(err, store.ErrDuplicateKey) {
			return "", err
		}
		r.createdCategories[key] = true
		r.summary.CategoriesCreated++
	}
	return name, nil
}

func (r *entityResolver) resolveSubcategory(category, name string) (string, error) {
	stored, err := r.pipeline.store.GetSubcategory(category, name)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	if !r.policy.CreateSubcategories {
		return r.pipeline.fallbackSubcategory, nil
	}

	key := models.NormalizeMerchant(category + "/" + name)
	if !r.createdSubcategories[key] {
		if err := r.pipeline.store.CreateSubcategory(category, name); err != nil && !errors.Is(err, store.ErrDuplicateKey) {
			return "", err
		}
		r.createdSubcategories[key] = true
		r.summary.SubcategoriesCreated++
	}
	return name, nil
}

func (r *entityResolver) resolveAccount(name string) (string, error) {
	if name == "" {
		return "", nil
	}

	stored, err := r.pipeline.store.GetAccount(name)
	if err == nil {
		return stored.Name, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	if !r.policy.CreateAccounts {
		// Unresolvable account: keep the transaction but leave it unassigned.
		return "", nil
	}

	key := models.NormalizeMerchant(name)
	if !r.createdAccounts[key] {
		if _, err := r.pipeline.store.CreateAccount(name, decimal.Zero); err != nil && !errors.Is(err, store.ErrDuplicateKey) {
			return "", err
		}
		r.createdAccounts[key] = true
		r.summary.AccountsCreated++
	}
	return name, nil
}
