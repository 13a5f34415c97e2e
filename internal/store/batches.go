package store

// Batch statuses.
const (
	BatchStatusStaged     = "staged"
	BatchStatusCompleted  = "completed"
	BatchStatusRolledBack = "rolled_back"
)

// Batch is the persisted record of one confirmed import.
type Batch struct {
	ID                   string
	Fingerprint          string
	Source               string
	Filename             string
	Status               string
	CreatedCount         int64
	SkippedCount         int64
	DuplicateCount       int64
	CategoriesCreated    int64
	SubcategoriesCreated int64
	AccountsCreated      int64
	CreatedAt            string
}

// CreateBatch inserts a batch row.
func (s *Store) CreateBatch(batch *Batch) error {
	_, err := s.db.Exec(`
		INSERT INTO import_batches (id, fingerprint, source, filename, status,
			created_count, skipped_count, duplicate_count,
			categories_created, subcategories_created, accounts_created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.Fingerprint, batch.Source, batch.Filename, batch.Status,
		batch.CreatedCount, batch.SkippedCount, batch.DuplicateCount,
		batch.CategoriesCreated, batch.SubcategoriesCreated, batch.AccountsCreated)
	return mapError(err)
}

// GetBatch fetches a batch by id.
func (s *Store) GetBatch(id string) (*Batch, error) {
	row := s.db.QueryRow(batchSelect+` WHERE id = ?`, id)
	return scanBatch(row)
}

// FindBatchByFingerprint returns the most recent batch sharing the file
// fingerprint, if any. Fingerprints are not unique: re-imports are allowed
// and only produce a warning.
func (s *Store) FindBatchByFingerprint(fingerprint string) (*Batch, error) {
	row := s.db.QueryRow(batchSelect+`
		WHERE fingerprint = ? ORDER BY created_at DESC, id DESC LIMIT 1`, fingerprint)
	return scanBatch(row)
}

// ListBatches returns batches, newest first.
func (s *Store) ListBatches(limit int) ([]*Batch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(batchSelect+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// UpdateBatchStatus flips a batch's status.
func (s *Store) UpdateBatchStatus(id, status string) error {
	result, err := s.db.Exec(`UPDATE import_batches SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

const batchSelect = `
	SELECT id, fingerprint, source, filename, status,
		created_count, skipped_count, duplicate_count,
		categories_created, subcategories_created, accounts_created, created_at
	FROM import_batches`

func scanBatch(row rowScanner) (*Batch, error) {
	var batch Batch
	err := row.Scan(&batch.ID, &batch.Fingerprint, &batch.Source, &batch.Filename,
		&batch.Status, &batch.CreatedCount, &batch.SkippedCount, &batch.DuplicateCount,
		&batch.CategoriesCreated, &batch.SubcategoriesCreated, &batch.AccountsCreated,
		&batch.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &batch, nil
}
