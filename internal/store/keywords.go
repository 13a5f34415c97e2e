package store

import (
	"spendwise/importer/internal/classifier"
)

// LoadKeywords returns the keyword table in insertion (row id) order.
func (s *Store) LoadKeywords() ([]*classifier.Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, keyword, category, subcategory, user_defined, match_count
		FROM keywords ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []*classifier.Entry
	for rows.Next() {
		var entry classifier.Entry
		var userDefined int
		if err := rows.Scan(&entry.ID, &entry.Keyword, &entry.Category,
			&entry.Subcategory, &userDefined, &entry.MatchCount); err != nil {
			return nil, err
		}
		entry.UserDefined = userDefined != 0
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// SaveKeyword inserts a keyword rule and fills its row id.
func (s *Store) SaveKeyword(entry *classifier.Entry) error {
	userDefined := 0
	if entry.UserDefined {
		userDefined = 1
	}
	result, err := s.db.Exec(`
		INSERT INTO keywords (keyword, category, subcategory, user_defined, match_count)
		VALUES (?, ?, ?, ?, ?)`,
		entry.Keyword, entry.Category, entry.Subcategory, userDefined, entry.MatchCount)
	if err != nil {
		return mapError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

// UpdateKeywordMatchCount persists a changed counter.
func (s *Store) UpdateKeywordMatchCount(entry *classifier.Entry) error {
	result, err := s.db.Exec(`UPDATE keywords SET match_count = ? WHERE id = ?`,
		entry.MatchCount, entry.ID)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

// SeedKeywords inserts the default keyword table if the table is empty.
func (s *Store) SeedKeywords() error {
	row := s.db.QueryRow(`SELECT COUNT(*) FROM keywords`)
	var count int
	if err := row.Scan(&count); err != nil {
		return mapError(err)
	}
	if count > 0 {
		return nil
	}

	for _, entry := range classifier.DefaultEntries() {
		if err := s.SaveKeyword(entry); err != nil {
			return err
		}
	}
	s.logger.Info("seeded default keyword table")
	return nil
}
