package store

// GetCategory returns the stored name of a category matched case-insensitively.
func (s *Store) GetCategory(name string) (string, error) {
	row := s.db.QueryRow(`SELECT name FROM categories WHERE name = ? COLLATE NOCASE`, name)
	var stored string
	if err := row.Scan(&stored); err != nil {
		return "", mapError(err)
	}
	return stored, nil
}

// CreateCategory inserts a category name.
func (s *Store) CreateCategory(name string) error {
	_, err := s.db.Exec(`INSERT INTO categories (name) VALUES (?)`, name)
	return mapError(err)
}

// GetSubcategory returns the stored name of a subcategory under a category.
func (s *Store) GetSubcategory(category, name string) (string, error) {
	row := s.db.QueryRow(`
		SELECT sc.name FROM subcategories sc
		JOIN categories c ON c.id = sc.category_id
		WHERE c.name = ? COLLATE NOCASE AND sc.name = ? COLLATE NOCASE`,
		category, name)
	var stored string
	if err := row.Scan(&stored); err != nil {
		return "", mapError(err)
	}
	return stored, nil
}

// CreateSubcategory inserts a subcategory under a category, creating the
// category row first if needed.
func (s *Store) CreateSubcategory(category, name string) error {
	if _, err := s.GetCategory(category); err == ErrNotFound {
		if err := s.CreateCategory(category); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	_, err := s.db.Exec(`
		INSERT INTO subcategories (category_id, name)
		SELECT id, ? FROM categories WHERE name = ? COLLATE NOCASE`,
		name, category)
	return mapError(err)
}

// ListCategories returns all category names in name order.
func (s *Store) ListCategories() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM categories ORDER BY name`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
