package store

import (
	"database/sql"
	"fmt"

	"github.com/avior/policyvault/internal/models"
)

// CreateCategory inserts a numbering category.
// Returns ErrAlreadyExists when the ID is taken.
func (t *Tx) CreateCategory(cat *models.Category) error {
	_, err := t.q.Exec(`
		INSERT INTO categories (id, name, range_start, range_end, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		cat.ID, cat.Name, cat.RangeStart, cat.RangeEnd, timeValue(cat.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %s: %w", cat.ID, ErrAlreadyExists)
	}
	return err
}

// GetCategory retrieves a category by ID.
func (t *Tx) GetCategory(id string) (*models.Category, error) {
	var cat models.Category
	var createdAt sql.NullString

	err := t.q.QueryRow(`
		SELECT id, name, range_start, range_end, created_at
		FROM categories WHERE id = ?`, id).Scan(
		&cat.ID, &cat.Name, &cat.RangeStart, &cat.RangeEnd, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	cat.CreatedAt = scanTime(createdAt)
	return &cat, nil
}

// ListCategories returns all categories ordered by ID.
func (t *Tx) ListCategories() ([]*models.Category, error) {
	rows, err := t.q.Query(`
		SELECT id, name, range_start, range_end, created_at
		FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []*models.Category
	for rows.Next() {
		var cat models.Category
		var createdAt sql.NullString
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.RangeStart, &cat.RangeEnd, &createdAt); err != nil {
			return nil, err
		}
		cat.CreatedAt = scanTime(createdAt)
		cats = append(cats, &cat)
	}
	return cats, rows.Err()
}

func (s *Store) CreateCategory(cat *models.Category) error {
	return s.view().CreateCategory(cat)
}

func (s *Store) GetCategory(id string) (*models.Category, error) {
	return s.view().GetCategory(id)
}

func (s *Store) ListCategories() ([]*models.Category, error) {
	return s.view().ListCategories()
}
