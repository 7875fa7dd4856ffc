package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/avior/policyvault/internal/models"
)

const documentColumns = `id, kind, category_id, number, title, description, sections,
	status, version, owner_id, view_roles, ack_roles, requires_ack,
	previous_version_id, created_at, created_by, updated_at, updated_by,
	approved_at, approved_by`

// InsertDocument inserts a new document record.
// Returns ErrAlreadyExists when the (category, number) pair is taken.
func (t *Tx) InsertDocument(doc *models.Document) error {
	sections, err := json.Marshal(doc.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	viewRoles, _ := json.Marshal(doc.ViewRoles)
	ackRoles, _ := json.Marshal(doc.AckRoles)

	_, err = t.q.Exec(`
		INSERT INTO documents (id, kind, category_id, number, title, description,
			sections, status, version, owner_id, view_roles, ack_roles,
			requires_ack, previous_version_id, created_at, created_by,
			updated_at, updated_by, approved_at, approved_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Kind, doc.CategoryID, doc.Number, doc.Title, doc.Description,
		string(sections), string(doc.Status), doc.Version, doc.OwnerID,
		string(viewRoles), string(ackRoles), doc.RequiresAck,
		nullString(doc.PreviousVersionID), timeValue(doc.CreatedAt), doc.CreatedBy,
		timeValue(doc.UpdatedAt), doc.UpdatedBy,
		timeValue(doc.ApprovedAt), doc.ApprovedBy,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("document %s-%d: %w", doc.CategoryID, doc.Number, ErrAlreadyExists)
	}
	return err
}

// UpdateDocument rewrites every mutable column of an existing document.
func (t *Tx) UpdateDocument(doc *models.Document) error {
	sections, err := json.Marshal(doc.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	viewRoles, _ := json.Marshal(doc.ViewRoles)
	ackRoles, _ := json.Marshal(doc.AckRoles)

	res, err := t.q.Exec(`
		UPDATE documents SET title = ?, description = ?, sections = ?, status = ?,
			version = ?, owner_id = ?, view_roles = ?, ack_roles = ?,
			requires_ack = ?, previous_version_id = ?, updated_at = ?,
			updated_by = ?, approved_at = ?, approved_by = ?
		WHERE id = ?`,
		doc.Title, doc.Description, string(sections), string(doc.Status),
		doc.Version, doc.OwnerID, string(viewRoles), string(ackRoles),
		doc.RequiresAck, nullString(doc.PreviousVersionID),
		timeValue(doc.UpdatedAt), doc.UpdatedBy,
		timeValue(doc.ApprovedAt), doc.ApprovedBy,
		doc.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
	}
	return err
}

// GetDocument retrieves a document by ID within the transaction.
func (t *Tx) GetDocument(id string) (*models.Document, error) {
	row := t.q.QueryRow(
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, err
}

// GetDocumentByNumber retrieves a document by its category and number.
func (t *Tx) GetDocumentByNumber(categoryID string, number int) (*models.Document, error) {
	row := t.q.QueryRow(
		"SELECT "+documentColumns+" FROM documents WHERE category_id = ? AND number = ?",
		categoryID, number)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s-%d: %w", categoryID, number, ErrNotFound)
	}
	return doc, err
}

// MaxNumber returns the highest document number assigned within the given
// numeric range of a category, or 0 when the range holds no documents.
func (t *Tx) MaxNumber(categoryID string, rangeStart, rangeEnd int) (int, error) {
	var max sql.NullInt64
	err := t.q.QueryRow(`
		SELECT MAX(number) FROM documents
		WHERE category_id = ? AND number >= ? AND number <= ?`,
		categoryID, rangeStart, rangeEnd).Scan(&max)
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

// DocumentFilter narrows ListDocuments results. Zero values match everything.
type DocumentFilter struct {
	CategoryID  string
	Status      models.Status
	Kind        string
	RequiresAck bool // when true, only documents flagged for acknowledgment
}

// ListDocuments returns documents matching the filter, ordered by category
// and number.
func (t *Tx) ListDocuments(f DocumentFilter) ([]*models.Document, error) {
	query := "SELECT " + documentColumns + " FROM documents WHERE 1=1"
	var args []any

	if f.CategoryID != "" {
		query += " AND category_id = ?"
		args = append(args, f.CategoryID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, f.Kind)
	}
	if f.RequiresAck {
		query += " AND requires_ack = TRUE"
	}
	query += " ORDER BY category_id, number"

	rows, err := t.q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Store-level read wrappers for callers outside a transaction.

func (s *Store) GetDocument(id string) (*models.Document, error) {
	return s.view().GetDocument(id)
}

func (s *Store) GetDocumentByNumber(categoryID string, number int) (*models.Document, error) {
	return s.view().GetDocumentByNumber(categoryID, number)
}

func (s *Store) ListDocuments(f DocumentFilter) ([]*models.Document, error) {
	return s.view().ListDocuments(f)
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (*models.Document, error) {
	var doc models.Document
	var description, ownerID, createdBy, updatedBy, approvedBy sql.NullString
	var sections, viewRoles, ackRoles, previousVersionID sql.NullString
	var createdAt, updatedAt, approvedAt sql.NullString
	var status string

	err := sc.Scan(&doc.ID, &doc.Kind, &doc.CategoryID, &doc.Number, &doc.Title,
		&description, &sections, &status, &doc.Version, &ownerID,
		&viewRoles, &ackRoles, &doc.RequiresAck, &previousVersionID,
		&createdAt, &createdBy, &updatedAt, &updatedBy,
		&approvedAt, &approvedBy)
	if err != nil {
		return nil, err
	}

	doc.Status = models.Status(status)
	doc.Description = description.String
	doc.OwnerID = ownerID.String
	doc.PreviousVersionID = previousVersionID.String
	doc.CreatedBy = createdBy.String
	doc.UpdatedBy = updatedBy.String
	doc.ApprovedBy = approvedBy.String
	doc.CreatedAt = scanTime(createdAt)
	doc.UpdatedAt = scanTime(updatedAt)
	doc.ApprovedAt = scanTime(approvedAt)

	if sections.Valid && sections.String != "" {
		if err := json.Unmarshal([]byte(sections.String), &doc.Sections); err != nil {
			return nil, fmt.Errorf("unmarshal sections: %w", err)
		}
	}
	if viewRoles.Valid && viewRoles.String != "" {
		json.Unmarshal([]byte(viewRoles.String), &doc.ViewRoles)
	}
	if ackRoles.Valid && ackRoles.String != "" {
		json.Unmarshal([]byte(ackRoles.String), &doc.AckRoles)
	}

	return &doc, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
