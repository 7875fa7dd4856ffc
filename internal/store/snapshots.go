package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/avior/policyvault/internal/models"
)

const snapshotColumns = `id, document_id, version, note, changed_fields, title,
	description, sections, owner_id, status, created_at, created_by`

// InsertSnapshot appends a snapshot to the version ledger. Snapshots are
// never updated or deleted.
func (t *Tx) InsertSnapshot(snap *models.Snapshot) error {
	sections, err := json.Marshal(snap.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	changedFields, _ := json.Marshal(snap.ChangedFields)

	_, err = t.q.Exec(`
		INSERT INTO snapshots (id, document_id, version, note, changed_fields,
			title, description, sections, owner_id, status, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.DocumentID, snap.Version, snap.Note, string(changedFields),
		snap.Title, snap.Description, string(sections), snap.OwnerID,
		string(snap.Status), timeValue(snap.CreatedAt), snap.CreatedBy,
	)
	return err
}

// GetSnapshot retrieves a snapshot by ID.
func (t *Tx) GetSnapshot(id string) (*models.Snapshot, error) {
	row := t.q.QueryRow(
		"SELECT "+snapshotColumns+" FROM snapshots WHERE id = ?", id)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	return snap, err
}

// ListSnapshots returns every snapshot for a document in insertion order.
// Callers sort newest-first themselves.
func (t *Tx) ListSnapshots(documentID string) ([]*models.Snapshot, error) {
	rows, err := t.q.Query(
		"SELECT "+snapshotColumns+" FROM snapshots WHERE document_id = ?", documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (s *Store) GetSnapshot(id string) (*models.Snapshot, error) {
	return s.view().GetSnapshot(id)
}

func (s *Store) ListSnapshots(documentID string) ([]*models.Snapshot, error) {
	return s.view().ListSnapshots(documentID)
}

func scanSnapshot(sc scanner) (*models.Snapshot, error) {
	var snap models.Snapshot
	var note, changedFields, description, sections, ownerID, createdBy sql.NullString
	var createdAt sql.NullString
	var status string

	err := sc.Scan(&snap.ID, &snap.DocumentID, &snap.Version, &note,
		&changedFields, &snap.Title, &description, &sections, &ownerID,
		&status, &createdAt, &createdBy)
	if err != nil {
		return nil, err
	}

	snap.Note = note.String
	snap.Description = description.String
	snap.OwnerID = ownerID.String
	snap.CreatedBy = createdBy.String
	snap.Status = models.Status(status)
	snap.CreatedAt = scanTime(createdAt)

	if changedFields.Valid && changedFields.String != "" {
		json.Unmarshal([]byte(changedFields.String), &snap.ChangedFields)
	}
	if sections.Valid && sections.String != "" {
		if err := json.Unmarshal([]byte(sections.String), &snap.Sections); err != nil {
			return nil, fmt.Errorf("unmarshal sections: %w", err)
		}
	}

	return &snap, nil
}
