package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/avior/policyvault/internal/models"
)

const ackColumns = `id, document_id, document_version, user_id, method,
	acknowledged_at, expires_at, invalidated, invalidated_at`

// InsertAcknowledgment always inserts a new row; there is no upsert path.
func (t *Tx) InsertAcknowledgment(ack *models.Acknowledgment) error {
	_, err := t.q.Exec(`
		INSERT INTO acknowledgments (id, document_id, document_version, user_id,
			method, acknowledged_at, expires_at, invalidated, invalidated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ack.ID, ack.DocumentID, ack.DocumentVersion, ack.UserID, ack.Method,
		timeValue(ack.AcknowledgedAt), timeValue(ack.ExpiresAt),
		ack.Invalidated, timeValue(ack.InvalidatedAt),
	)
	return err
}

// InvalidateAcknowledgments flags every acknowledgment for the exact
// (document, version) pair as invalid. Already-invalidated rows are left
// untouched, so the call is idempotent. Returns the number of rows flagged.
func (t *Tx) InvalidateAcknowledgments(documentID, version string, now time.Time) (int, error) {
	res, err := t.q.Exec(`
		UPDATE acknowledgments SET invalidated = TRUE, invalidated_at = ?
		WHERE document_id = ? AND document_version = ? AND invalidated = FALSE`,
		timeValue(now), documentID, version,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ListUserAcknowledgments returns every acknowledgment a user holds for a
// document, across all versions. Validity is computed by the caller.
func (t *Tx) ListUserAcknowledgments(documentID, userID string) ([]*models.Acknowledgment, error) {
	rows, err := t.q.Query(
		"SELECT "+ackColumns+" FROM acknowledgments WHERE document_id = ? AND user_id = ?",
		documentID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAcks(rows)
}

// ListDocumentAcknowledgments returns every acknowledgment recorded against
// a document, newest first.
func (t *Tx) ListDocumentAcknowledgments(documentID string) ([]*models.Acknowledgment, error) {
	rows, err := t.q.Query(
		"SELECT "+ackColumns+" FROM acknowledgments WHERE document_id = ? ORDER BY acknowledged_at DESC",
		documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAcks(rows)
}

func (s *Store) ListUserAcknowledgments(documentID, userID string) ([]*models.Acknowledgment, error) {
	return s.view().ListUserAcknowledgments(documentID, userID)
}

func (s *Store) ListDocumentAcknowledgments(documentID string) ([]*models.Acknowledgment, error) {
	return s.view().ListDocumentAcknowledgments(documentID)
}

func collectAcks(rows *sql.Rows) ([]*models.Acknowledgment, error) {
	var acks []*models.Acknowledgment
	for rows.Next() {
		var ack models.Acknowledgment
		var acknowledgedAt, expiresAt, invalidatedAt sql.NullString

		err := rows.Scan(&ack.ID, &ack.DocumentID, &ack.DocumentVersion,
			&ack.UserID, &ack.Method, &acknowledgedAt, &expiresAt,
			&ack.Invalidated, &invalidatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan acknowledgment: %w", err)
		}

		ack.AcknowledgedAt = scanTime(acknowledgedAt)
		ack.ExpiresAt = scanTime(expiresAt)
		ack.InvalidatedAt = scanTime(invalidatedAt)
		acks = append(acks, &ack)
	}
	return acks, rows.Err()
}
