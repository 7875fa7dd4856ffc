package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avior/policyvault/internal/audit"
	"github.com/avior/policyvault/internal/models"
	"github.com/avior/policyvault/internal/store"
)

// DefaultAckExpiry is how long an acknowledgment stays valid unless the
// caller overrides it.
const DefaultAckExpiry = 365 * 24 * time.Hour

// AckOptions tunes acknowledgment recording.
type AckOptions struct {
	// Method is the signature method; defaults to models.MethodClicked.
	Method string
	// ExpiresAt overrides the default one-year expiry when set.
	ExpiresAt time.Time
	// NoExpiry records an acknowledgment that never lapses.
	NoExpiry bool
	// Role, when set, is checked against the document's acknowledgment
	// audience before recording.
	Role string
}

// RecordAcknowledgment inserts a new acknowledgment row, never an upsert.
// A valid acknowledgment already covering the same (document, version, user)
// fails with ErrAlreadyExists; the guard is a query before the insert, not a
// uniqueness constraint, so concurrent calls can still race in a duplicate.
// Version "" means the document's current version.
func RecordAcknowledgment(ctx context.Context, st *store.Store, aud *audit.Ledger, documentID, version, userID string, opts AckOptions) (*models.Acknowledgment, error) {
	method := opts.Method
	if method == "" {
		method = models.MethodClicked
	}

	var ack *models.Acknowledgment
	err := st.WithTx(func(tx *store.Tx) error {
		doc, err := tx.GetDocument(documentID)
		if err != nil {
			return err
		}
		if version == "" {
			version = doc.Version
		} else if version != doc.Version {
			return fmt.Errorf("version %s is no longer current for %s: %w",
				version, doc.Ref(), ErrPreconditionFailed)
		}
		if opts.Role != "" && !doc.CanAcknowledge(opts.Role) {
			return fmt.Errorf("role %q is not in the acknowledgment audience of %s: %w",
				opts.Role, doc.Ref(), ErrPermissionDenied)
		}

		now := time.Now().UTC()
		existing, err := tx.ListUserAcknowledgments(documentID, userID)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.Satisfies(version, now) {
				return fmt.Errorf("user %s already acknowledged version %s: %w",
					userID, version, ErrAlreadyExists)
			}
		}

		ack = &models.Acknowledgment{
			ID:              uuid.New().String(),
			DocumentID:      documentID,
			DocumentVersion: version,
			UserID:          userID,
			Method:          method,
			AcknowledgedAt:  now,
		}
		switch {
		case opts.NoExpiry:
		case !opts.ExpiresAt.IsZero():
			ack.ExpiresAt = opts.ExpiresAt
		default:
			ack.ExpiresAt = now.Add(DefaultAckExpiry)
		}
		return tx.InsertAcknowledgment(ack)
	})
	if err != nil {
		return nil, err
	}

	if err := aud.Append(userID, audit.ActionAcknowledge, documentID, "version "+ack.DocumentVersion); err != nil {
		return ack, fmt.Errorf("append audit entry: %w", err)
	}
	return ack, nil
}

// PendingAcknowledgments returns the active documents a user still has to
// acknowledge: flagged as requiring acknowledgment, role admitted by the
// document's audience, and no valid acknowledgment at the current version.
func PendingAcknowledgments(st *store.Store, userID, role string) ([]*models.Document, error) {
	docs, err := st.ListDocuments(store.DocumentFilter{
		Status:      models.StatusActive,
		RequiresAck: true,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var pending []*models.Document
	for _, doc := range docs {
		if !doc.CanAcknowledge(role) {
			continue
		}

		acks, err := st.ListUserAcknowledgments(doc.ID, userID)
		if err != nil {
			return nil, err
		}

		satisfied := false
		for _, a := range acks {
			if a.Satisfies(doc.Version, now) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			pending = append(pending, doc)
		}
	}
	return pending, nil
}

// InvalidateAcknowledgments flags every acknowledgment for the exact
// (document, version) pair as invalid. Update and rollback already do this
// inside their own transactions; this entry point exists for repair runs
// and is idempotent.
func InvalidateAcknowledgments(ctx context.Context, st *store.Store, documentID, version string) (int, error) {
	var n int
	err := st.WithTx(func(tx *store.Tx) error {
		var err error
		n, err = tx.InvalidateAcknowledgments(documentID, version, time.Now().UTC())
		return err
	})
	return n, err
}
