// Package core implements the policy/procedure record manager: document
// creation and numbering, versioned updates, rollback, the lifecycle state
// machine, and acknowledgment tracking. All mutating operations run inside
// a single store transaction.
package core

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/avior/policyvault/internal/models"
	"github.com/avior/policyvault/internal/store"
)

// newSnapshot captures a document's current tracked fields into a ledger
// entry. The snapshot records the version whose content it preserves.
func newSnapshot(doc *models.Document, note string, changedFields []string, actorID string) *models.Snapshot {
	snap := models.SnapshotOf(doc)
	snap.ID = uuid.New().String()
	snap.Note = note
	snap.ChangedFields = changedFields
	snap.CreatedAt = time.Now().UTC()
	snap.CreatedBy = actorID
	return snap
}

// CreateSnapshot appends a manual snapshot of the document's current state
// to the version ledger.
func CreateSnapshot(ctx context.Context, st *store.Store, documentID, note, actorID string) (*models.Snapshot, error) {
	var snap *models.Snapshot
	err := st.WithTx(func(tx *store.Tx) error {
		doc, err := tx.GetDocument(documentID)
		if err != nil {
			return err
		}
		snap = newSnapshot(doc, note, nil, actorID)
		return tx.InsertSnapshot(snap)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ListSnapshots returns a document's ledger entries newest first. Ordering
// happens here rather than in SQL so the store needs no compound index.
func ListSnapshots(st *store.Store, documentID string) ([]*models.Snapshot, error) {
	snaps, err := st.ListSnapshots(documentID)
	if err != nil {
		return nil, err
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps, nil
}

// GetSnapshot retrieves a single ledger entry. Returns ErrNotFound if absent.
func GetSnapshot(st *store.Store, snapshotID string) (*models.Snapshot, error) {
	return st.GetSnapshot(snapshotID)
}
