package core

import (
	"context"
	"fmt"
	"time"

	"github.com/avior/policyvault/internal/audit"
	"github.com/avior/policyvault/internal/models"
	"github.com/avior/policyvault/internal/store"
)

// RollbackToVersion restores a document's content from a ledger snapshot.
// Atomically: the current state is snapshotted with an auto-generated note,
// the snapshot's tracked fields overwrite the record, the version jumps to
// (currentMajor+1).0, previousVersionID points at the pre-rollback snapshot,
// and acknowledgments of the replaced version are invalidated.
//
// The restored snapshot's version number is never reused; a rollback always
// moves the version forward. Lifecycle status is not restored; it stays
// under the workflow state machine.
func RollbackToVersion(ctx context.Context, st *store.Store, aud *audit.Ledger, id, snapshotID, actorID string) (*models.Document, error) {
	var doc *models.Document
	var target *models.Snapshot

	err := st.WithTx(func(tx *store.Tx) error {
		var err error
		doc, err = tx.GetDocument(id)
		if err != nil {
			return err
		}
		target, err = tx.GetSnapshot(snapshotID)
		if err != nil {
			return err
		}
		if target.DocumentID != doc.ID {
			return fmt.Errorf("snapshot %s belongs to document %s, not %s: %w",
				snapshotID, target.DocumentID, doc.ID, ErrPreconditionFailed)
		}

		now := time.Now().UTC()

		// Preserve the state being discarded before overwriting anything.
		note := fmt.Sprintf("State before rollback to version %s", target.Version)
		tracked := []string{fieldTitle, fieldDescription, fieldContent, fieldOwner}
		pre := newSnapshot(doc, note, tracked, actorID)
		if err := tx.InsertSnapshot(pre); err != nil {
			return err
		}

		v, err := models.ParseVersion(doc.Version)
		if err != nil {
			return fmt.Errorf("document %s: %w", id, err)
		}
		oldVersion := doc.Version

		doc.Title = target.Title
		doc.Description = target.Description
		doc.Sections = make([]models.Section, len(target.Sections))
		copy(doc.Sections, target.Sections)
		doc.OwnerID = target.OwnerID

		doc.Version = v.BumpMajor().String()
		doc.PreviousVersionID = pre.ID
		doc.UpdatedAt = now
		doc.UpdatedBy = actorID

		if _, err := tx.InvalidateAcknowledgments(doc.ID, oldVersion, now); err != nil {
			return err
		}
		return tx.UpdateDocument(doc)
	})
	if err != nil {
		return nil, err
	}

	detail := fmt.Sprintf("restored content of version %s as version %s", target.Version, doc.Version)
	if err := aud.Append(actorID, audit.ActionRollback, doc.ID, detail); err != nil {
		return doc, fmt.Errorf("append audit entry: %w", err)
	}
	return doc, nil
}
