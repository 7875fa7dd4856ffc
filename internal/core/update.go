package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avior/policyvault/internal/audit"
	"github.com/avior/policyvault/internal/models"
	"github.com/avior/policyvault/internal/store"
)

// Version bump types for UpdateOptions.
const (
	VersionTypeMinor = "minor"
	VersionTypeMajor = "major"
)

// Fields carries the updatable document fields. Nil pointers and nil slices
// mean "leave unchanged". Status is deliberately absent: lifecycle state
// moves only through the named workflow transitions.
type Fields struct {
	Title       *string
	Description *string
	Sections    []models.Section
	OwnerID     *string
	ViewRoles   []string
	AckRoles    []string
	RequiresAck *bool
}

// UpdateOptions controls versioning behavior for an update.
type UpdateOptions struct {
	// CreateNewVersion requests a snapshot and version bump. The bump only
	// happens when a tracked field actually differs.
	CreateNewVersion bool
	// VersionType is "minor" (default) or "major".
	VersionType string
	// Note is stored on the snapshot.
	Note    string
	ActorID string
}

// Tracked fields: changes to these drive snapshots and version bumps.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldContent     = "content"
	fieldOwner       = "owner"
)

// UpdateDocument applies field changes to a document in one transaction.
// When CreateNewVersion is set and a tracked field differs, the pre-change
// state is snapshotted, the version is bumped, and acknowledgments of the
// old version are invalidated, all in the same transaction. An update that
// changes no tracked field never bumps the version, even when requested.
func UpdateDocument(ctx context.Context, st *store.Store, aud *audit.Ledger, id string, fields Fields, opts UpdateOptions) (*models.Document, error) {
	versionType := opts.VersionType
	if versionType == "" {
		versionType = VersionTypeMinor
	}
	if versionType != VersionTypeMinor && versionType != VersionTypeMajor {
		return nil, fmt.Errorf("unknown version type %q", versionType)
	}

	var doc *models.Document
	var changed []string
	err := st.WithTx(func(tx *store.Tx) error {
		var err error
		doc, err = tx.GetDocument(id)
		if err != nil {
			return err
		}

		changed = diffTrackedFields(doc, fields)
		now := time.Now().UTC()

		if opts.CreateNewVersion && len(changed) > 0 {
			snap := newSnapshot(doc, opts.Note, changed, opts.ActorID)
			if err := tx.InsertSnapshot(snap); err != nil {
				return err
			}

			v, err := models.ParseVersion(doc.Version)
			if err != nil {
				return fmt.Errorf("document %s: %w", id, err)
			}
			oldVersion := doc.Version
			if versionType == VersionTypeMajor {
				v = v.BumpMajor()
			} else {
				v = v.BumpMinor()
			}
			doc.Version = v.String()
			doc.PreviousVersionID = snap.ID

			// The version advanced, so acknowledgments of the old version
			// stop counting as satisfied even before they expire.
			if _, err := tx.InvalidateAcknowledgments(doc.ID, oldVersion, now); err != nil {
				return err
			}
		}

		applyFields(doc, fields)
		doc.UpdatedAt = now
		doc.UpdatedBy = opts.ActorID
		return tx.UpdateDocument(doc)
	})
	if err != nil {
		return nil, err
	}

	detail := doc.Ref()
	if len(changed) > 0 {
		detail += " (" + strings.Join(changed, ", ") + ")"
	}
	if err := aud.Append(opts.ActorID, audit.ActionUpdate, doc.ID, detail); err != nil {
		return doc, fmt.Errorf("append audit entry: %w", err)
	}
	return doc, nil
}

// diffTrackedFields names the tracked fields that would actually change.
func diffTrackedFields(doc *models.Document, f Fields) []string {
	var changed []string
	if f.Title != nil && *f.Title != doc.Title {
		changed = append(changed, fieldTitle)
	}
	if f.Description != nil && *f.Description != doc.Description {
		changed = append(changed, fieldDescription)
	}
	if f.Sections != nil && !models.SectionsEqual(f.Sections, doc.Sections) {
		changed = append(changed, fieldContent)
	}
	if f.OwnerID != nil && *f.OwnerID != doc.OwnerID {
		changed = append(changed, fieldOwner)
	}
	return changed
}

// applyFields copies the requested changes onto the document.
func applyFields(doc *models.Document, f Fields) {
	if f.Title != nil {
		doc.Title = *f.Title
	}
	if f.Description != nil {
		doc.Description = *f.Description
	}
	if f.Sections != nil {
		doc.Sections = f.Sections
	}
	if f.OwnerID != nil {
		doc.OwnerID = *f.OwnerID
	}
	if f.ViewRoles != nil {
		doc.ViewRoles = f.ViewRoles
	}
	if f.AckRoles != nil {
		doc.AckRoles = f.AckRoles
	}
	if f.RequiresAck != nil {
		doc.RequiresAck = *f.RequiresAck
	}
}
