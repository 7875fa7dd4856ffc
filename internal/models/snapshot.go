package models

import "time"

// Snapshot is an immutable capture of a document's tracked content fields,
// taken before a change is applied. Version records the version string the
// document carried while this content was current.
type Snapshot struct {
	ID            string
	DocumentID    string
	Version       string
	Note          string
	ChangedFields []string

	Title       string
	Description string
	Sections    []Section
	OwnerID     string
	Status      Status

	CreatedAt time.Time
	CreatedBy string
}

// SnapshotOf copies a document's tracked fields into a new snapshot value.
// The caller assigns ID, Note, ChangedFields, and the audit stamps.
func SnapshotOf(d *Document) *Snapshot {
	sections := make([]Section, len(d.Sections))
	copy(sections, d.Sections)

	return &Snapshot{
		DocumentID:  d.ID,
		Version:     d.Version,
		Title:       d.Title,
		Description: d.Description,
		Sections:    sections,
		OwnerID:     d.OwnerID,
		Status:      d.Status,
	}
}
