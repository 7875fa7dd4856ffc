// Package models defines the data types shared by the store and core packages:
// documents, version snapshots, acknowledgments, and numbering categories.
package models

import (
	"fmt"
	"time"
)

// Section is one block of structured document content.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Document is a policy or procedure record. Policies and procedures share
// one schema; the Kind field tells them apart.
type Document struct {
	ID          string
	Kind        string // "policy" or "procedure"
	CategoryID  string
	Number      int
	Title       string
	Description string
	Sections    []Section
	Status      Status
	Version     string // "major.minor"
	OwnerID     string

	// Role lists. An empty list means every role is allowed.
	ViewRoles []string
	AckRoles  []string

	// RequiresAck flags the document as needing per-user acknowledgment.
	RequiresAck bool

	// PreviousVersionID points at the snapshot that captured the state
	// preceding the current version.
	PreviousVersionID string

	CreatedAt  time.Time
	CreatedBy  string
	UpdatedAt  time.Time
	UpdatedBy  string
	ApprovedAt time.Time
	ApprovedBy string
}

const (
	KindPolicy    = "policy"
	KindProcedure = "procedure"
)

// Ref returns the human-facing reference like "RPAS-1001 v2.1".
func (d *Document) Ref() string {
	return fmt.Sprintf("%s-%d v%s", d.CategoryID, d.Number, d.Version)
}

// SectionsEqual reports whether two section lists hold identical content.
func SectionsEqual(a, b []Section) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RoleAllowed reports whether role is admitted by the given role list.
// An empty list admits every role.
func RoleAllowed(roles []string, role string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanView reports whether a caller holding role may read the document.
func (d *Document) CanView(role string) bool {
	return RoleAllowed(d.ViewRoles, role)
}

// CanAcknowledge reports whether a caller holding role is in the
// document's acknowledgment audience.
func (d *Document) CanAcknowledge(role string) bool {
	return RoleAllowed(d.AckRoles, role)
}
