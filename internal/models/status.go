package models

// Status represents the lifecycle state of a document.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingReview   Status = "pending_review"
	StatusPendingApproval Status = "pending_approval"
	StatusActive          Status = "active"
	StatusRetired         Status = "retired"
)

// AllStatuses lists every valid lifecycle state.
var AllStatuses = []Status{
	StatusDraft,
	StatusPendingReview,
	StatusPendingApproval,
	StatusActive,
	StatusRetired,
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}
