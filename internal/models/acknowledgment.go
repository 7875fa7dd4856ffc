package models

import "time"

// Signature methods accepted when recording an acknowledgment.
const (
	MethodTyped   = "typed"
	MethodDrawn   = "drawn"
	MethodClicked = "clicked"
)

// Acknowledgment records that a user accepted a specific document version.
type Acknowledgment struct {
	ID              string
	DocumentID      string
	DocumentVersion string
	UserID          string
	Method          string
	AcknowledgedAt  time.Time

	// ExpiresAt is zero when the acknowledgment never expires.
	ExpiresAt time.Time

	Invalidated   bool
	InvalidatedAt time.Time
}

// IsExpired reports whether the acknowledgment has passed its expiry.
// Expiry is computed, never stored as a flag.
func (a *Acknowledgment) IsExpired(now time.Time) bool {
	if a.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(a.ExpiresAt)
}

// DaysUntilExpiry returns the whole days remaining before expiry.
// The second return is false when the acknowledgment never expires.
// Expired acknowledgments report negative days.
func (a *Acknowledgment) DaysUntilExpiry(now time.Time) (int, bool) {
	if a.ExpiresAt.IsZero() {
		return 0, false
	}
	return int(a.ExpiresAt.Sub(now).Hours() / 24), true
}

// Satisfies reports whether the acknowledgment counts as valid for the
// given current document version: right version, not invalidated, not expired.
func (a *Acknowledgment) Satisfies(currentVersion string, now time.Time) bool {
	return a.DocumentVersion == currentVersion && !a.Invalidated && !a.IsExpired(now)
}
