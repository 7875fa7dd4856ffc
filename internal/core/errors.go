package core

import (
	"errors"

	"github.com/avior/policyvault/internal/store"
)

// Sentinel errors surfaced by record-manager operations. Callers match with
// errors.Is; there is no retry layer, failures propagate as-is.
var (
	// ErrNotFound aliases the store sentinel so callers only import core.
	ErrNotFound = store.ErrNotFound

	// ErrAlreadyExists is returned for duplicate seeds and number collisions.
	ErrAlreadyExists = store.ErrAlreadyExists

	// ErrRangeExhausted means the next number would exceed the category ceiling.
	ErrRangeExhausted = errors.New("category number range exhausted")

	// ErrPermissionDenied means the caller's role fails a permission predicate.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrPreconditionFailed covers cross-record mismatches, e.g. rolling a
	// document back to another document's snapshot.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidTransition is returned for lifecycle moves outside the
	// state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStatusImmutable is returned when a caller tries to patch the status
	// field directly instead of using a named transition.
	ErrStatusImmutable = errors.New("status cannot be patched directly; use a workflow transition")

	// ErrValidation is wrapped by input validation failures.
	ErrValidation = errors.New("validation failed")
)
