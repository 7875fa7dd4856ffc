package core

import (
	"context"
	"fmt"
	"time"

	"github.com/avior/policyvault/internal/audit"
	"github.com/avior/policyvault/internal/models"
	"github.com/avior/policyvault/internal/store"
)

// Transition names a lifecycle operation.
type Transition string

const (
	TransitionSubmitForReview   Transition = "submit_for_review"
	TransitionSubmitForApproval Transition = "submit_for_approval"
	TransitionApprove           Transition = "approve"
	TransitionReject            Transition = "reject"
	TransitionRetire            Transition = "retire"
)

// transitions is the closed set of legal lifecycle moves. Anything outside
// this table fails with ErrInvalidTransition; there is no direct status write.
var transitions = map[Transition]struct{ from, to models.Status }{
	TransitionSubmitForReview:   {models.StatusDraft, models.StatusPendingReview},
	TransitionSubmitForApproval: {models.StatusPendingReview, models.StatusPendingApproval},
	TransitionApprove:           {models.StatusPendingApproval, models.StatusActive},
	TransitionReject:            {models.StatusPendingApproval, models.StatusDraft},
	TransitionRetire:            {models.StatusActive, models.StatusRetired},
}

// ApplyTransition moves a document through the lifecycle state machine,
// stamping the actor and time.
func ApplyTransition(ctx context.Context, st *store.Store, aud *audit.Ledger, id string, tr Transition, actorID string) (*models.Document, error) {
	step, ok := transitions[tr]
	if !ok {
		return nil, fmt.Errorf("unknown transition %q: %w", tr, ErrInvalidTransition)
	}

	var doc *models.Document
	err := st.WithTx(func(tx *store.Tx) error {
		var err error
		doc, err = tx.GetDocument(id)
		if err != nil {
			return err
		}
		if doc.Status != step.from {
			return fmt.Errorf("cannot %s a %s document: %w", tr, doc.Status, ErrInvalidTransition)
		}

		now := time.Now().UTC()
		doc.Status = step.to
		doc.UpdatedAt = now
		doc.UpdatedBy = actorID
		if tr == TransitionApprove {
			doc.ApprovedAt = now
			doc.ApprovedBy = actorID
		}
		return tx.UpdateDocument(doc)
	})
	if err != nil {
		return nil, err
	}

	detail := fmt.Sprintf("%s -> %s", step.from, step.to)
	if err := aud.Append(actorID, string(tr), doc.ID, detail); err != nil {
		return doc, fmt.Errorf("append audit entry: %w", err)
	}
	return doc, nil
}

// SubmitForReview moves a draft to pending_review.
func SubmitForReview(ctx context.Context, st *store.Store, aud *audit.Ledger, id, actorID string) (*models.Document, error) {
	return ApplyTransition(ctx, st, aud, id, TransitionSubmitForReview, actorID)
}

// SubmitForApproval moves a pending_review document to pending_approval.
func SubmitForApproval(ctx context.Context, st *store.Store, aud *audit.Ledger, id, actorID string) (*models.Document, error) {
	return ApplyTransition(ctx, st, aud, id, TransitionSubmitForApproval, actorID)
}

// Approve activates a pending_approval document and stamps the approver.
func Approve(ctx context.Context, st *store.Store, aud *audit.Ledger, id, actorID string) (*models.Document, error) {
	return ApplyTransition(ctx, st, aud, id, TransitionApprove, actorID)
}

// Reject sends a pending_approval document back to draft.
func Reject(ctx context.Context, st *store.Store, aud *audit.Ledger, id, actorID string) (*models.Document, error) {
	return ApplyTransition(ctx, st, aud, id, TransitionReject, actorID)
}

// Retire ends the life of an active document.
func Retire(ctx context.Context, st *store.Store, aud *audit.Ledger, id, actorID string) (*models.Document, error) {
	return ApplyTransition(ctx, st, aud, id, TransitionRetire, actorID)
}

// ParseTransition maps a string to a known Transition.
func ParseTransition(s string) (Transition, error) {
	tr := Transition(s)
	if _, ok := transitions[tr]; !ok {
		return "", fmt.Errorf("unknown transition %q: %w", s, ErrInvalidTransition)
	}
	return tr, nil
}
