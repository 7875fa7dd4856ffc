package core

import (
	"context"
	"testing"

	"github.com/avior/policyvault/internal/audit"
	"github.com/avior/policyvault/internal/models"
	"github.com/avior/policyvault/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// activateDocument walks a draft through the full approval path.
func activateDocument(t *testing.T, st *store.Store, aud *audit.Ledger, id string) {
	t.Helper()
	ctx := context.Background()
	_, err := SubmitForReview(ctx, st, aud, id, "author")
	require.NoError(t, err)
	_, err = SubmitForApproval(ctx, st, aud, id, "reviewer")
	require.NoError(t, err)
	_, err = Approve(ctx, st, aud, id, "approver")
	require.NoError(t, err)
}

func TestWorkflow_FullLifecycle(t *testing.T) {
	st, aud := newTestEnv(t)
	addCategory(t, st, "RPAS", 1000, 1999)
	doc := createTestDocument(t, st, aud)
	ctx := context.Background()

	d, err := SubmitForReview(ctx, st, aud, doc.ID, "author")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, d.Status)

	d, err = SubmitForApproval(ctx, st, aud, doc.ID, "reviewer")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, d.Status)

	d, err = Approve(ctx, st, aud, doc.ID, "approver")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, d.Status)
	assert.Equal(t, "approver", d.ApprovedBy)
	assert.False(t, d.ApprovedAt.IsZero())

	d, err = Retire(ctx, st, aud, doc.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRetired, d.Status)

	entries, err := aud.ByDocument(doc.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 5, "create plus four transitions")
}

func TestWorkflow_Reject(t *testing.T) {
	st, aud := newTestEnv(t)
	addCategory(t, st, "RPAS", 1000, 1999)
	doc := createTestDocument(t, st, aud)
	ctx := context.Background()

	_, err := SubmitForReview(ctx, st, aud, doc.ID, "author")
	require.NoError(t, err)
	_, err = SubmitForApproval(ctx, st, aud, doc.ID, "reviewer")
	require.NoError(t, err)

	d, err := Reject(ctx, st, aud, doc.ID, "approver")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, d.Status)

	// Rejection does not stamp an approval
	assert.True(t, d.ApprovedAt.IsZero())
}

func TestWorkflow_IllegalTransitions(t *testing.T) {
	st, aud := newTestEnv(t)
	addCategory(t, st, "RPAS", 1000, 1999)
	doc := createTestDocument(t, st, aud)
	ctx := context.Background()

	// Draft documents cannot skip ahead
	_, err := Approve(ctx, st, aud, doc.ID, "approver")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = Retire(ctx, st, aud, doc.ID, "admin")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = Reject(ctx, st, aud, doc.ID, "approver")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Failed transitions leave the status untouched
	got, err := st.GetDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, got.Status)

	// Retired is terminal
	activateDocument(t, st, aud, doc.ID)
	_, err = Retire(ctx, st, aud, doc.ID, "admin")
	require.NoError(t, err)
	_, err = SubmitForReview(ctx, st, aud, doc.ID, "author")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestParseTransition(t *testing.T) {
	tr, err := ParseTransition("approve")
	require.NoError(t, err)
	assert.Equal(t, TransitionApprove, tr)

	_, err = ParseTransition("publish")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = ParseTransition("")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
