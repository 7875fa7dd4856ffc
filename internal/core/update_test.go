package core

import (
	"context"
	"testing"
	"time"

	"github.com/avior/policyvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUpdateDocument_MinorBump(t *testing.T) {
	st, aud := newTestEnv(t)
	addCategory(t, st, "RPAS", 1000, 1999)
	doc := createTestDocument(t, st, aud)
	oldTitle := doc.Title

	updated, err := UpdateDocument(context.Background(), st, aud, doc.ID,
		Fields{Title: strPtr("Revised Drone Operations Policy")},
		UpdateOptions{CreateNewVersion: true, Note: "title cleanup", ActorID: "editor"})
	require.NoError(t, err)

	assert.Equal(t, "1.1", updated.Version)
	assert.Equal(t, "Revised Drone Operations Policy", updated.Title)
	assert.Equal(t, "editor", updated.UpdatedBy)
	require.NotEmpty(t, updated.PreviousVersionID)

	// The snapshot holds the pre-change state
	snap, err := GetSnapshot(st, updated.PreviousVersionID)
	require.NoError(t, err)
	assert.Equal(t, "1.0", snap.Version)
	assert.Equal(t, oldTitle, snap.Title)
	assert.Equal(t, []string{"title"}, snap.ChangedFields)
	assert.Equal(t, "title cleanup", snap.Note)
	assert.Equal(t, "editor", snap.CreatedBy)
}

func TestUpdateDocument_MajorBump(t *testing.T) {
	st, aud := newTestEnv(t)
	addCategory(t, st, "RPAS", 1000, 1999)
	doc := createTestDocument(t, st, aud)

	updated, err := UpdateDocument(context.Background(), st, aud, doc.ID,
		Fields{Sections: []models.Section{{Heading: "Purpose", Body: "Rewritten."}}},
		UpdateOptions{CreateNewVersion: true, VersionType: VersionTypeMajor, ActorID: "editor"})
	require.NoError(t, err)

	assert.Equal(t, "2.0", updated.Version)

	snap, err := GetSnapshot(st, updated.PreviousVersionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"content"}, snap.ChangedFields)
}

// A requested bump with no tracked-field change must not advance the version
// or write a snapshot.
func TestUpdateDocument_NoChangeNoBump(t *testing.T) {
	st, aud := newTestEnv(t)
	addCategory(t, st, "RPAS", 1000, 1999)
	doc := createTestDocument(t, st, aud)

	updated, err := UpdateDocument(context.Background(), st, aud, doc.ID,
		Fields{Title: strPtr(doc.Title)},
		UpdateOptions{CreateNewVersion: true, ActorID: "editor"})
	require.NoError(t, err)

	assert.Equal(t, "1.0", updated.Version)
	assert.Empty(t, updated.PreviousVersionID)

	snaps, err := ListSnapshots(st, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

// Untracked fields update in place without version churn.
func TestUpdateDocument_UntrackedFields(t *testing.T) {
	st, aud := newTestEnv(t)
	addCategory(t, st, "RPAS", 1000, 1999)
	doc := createTestDocument(t, st, aud)

	requiresAck := false
	updated, err := UpdateDocument(context.Background(), st, aud, doc.ID,
		Fields{AckRoles: []string{"pilot", "observer"}, RequiresAck: &requiresAck},
		UpdateOptions{CreateNewVersion: true, ActorID: "editor"})
	require.NoError(t, err)

	assert.Equal(t, "1.0", updated.Version)
	assert.Equal(t, []string{"pilot", "observer"}, updated.AckRoles)
	assert.False(t, updated.RequiresAck)
}

func TestUpdateDocument_InPlaceEdit(t *testing.T) {
	st, aud := newTestEnv(t)
	addCategory(t, st, "RPAS", 1000, 1999)
	doc := createTestDocument(t, st, aud)

	// Tracked field changed, but no new version requested
	updated, err := UpdateDocument(context.Background(), st, aud, doc.ID,
		Fields{Description: strPtr("Tightened wording.")},
		UpdateOptions{ActorID: "editor"})
	require.NoError(t, err)

	assert.Equal(t, "1.0", updated.Version)
	assert.Equal(t, "Tightened wording.", updated.Description)

	snaps, err := ListSnapshots(st, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

// Version advance must invalidate acknowledgments of the old version in the
// same operation.
func TestUpdateDocument_InvalidatesAcks(t *testing.T) {
	st, aud := newTestEnv(t)
	addCategory(t, st, "RPAS", 1000, 1999)
	doc := createTestDocument(t, st, aud)
	activateDocument(t, st, aud, doc.ID)

	_, err := RecordAcknowledgment(context.Background(), st, aud, doc.ID, "", "u1", AckOptions{})
	require.NoError(t, err)

	_, err = UpdateDocument(context.Background(), st, aud, doc.ID,
		Fields{Title: strPtr("Revised")},
		UpdateOptions{CreateNewVersion: true, ActorID: "editor"})
	require.NoError(t, err)

	acks, err := st.ListUserAcknowledgments(doc.ID, "u1")
	require.NoError(t, err)
	require.Len(t, acks, 1)
	assert.True(t, acks[0].Invalidated)
}

func TestUpdateDocument_Errors(t *testing.T) {
	st, aud := newTestEnv(t)
	addCategory(t, st, "RPAS", 1000, 1999)
	doc := createTestDocument(t, st, aud)

	_, err := UpdateDocument(context.Background(), st, aud, "missing", Fields{}, UpdateOptions{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = UpdateDocument(context.Background(), st, aud, doc.ID, Fields{},
		UpdateOptions{VersionType: "patch"})
	assert.Error(t, err)
}

// Repeated minor bumps walk the minor component without touching major.
func TestUpdateDocument_VersionSequence(t *testing.T) {
	st, aud := newTestEnv(t)
	addCategory(t, st, "RPAS", 1000, 1999)
	doc := createTestDocument(t, st, aud)

	for i, want := range []string{"1.1", "1.2", "1.3"} {
		updated, err := UpdateDocument(context.Background(), st, aud, doc.ID,
			Fields{Description: strPtr(time.Now().Add(time.Duration(i) * time.Second).String())},
			UpdateOptions{CreateNewVersion: true, ActorID: "editor"})
		require.NoError(t, err)
		assert.Equal(t, want, updated.Version)
	}

	snaps, err := ListSnapshots(st, doc.ID)
	require.NoError(t, err)
	assert.Len(t, snaps, 3)
}
