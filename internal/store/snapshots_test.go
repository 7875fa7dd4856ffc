package store

import (
	"testing"
	"time"

	"github.com/avior/policyvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Snapshots(t *testing.T) {
	st := newTestStore(t)
	testCategory(t, st)

	doc := testDocument("doc-1", 1001)
	require.NoError(t, st.WithTx(func(tx *Tx) error { return tx.InsertDocument(doc) }))

	snap := models.SnapshotOf(doc)
	snap.ID = "snap-1"
	snap.Note = "before title change"
	snap.ChangedFields = []string{"title"}
	snap.CreatedAt = time.Now().UTC()
	snap.CreatedBy = "tester"
	require.NoError(t, st.WithTx(func(tx *Tx) error { return tx.InsertSnapshot(snap) }))

	got, err := st.GetSnapshot("snap-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.DocumentID)
	assert.Equal(t, "1.0", got.Version)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Sections, got.Sections)
	assert.Equal(t, []string{"title"}, got.ChangedFields)
	assert.Equal(t, "before title change", got.Note)
	assert.Equal(t, models.StatusDraft, got.Status)

	_, err = st.GetSnapshot("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListSnapshots(t *testing.T) {
	st := newTestStore(t)
	testCategory(t, st)

	doc := testDocument("doc-1", 1001)
	require.NoError(t, st.WithTx(func(tx *Tx) error { return tx.InsertDocument(doc) }))

	for i, version := range []string{"1.0", "1.1", "2.0"} {
		snap := models.SnapshotOf(doc)
		snap.ID = string(rune('a' + i))
		snap.Version = version
		snap.CreatedAt = time.Now().UTC()
		require.NoError(t, st.WithTx(func(tx *Tx) error { return tx.InsertSnapshot(snap) }))
	}

	snaps, err := st.ListSnapshots("doc-1")
	require.NoError(t, err)
	assert.Len(t, snaps, 3)

	// Other documents have no snapshots
	snaps, err = st.ListSnapshots("doc-2")
	require.NoError(t, err)
	assert.Empty(t, snaps)
}
