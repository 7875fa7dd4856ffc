package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSnapshot_Manual(t *testing.T) {
	st, aud := newTestEnv(t)
	addCategory(t, st, "RPAS", 1000, 1999)
	doc := createTestDocument(t, st, aud)

	snap, err := CreateSnapshot(context.Background(), st, doc.ID, "pre-audit copy", "admin")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, snap.DocumentID)
	assert.Equal(t, "1.0", snap.Version)
	assert.Equal(t, "pre-audit copy", snap.Note)
	assert.Empty(t, snap.ChangedFields)

	// The document itself is untouched
	got, err := st.GetDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.0", got.Version)
	assert.Empty(t, got.PreviousVersionID)

	_, err = CreateSnapshot(context.Background(), st, "missing", "", "admin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSnapshots_NewestFirst(t *testing.T) {
	st, aud := newTestEnv(t)
	addCategory(t, st, "RPAS", 1000, 1999)
	doc := createTestDocument(t, st, aud)

	for _, note := range []string{"first", "second"} {
		_, err := CreateSnapshot(context.Background(), st, doc.ID, note, "admin")
		require.NoError(t, err)
	}

	snaps, err := ListSnapshots(st, doc.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.False(t, snaps[0].CreatedAt.Before(snaps[1].CreatedAt))
}
