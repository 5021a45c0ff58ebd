package chatlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndHistory(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id1, err := store.Save(ctx, "do you have mats?", "Yes, several.")
	require.NoError(t, err)
	id2, err := store.Save(ctx, "which is cheapest?", "The EVA block.")
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	records, err := store.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.Equal(t, "which is cheapest?", records[0].UserMessage)
	assert.Equal(t, "do you have mats?", records[1].UserMessage)
	assert.NotEmpty(t, records[0].Timestamp)
}

func TestHistory_Limit(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Save(ctx, "q", "a")
		require.NoError(t, err)
	}

	records, err := store.History(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestRecordFeedback(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.Save(ctx, "question", "answer")
	require.NoError(t, err)

	require.NoError(t, store.RecordFeedback(ctx, id, "good"))

	records, err := store.History(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "good", records[0].Feedback)

	// Label survives a history clear via the feedback table.
	var n int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM good_feedback`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRecordFeedback_InvalidLabel(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, _ := store.Save(ctx, "q", "a")

	assert.Error(t, store.RecordFeedback(ctx, id, "meh"))
}

func TestRecordFeedback_UnknownMessage(t *testing.T) {
	store := testStore(t)

	assert.Error(t, store.RecordFeedback(context.Background(), 999, "bad"))
}

func TestClearAndCount(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	store.Save(ctx, "q1", "a1")
	store.Save(ctx, "q2", "a2")

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	deleted, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
