package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-captable/internal/storage"
)

func TestIndexProgressStore_SetOverwrites(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewIndexProgressStore(pool)
	ctx := context.Background()

	_, err := store.Get(ctx, "tok-1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Set(ctx, &storage.IndexProgress{
		TokenID: "tok-1", Slot: 100, Signature: "sig-1",
	}))
	require.NoError(t, store.Set(ctx, &storage.IndexProgress{
		TokenID: "tok-1", Slot: 200, Signature: "sig-2",
	}))

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, int64(200), got.Slot)
	require.Equal(t, "sig-2", got.Signature)
}

func TestIndexProgressStore_SeenEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewIndexProgressStore(pool)
	ctx := context.Background()

	seen, err := store.IsEventSeen(ctx, "ev-1")
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, store.MarkEventSeen(ctx, "ev-1"))
	// Marking twice is a no-op.
	require.NoError(t, store.MarkEventSeen(ctx, "ev-1"))
	require.NoError(t, store.MarkEventSeen(ctx, "ev-2"))

	seen, err = store.IsEventSeen(ctx, "ev-1")
	require.NoError(t, err)
	require.True(t, seen)

	ids, err := store.LoadSeenEvents(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"ev-1", "ev-2"}, ids)
}
