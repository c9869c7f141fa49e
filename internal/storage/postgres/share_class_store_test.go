package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage"
)

func TestShareClassStore_InsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewShareClassStore(pool)
	ctx := context.Background()

	class := &domain.ShareClass{
		ClassID:            "series-a",
		TokenID:            "tok-1",
		Name:               "Series A Preferred",
		Symbol:             "SER-A",
		Priority:           1,
		PreferenceMultiple: 1.5,
		VotesPerShare:      1,
		Convertible:        true,
	}
	require.NoError(t, store.Insert(ctx, class))

	got, err := store.Get(ctx, "series-a")
	require.NoError(t, err)
	require.Equal(t, "Series A Preferred", got.Name)
	require.Equal(t, 1.5, got.PreferenceMultiple)
	require.True(t, got.Convertible)

	require.ErrorIs(t, store.Insert(ctx, class), storage.ErrDuplicateKey)

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestShareClassStore_GetByTokenOrderedByPriority(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewShareClassStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.ShareClass{
		ClassID: "common", TokenID: "tok-1", Name: "Common", Priority: 99,
	}))
	require.NoError(t, store.Insert(ctx, &domain.ShareClass{
		ClassID: "series-a", TokenID: "tok-1", Name: "Series A", Priority: 1,
	}))
	require.NoError(t, store.Insert(ctx, &domain.ShareClass{
		ClassID: "other", TokenID: "tok-2", Name: "Other", Priority: 1,
	}))

	classes, err := store.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	require.Len(t, classes, 2)
	require.Equal(t, "series-a", classes[0].ClassID)
	require.Equal(t, "common", classes[1].ClassID)
}
