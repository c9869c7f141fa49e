package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage"
)

func TestTokenStore_InsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewTokenStore(pool)
	ctx := context.Background()

	token := &domain.Token{
		TokenID:     "tok-1",
		Symbol:      "ACME",
		Name:        "Acme Inc",
		Authority:   "admin",
		CreatedSlot: 100,
	}
	require.NoError(t, store.Insert(ctx, token))
	require.NotZero(t, token.CreatedAt)

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, "ACME", got.Symbol)
	require.Equal(t, "Acme Inc", got.Name)
	require.Equal(t, int64(100), got.CreatedSlot)

	require.ErrorIs(t, store.Insert(ctx, token), storage.ErrDuplicateKey)

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_GetAllOrdered(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewTokenStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.Token{TokenID: "tok-b"}))
	require.NoError(t, store.Insert(ctx, &domain.Token{TokenID: "tok-a"}))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "tok-a", all[0].TokenID)
	require.Equal(t, "tok-b", all[1].TokenID)
}

func TestTokenStore_UpdateSymbol(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewTokenStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.Token{TokenID: "tok-1", Symbol: "OLD"}))
	require.NoError(t, store.UpdateSymbol(ctx, "tok-1", "NEW"))

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, "NEW", got.Symbol)

	require.ErrorIs(t, store.UpdateSymbol(ctx, "missing", "X"), storage.ErrNotFound)
}
