package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage/memory"
)

func seedRollup(t *testing.T) (*Rollup, *memory.LedgerEntryStore, *memory.CapTablePointStore) {
	t.Helper()
	entries := memory.NewLedgerEntryStore()
	points := memory.NewCapTablePointStore()
	r := NewRollup(RollupOptions{EntryStore: entries, PointStore: points})
	return r, entries, points
}

func appendAll(t *testing.T, store *memory.LedgerEntryStore, entries []*domain.LedgerEntry) {
	t.Helper()
	for _, e := range entries {
		_, err := store.Append(context.Background(), e)
		require.NoError(t, err)
	}
}

func TestRollupEmitsOnePointPerSlot(t *testing.T) {
	r, entries, points := seedRollup(t)
	appendAll(t, entries, []*domain.LedgerEntry{
		{TokenID: "mint-1", Slot: 10, BlockTime: 100, Kind: domain.KindApproval, Wallet: "alice"},
		{TokenID: "mint-1", Slot: 10, BlockTime: 100, Kind: domain.KindApproval, Wallet: "bob"},
		{TokenID: "mint-1", Slot: 20, BlockTime: 200, Kind: domain.KindShareGrant, Wallet: "alice", Amount: 1000,
			ShareClassID: "common", Priority: domain.DefaultPriority, PreferenceMultiple: domain.DefaultPreferenceMultiple},
		{TokenID: "mint-1", Slot: 30, BlockTime: 300, Kind: domain.KindTransfer, Wallet: "alice", WalletTo: "bob", Amount: 400},
	})

	n, err := r.RollupToken(context.Background(), "mint-1")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	stored, err := points.GetRange(context.Background(), "mint-1", 0, 100)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	require.EqualValues(t, 10, stored[0].Slot)
	require.EqualValues(t, 0, stored[0].TotalSupply)
	require.Equal(t, 2, stored[0].ApprovedCount)
	require.EqualValues(t, 2, stored[0].EntriesApplied)

	require.EqualValues(t, 20, stored[1].Slot)
	require.EqualValues(t, 1000, stored[1].TotalSupply)
	require.Equal(t, 1, stored[1].HolderCount)

	require.EqualValues(t, 30, stored[2].Slot)
	require.EqualValues(t, 300, stored[2].BlockTime)
	require.Equal(t, 2, stored[2].HolderCount)
	require.EqualValues(t, 4, stored[2].EntriesApplied)
}

func TestRollupIsIncremental(t *testing.T) {
	r, entries, points := seedRollup(t)
	appendAll(t, entries, []*domain.LedgerEntry{
		{TokenID: "mint-1", Slot: 10, Kind: domain.KindApproval, Wallet: "alice"},
		{TokenID: "mint-1", Slot: 20, Kind: domain.KindShareGrant, Wallet: "alice", Amount: 1000,
			ShareClassID: "common", Priority: domain.DefaultPriority, PreferenceMultiple: domain.DefaultPreferenceMultiple},
	})

	n, err := r.RollupToken(context.Background(), "mint-1")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// No new entries: nothing to write.
	n, err = r.RollupToken(context.Background(), "mint-1")
	require.NoError(t, err)
	require.Zero(t, n)

	appendAll(t, entries, []*domain.LedgerEntry{
		{TokenID: "mint-1", Slot: 30, Kind: domain.KindBurn, Wallet: "alice", Amount: 100},
	})
	n, err = r.RollupToken(context.Background(), "mint-1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	latest, err := points.GetLatest(context.Background(), "mint-1")
	require.NoError(t, err)
	require.EqualValues(t, 30, latest.Slot)
	require.EqualValues(t, 900, latest.TotalSupply)
	require.EqualValues(t, 3, latest.EntriesApplied)
}

func TestRollupEmptyLedger(t *testing.T) {
	r, _, _ := seedRollup(t)
	n, err := r.RollupToken(context.Background(), "mint-1")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRollupAllContinuesPastFailures(t *testing.T) {
	r, entries, _ := seedRollup(t)
	appendAll(t, entries, []*domain.LedgerEntry{
		{TokenID: "good", Slot: 10, Kind: domain.KindMint, Wallet: "alice", Amount: 500},
	})

	tokens := memory.NewTokenStore()
	require.NoError(t, tokens.Insert(context.Background(), &domain.Token{TokenID: "empty"}))
	require.NoError(t, tokens.Insert(context.Background(), &domain.Token{TokenID: "good"}))

	total, err := r.RollupAll(context.Background(), tokens)
	require.NoError(t, err)
	require.Equal(t, 1, total)
}
