package verification

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-captable/internal/domain"
	"solana-captable/internal/replay"
	"solana-captable/internal/storage/memory"
)

func baseState() *domain.TokenState {
	s := domain.NewTokenState("token-1")
	s.Slot = 100
	s.Seq = 3
	s.TotalSupply = 1500
	s.Balances["alice"] = 1000
	s.Balances["bob"] = 500
	s.ApprovedWallets["alice"] = true
	s.Positions[domain.PositionKey{Wallet: "bob", ShareClassID: "series-a"}] = &domain.Position{
		Shares: 500, CostBasis: 100_000, Priority: 1, PreferenceMultiple: 1.0,
	}
	s.VestingSchedules["sched-1"] = &domain.VestingScheduleState{
		ScheduleID: "sched-1", Beneficiary: "alice", TotalAmount: 100,
		StartTime: 1000, DurationSeconds: 3600, Interval: domain.IntervalMinute,
	}
	s.EntriesApplied = 3
	return s
}

func TestCompareTokenStatesEqual(t *testing.T) {
	a := baseState()
	require.Empty(t, CompareTokenStates(a, a.Clone()))
}

func TestCompareTokenStatesDivergences(t *testing.T) {
	a := baseState()
	b := a.Clone()
	b.TotalSupply = 1400
	b.Balances["bob"] = 400
	delete(b.ApprovedWallets, "alice")
	b.Positions[domain.PositionKey{Wallet: "bob", ShareClassID: "series-a"}].Shares = 400
	b.VestingSchedules["sched-1"].Terminated = true

	divergences := CompareTokenStates(a, b)
	fields := make(map[string]bool, len(divergences))
	for _, d := range divergences {
		fields[d.Field] = true
	}
	require.True(t, fields["TotalSupply"])
	require.True(t, fields["Balances[bob]"])
	require.True(t, fields["ApprovedWallets[alice]"])
	require.True(t, fields["Positions[bob|series-a].Shares"])
	require.True(t, fields["VestingSchedules[sched-1]"])
}

func TestComparePreferenceMultipleTolerance(t *testing.T) {
	a := baseState()
	b := a.Clone()
	key := domain.PositionKey{Wallet: "bob", ShareClassID: "series-a"}
	b.Positions[key].PreferenceMultiple = a.Positions[key].PreferenceMultiple + 1e-12
	require.Empty(t, CompareTokenStates(a, b))

	b.Positions[key].PreferenceMultiple = 1.5
	require.NotEmpty(t, CompareTokenStates(a, b))
}

func TestVerifyConservation(t *testing.T) {
	state := baseState()
	require.True(t, VerifyConservation(state).OK)

	state.TotalSupply = 9999
	result := VerifyConservation(state)
	require.False(t, result.OK)
	require.Len(t, result.Divergences, 1)
}

func seedVerifierLedger(t *testing.T) (*memory.LedgerEntryStore, *memory.SnapshotStore) {
	t.Helper()
	entries := memory.NewLedgerEntryStore()
	ctx := context.Background()

	seed := []*domain.LedgerEntry{
		{TokenID: "token-1", Slot: 10, Kind: domain.KindApproval, Wallet: "alice"},
		{TokenID: "token-1", Slot: 20, Kind: domain.KindShareGrant, Wallet: "alice", Amount: 1000,
			ShareClassID: "common", Priority: domain.DefaultPriority, PreferenceMultiple: domain.DefaultPreferenceMultiple},
		{TokenID: "token-1", Slot: 30, Kind: domain.KindShareGrant, Wallet: "bob", Amount: 500, AmountSecondary: 100_000,
			ShareClassID: "series-a", Priority: 1, PreferenceMultiple: 1.0},
		{TokenID: "token-1", Slot: 40, Kind: domain.KindBurn, Wallet: "alice", Amount: 100},
	}
	for _, e := range seed {
		_, err := entries.Append(ctx, e)
		require.NoError(t, err)
	}

	snapshots := memory.NewSnapshotStore()
	rec := replay.NewReconstructor(replay.ReconstructorOptions{EntryStore: entries})
	mid, err := rec.Reconstruct(ctx, "token-1", 30)
	require.NoError(t, err)
	encoded, err := json.Marshal(mid)
	require.NoError(t, err)
	require.NoError(t, snapshots.Insert(ctx, &domain.Snapshot{
		TokenID: "token-1", Slot: mid.Slot, Seq: mid.Seq,
		EntriesApplied: mid.EntriesApplied, State: encoded,
	}))
	return entries, snapshots
}

func TestVerifyDeterminism(t *testing.T) {
	entries, _ := seedVerifierLedger(t)
	v := NewReplayVerifier(ReplayVerifierOptions{EntryStore: entries})

	result, err := v.VerifyDeterminism(context.Background(), "token-1", 40)
	require.NoError(t, err)
	require.True(t, result.OK)
	require.EqualValues(t, 4, result.EntriesReplayed)
}

func TestVerifySnapshotEquivalence(t *testing.T) {
	entries, snapshots := seedVerifierLedger(t)
	v := NewReplayVerifier(ReplayVerifierOptions{EntryStore: entries, SnapshotStore: snapshots})

	result, err := v.VerifySnapshotEquivalence(context.Background(), "token-1", 40)
	require.NoError(t, err)
	require.True(t, result.OK, "divergences: %v", result.Divergences)
	require.EqualValues(t, 4, result.EntriesReplayed)
}
