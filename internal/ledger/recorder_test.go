package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-captable/internal/domain"
	"solana-captable/internal/replay"
	"solana-captable/internal/storage"
	"solana-captable/internal/storage/memory"
)

func newTestRecorder() (*Recorder, *memory.LedgerEntryStore) {
	store := memory.NewLedgerEntryStore()
	return NewRecorder(RecorderOptions{Store: store}), store
}

func TestRecordAssignsSyntheticSignature(t *testing.T) {
	r, _ := newTestRecorder()

	entry, err := r.RecordApproval(context.Background(), "token-1", 100, "alice", "admin")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(entry.TxSignature, "offchain:"))
	require.Equal(t, int64(100), entry.Slot)
	require.Equal(t, int64(1), entry.Seq)
}

func TestRecordKeepsChainSignature(t *testing.T) {
	r, _ := newTestRecorder()

	entry, err := r.Record(context.Background(), RecordRequest{
		TokenID: "token-1", Kind: domain.KindApproval, Slot: 100,
		Wallet: "alice", TxSignature: "sig-1", EventIndex: 2,
	})
	require.NoError(t, err)
	require.Equal(t, "sig-1", entry.TxSignature)
	require.Equal(t, 2, entry.EventIndex)
}

func TestRecordRejectsDuplicateChainEvent(t *testing.T) {
	r, _ := newTestRecorder()
	ctx := context.Background()

	req := RecordRequest{
		TokenID: "token-1", Kind: domain.KindApproval, Slot: 100,
		Wallet: "alice", TxSignature: "sig-1",
	}
	_, err := r.Record(ctx, req)
	require.NoError(t, err)

	_, err = r.Record(ctx, req)
	require.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRecordValidatesBeforeAppending(t *testing.T) {
	r, store := newTestRecorder()

	_, err := r.Record(context.Background(), RecordRequest{
		TokenID: "token-1", Kind: domain.KindTransfer, Slot: 100,
		Wallet: "alice", Amount: 10, // missing WalletTo
	})
	require.ErrorIs(t, err, storage.ErrInvalidInput)

	count, err := store.CountByToken(context.Background(), "token-1")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestRecordRejectsUnknownKind(t *testing.T) {
	r, _ := newTestRecorder()

	_, err := r.Record(context.Background(), RecordRequest{
		TokenID: "token-1", Kind: "margin_call", Slot: 100, Wallet: "alice",
	})
	require.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestRecordSequencesWithinSlot(t *testing.T) {
	r, _ := newTestRecorder()
	ctx := context.Background()

	first, err := r.RecordApproval(ctx, "token-1", 100, "alice", "admin")
	require.NoError(t, err)
	second, err := r.RecordApproval(ctx, "token-1", 100, "bob", "admin")
	require.NoError(t, err)
	third, err := r.RecordApproval(ctx, "token-1", 101, "carol", "admin")
	require.NoError(t, err)

	require.Equal(t, int64(1), first.Seq)
	require.Equal(t, int64(2), second.Seq)
	require.Equal(t, int64(1), third.Seq)
}

func TestRecordToleratesSlotRegression(t *testing.T) {
	r, store := newTestRecorder()
	ctx := context.Background()

	_, err := r.RecordApproval(ctx, "token-1", 200, "alice", "admin")
	require.NoError(t, err)
	// An entry below the head slot still lands, placed historically.
	_, err = r.RecordApproval(ctx, "token-1", 150, "bob", "admin")
	require.NoError(t, err)

	entries, err := store.GetByToken(ctx, "token-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NoError(t, replay.ValidateEntryOrdering(entries))
	require.Equal(t, int64(150), entries[0].Slot)
}

func TestConcurrentAppendsKeepTotalOrder(t *testing.T) {
	r, store := newTestRecorder()
	ctx := context.Background()

	const writers = 16
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.RecordApproval(ctx, "token-1", 100, "alice", "admin")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := store.GetByToken(ctx, "token-1")
	require.NoError(t, err)
	require.Len(t, entries, writers)
	require.NoError(t, replay.ValidateEntryOrdering(entries))
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, *domain.LedgerEntry) error {
	p.calls++
	return errors.New("broker down")
}

func (p *failingPublisher) Close() {}

func TestBroadcastFailureDoesNotFailAppend(t *testing.T) {
	store := memory.NewLedgerEntryStore()
	pub := &failingPublisher{}
	r := NewRecorder(RecorderOptions{Store: store, Publisher: pub})

	_, err := r.RecordApproval(context.Background(), "token-1", 100, "alice", "admin")
	require.NoError(t, err)
	require.Equal(t, 1, pub.calls)
}

func TestRecordFundingRoundClose(t *testing.T) {
	r, store := newTestRecorder()
	ctx := context.Background()

	seriesA := ClassTerms{ShareClassID: "series-a", Priority: 1, PreferenceMultiple: 1.0, PricePerShare: 200}
	recorded, err := r.RecordFundingRoundClose(ctx, "token-1", 500, "round-1", []Investment{
		{Wallet: "inv-1", Shares: 500, AmountPaid: 100_000, Terms: seriesA},
		{Wallet: "inv-2", Shares: 250, AmountPaid: 50_000, Terms: seriesA},
	}, "admin")
	require.NoError(t, err)
	require.Len(t, recorded, 3)
	require.Equal(t, domain.KindFundingRoundClose, recorded[0].Kind)
	require.Equal(t, domain.KindInvestment, recorded[1].Kind)

	// The bookkeeping entry moves nothing; folding the ledger credits shares
	// only through the investment entries.
	entries, err := store.GetByToken(ctx, "token-1")
	require.NoError(t, err)
	state := domain.NewTokenState("token-1")
	require.NoError(t, replay.Replay(state, entries))
	require.Equal(t, int64(750), state.TotalSupply)
	require.Equal(t, int64(500), state.Balances["inv-1"])
	require.Equal(t, state.TotalSupply, state.BalancesTotal())
}
