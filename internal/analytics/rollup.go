// Package analytics folds the ledger into per-slot cap-table history points
// for the timeseries store. The rollup is incremental: each run extends the
// series from the last stored point to the current ledger head, so re-running
// it is cheap and idempotent per slot.
package analytics

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"solana-captable/internal/domain"
	"solana-captable/internal/replay"
	"solana-captable/internal/storage"
)

// Rollup extends captable_timeseries from the ledger.
type Rollup struct {
	entryStore storage.LedgerEntryStore
	pointStore storage.CapTablePointStore
	logger     *zap.Logger
}

// RollupOptions contains configuration for creating a Rollup.
type RollupOptions struct {
	EntryStore storage.LedgerEntryStore
	PointStore storage.CapTablePointStore
	Logger     *zap.Logger
}

// NewRollup creates a new Rollup.
func NewRollup(opts RollupOptions) *Rollup {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rollup{
		entryStore: opts.EntryStore,
		pointStore: opts.PointStore,
		logger:     logger,
	}
}

// RollupToken folds new ledger entries into history points, one point per
// slot that has entries, and stores them. Returns the number of points
// written.
func (r *Rollup) RollupToken(ctx context.Context, tokenID string) (int, error) {
	fromSlot := int64(-1)
	latest, err := r.pointStore.GetLatest(ctx, tokenID)
	switch {
	case err == nil:
		fromSlot = latest.Slot
	case errors.Is(err, storage.ErrNotFound):
		// first rollup for this token
	default:
		return 0, fmt.Errorf("load latest point for %s: %w", tokenID, err)
	}

	state := domain.NewTokenState(tokenID)
	if fromSlot >= 0 {
		// Rebuild the state as of the last stored point, then fold forward.
		baseline, err := r.entryStore.GetRange(ctx, tokenID, -1, 0, fromSlot, replay.MaxSeq)
		if err != nil {
			return 0, fmt.Errorf("load baseline entries for %s: %w", tokenID, err)
		}
		if err := replay.Replay(state, baseline); err != nil {
			return 0, fmt.Errorf("replay baseline for %s: %w", tokenID, err)
		}
	}

	headSlot, headSeq, err := r.entryStore.HeadOrderKey(ctx, tokenID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("resolve head for %s: %w", tokenID, err)
	}
	if headSlot <= fromSlot {
		return 0, nil
	}

	entries, err := r.entryStore.GetRange(ctx, tokenID, fromSlot, replay.MaxSeq, headSlot, headSeq)
	if err != nil {
		return 0, fmt.Errorf("load new entries for %s: %w", tokenID, err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	points := foldPoints(state, entries)
	if len(points) == 0 {
		return 0, nil
	}
	if err := r.pointStore.InsertBulk(ctx, points); err != nil {
		return 0, fmt.Errorf("store %d points for %s: %w", len(points), tokenID, err)
	}

	r.logger.Info("rollup extended",
		zap.String("token_id", tokenID),
		zap.Int64("from_slot", fromSlot),
		zap.Int64("to_slot", headSlot),
		zap.Int("points", len(points)))
	return len(points), nil
}

// RollupAll runs the rollup for every tracked token, continuing past
// per-token failures.
func (r *Rollup) RollupAll(ctx context.Context, tokens storage.TokenStore) (int, error) {
	all, err := tokens.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tokens: %w", err)
	}

	total := 0
	var firstErr error
	for _, token := range all {
		n, err := r.RollupToken(ctx, token.TokenID)
		if err != nil {
			r.logger.Error("rollup failed", zap.String("token_id", token.TokenID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += n
	}
	return total, firstErr
}

// foldPoints folds entries into state and emits one point per slot that has
// entries. The baseline state is mutated in place. Entries must be ordered by
// (slot, seq) and lie strictly after the baseline's order key.
func foldPoints(state *domain.TokenState, entries []*domain.LedgerEntry) []*domain.CapTablePoint {
	var points []*domain.CapTablePoint
	blockTime := int64(0)
	folded := 0

	emit := func() {
		vestTotal, vestReleased := state.VestingTotals()
		points = append(points, &domain.CapTablePoint{
			TokenID:         state.TokenID,
			Slot:            state.Slot,
			BlockTime:       blockTime,
			TotalSupply:     state.TotalSupply,
			HolderCount:     state.HolderCount(),
			ApprovedCount:   len(state.ApprovedWallets),
			VestingTotal:    vestTotal,
			VestingReleased: vestReleased,
			EntriesApplied:  state.EntriesApplied,
		})
	}

	for _, e := range entries {
		if folded > 0 && e.Slot > state.Slot {
			emit()
		}
		if err := replay.Fold(state, e); err != nil {
			// A malformed entry fails reconstruction too; stop the series
			// here rather than emit points past a broken ledger.
			break
		}
		folded++
		if e.BlockTime > 0 {
			blockTime = e.BlockTime
		}
	}
	if folded > 0 {
		emit()
	}
	return points
}
