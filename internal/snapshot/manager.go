package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"solana-captable/internal/domain"
	"solana-captable/internal/observability"
	"solana-captable/internal/replay"
	"solana-captable/internal/storage"
)

// Manager creates and prunes snapshots. Creation is lock-free: the state is
// computed from a ledger read and written as a single new row that is never
// overwritten, so concurrent creators at worst produce a duplicate key, which
// counts as success.
type Manager struct {
	reconstructor *replay.Reconstructor
	store         storage.SnapshotStore
	policy        Policy
	keepLast      int
	logger        *zap.Logger
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Reconstructor *replay.Reconstructor
	Store         storage.SnapshotStore
	// Policy defaults to every-entries:500.
	Policy Policy
	// KeepLast bounds how many snapshots pruning retains per token.
	// Defaults to 5.
	KeepLast int
	Logger   *zap.Logger
}

// NewManager creates a new Manager.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Policy == nil {
		opts.Policy = everyEntriesPolicy{n: DefaultEveryEntries}
	}
	if opts.KeepLast <= 0 {
		opts.KeepLast = 5
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		reconstructor: opts.Reconstructor,
		store:         opts.Store,
		policy:        opts.Policy,
		keepLast:      opts.KeepLast,
		logger:        opts.Logger,
	}
}

// CreateSnapshot reconstructs the token at the given slot and stores the
// result. An existing snapshot at the same order key counts as success.
func (m *Manager) CreateSnapshot(ctx context.Context, tokenID string, slot int64) (*domain.Snapshot, error) {
	state, err := m.reconstructor.Reconstruct(ctx, tokenID, slot)
	if err != nil {
		observability.DefaultMetrics.SnapshotFailures.Inc()
		return nil, fmt.Errorf("reconstruct %s for snapshot: %w", tokenID, err)
	}
	return m.Store(ctx, state)
}

// Store persists an already-reconstructed state as a snapshot.
func (m *Manager) Store(ctx context.Context, state *domain.TokenState) (*domain.Snapshot, error) {
	encoded, err := json.Marshal(state)
	if err != nil {
		observability.DefaultMetrics.SnapshotFailures.Inc()
		return nil, fmt.Errorf("encode snapshot for %s: %w", state.TokenID, err)
	}

	snap := &domain.Snapshot{
		TokenID:        state.TokenID,
		Slot:           state.Slot,
		Seq:            state.Seq,
		EntriesApplied: state.EntriesApplied,
		State:          encoded,
	}
	if err := m.store.Insert(ctx, snap); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Another creator got here first; the row is identical by
			// determinism, so this capture succeeded.
			return snap, nil
		}
		observability.DefaultMetrics.SnapshotFailures.Inc()
		return nil, fmt.Errorf("insert snapshot for %s: %w", state.TokenID, err)
	}

	observability.RecordSnapshotCreated(len(encoded))
	m.logger.Info("snapshot created",
		zap.String("token", state.TokenID),
		zap.Int64("slot", state.Slot),
		zap.Int64("seq", state.Seq),
		zap.Int64("entries_applied", state.EntriesApplied))
	return snap, nil
}

// MaybeSnapshot stores the state if the policy calls for it, returning
// whether a snapshot was written.
func (m *Manager) MaybeSnapshot(ctx context.Context, state *domain.TokenState) (bool, error) {
	var lastSlot, lastApplied int64
	last, err := m.store.Latest(ctx, state.TokenID, state.Slot, state.Seq)
	switch {
	case err == nil:
		lastSlot, lastApplied = last.Slot, last.EntriesApplied
	case errors.Is(err, storage.ErrNotFound):
		// First snapshot for this token.
	default:
		return false, fmt.Errorf("lookup latest snapshot for %s: %w", state.TokenID, err)
	}

	if !m.policy.ShouldSnapshot(state, lastSlot, lastApplied) {
		return false, nil
	}
	if _, err := m.Store(ctx, state); err != nil {
		return false, err
	}
	return true, nil
}

// Prune removes all but the newest keepLast snapshots of a token. Deleting
// snapshots is always safe; they are never the source of truth.
func (m *Manager) Prune(ctx context.Context, tokenID string) (int64, error) {
	deleted, err := m.store.DeleteOlderThan(ctx, tokenID, m.keepLast)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots for %s: %w", tokenID, err)
	}
	if deleted > 0 {
		observability.DefaultMetrics.SnapshotsPruned.Add(float64(deleted))
		m.logger.Debug("snapshots pruned",
			zap.String("token", tokenID),
			zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
