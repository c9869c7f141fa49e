package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu      sync.RWMutex
	nextID  int64
	byToken map[string][]*domain.Snapshot // sorted by (slot, seq) ASC
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		nextID:  1,
		byToken: make(map[string][]*domain.Snapshot),
	}
}

// Insert adds a new snapshot. Returns ErrDuplicateKey if a snapshot already
// exists at the same (token_id, slot, seq).
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.TokenID == "" || len(snap.State) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := s.byToken[snap.TokenID]
	idx := sort.Search(len(snaps), func(i int) bool {
		return orderKeyAfter(snaps[i].Slot, snaps[i].Seq, snap.Slot, snap.Seq)
	})
	if idx > 0 && snaps[idx-1].Slot == snap.Slot && snaps[idx-1].Seq == snap.Seq {
		return storage.ErrDuplicateKey
	}

	stored := *snap
	stored.ID = s.nextID
	s.nextID++
	if stored.CreatedAt == 0 {
		stored.CreatedAt = time.Now().UnixMilli()
	}
	stored.State = append([]byte(nil), snap.State...)

	snaps = append(snaps, nil)
	copy(snaps[idx+1:], snaps[idx:])
	snaps[idx] = &stored
	s.byToken[snap.TokenID] = snaps
	return nil
}

// Latest retrieves the newest snapshot with order key <= (slot, seq).
func (s *SnapshotStore) Latest(_ context.Context, tokenID string, slot, seq int64) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.byToken[tokenID]
	// First snapshot strictly after the target; the one before it is ours.
	idx := sort.Search(len(snaps), func(i int) bool {
		return orderKeyAfter(snaps[i].Slot, snaps[i].Seq, slot, seq)
	})
	if idx == 0 {
		return nil, storage.ErrNotFound
	}
	return copySnapshot(snaps[idx-1]), nil
}

// GetByToken retrieves all snapshots for a token, ordered by (slot, seq) ASC.
func (s *SnapshotStore) GetByToken(_ context.Context, tokenID string) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.byToken[tokenID]
	result := make([]*domain.Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		result = append(result, copySnapshot(snap))
	}
	return result, nil
}

// DeleteOlderThan removes all but the keepLast newest snapshots of a token.
func (s *SnapshotStore) DeleteOlderThan(_ context.Context, tokenID string, keepLast int) (int64, error) {
	if keepLast < 0 {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := s.byToken[tokenID]
	if len(snaps) <= keepLast {
		return 0, nil
	}
	deleted := len(snaps) - keepLast
	s.byToken[tokenID] = append([]*domain.Snapshot(nil), snaps[deleted:]...)
	return int64(deleted), nil
}

func copySnapshot(snap *domain.Snapshot) *domain.Snapshot {
	cp := *snap
	cp.State = append([]byte(nil), snap.State...)
	return &cp
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
