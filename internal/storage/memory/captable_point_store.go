package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage"
)

// CapTablePointStore is an in-memory implementation of
// storage.CapTablePointStore.
type CapTablePointStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CapTablePoint // keyed by token_id|slot
}

// NewCapTablePointStore creates a new in-memory cap-table history store.
func NewCapTablePointStore() *CapTablePointStore {
	return &CapTablePointStore{
		data: make(map[string]*domain.CapTablePoint),
	}
}

func pointKey(tokenID string, slot int64) string {
	return fmt.Sprintf("%s|%d", tokenID, slot)
}

// InsertBulk adds multiple points. Fails entire batch on any duplicate.
func (s *CapTablePointStore) InsertBulk(_ context.Context, points []*domain.CapTablePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(points))

	for _, p := range points {
		if p == nil || p.TokenID == "" {
			return storage.ErrInvalidInput
		}
		key := pointKey(p.TokenID, p.Slot)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		cp := *p
		s.data[pointKey(p.TokenID, p.Slot)] = &cp
	}
	return nil
}

// GetRange retrieves points for a token with slot in [fromSlot, toSlot]
// (inclusive), ordered by slot ASC.
func (s *CapTablePointStore) GetRange(_ context.Context, tokenID string, fromSlot, toSlot int64) ([]*domain.CapTablePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CapTablePoint
	for _, p := range s.data {
		if p.TokenID == tokenID && p.Slot >= fromSlot && p.Slot <= toSlot {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slot < result[j].Slot })
	return result, nil
}

// GetLatest retrieves the newest point for a token.
func (s *CapTablePointStore) GetLatest(_ context.Context, tokenID string) (*domain.CapTablePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.CapTablePoint
	for _, p := range s.data {
		if p.TokenID != tokenID {
			continue
		}
		if latest == nil || p.Slot > latest.Slot {
			latest = p
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

var _ storage.CapTablePointStore = (*CapTablePointStore)(nil)
