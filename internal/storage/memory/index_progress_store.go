package memory

import (
	"context"
	"sort"
	"sync"

	"solana-captable/internal/storage"
)

// IndexProgressStore is an in-memory implementation of
// storage.IndexProgressStore.
type IndexProgressStore struct {
	mu       sync.RWMutex
	progress map[string]*storage.IndexProgress // keyed by token_id
	seen     map[string]struct{}               // chain event ids
}

// NewIndexProgressStore creates a new in-memory index progress store.
func NewIndexProgressStore() *IndexProgressStore {
	return &IndexProgressStore{
		progress: make(map[string]*storage.IndexProgress),
		seen:     make(map[string]struct{}),
	}
}

// Get returns the last processed position for a token.
func (s *IndexProgressStore) Get(_ context.Context, tokenID string) (*storage.IndexProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.progress[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Set saves the last processed position for a token.
func (s *IndexProgressStore) Set(_ context.Context, progress *storage.IndexProgress) error {
	if progress == nil || progress.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *progress
	s.progress[progress.TokenID] = &cp
	return nil
}

// IsEventSeen checks if a chain event id has been processed.
func (s *IndexProgressStore) IsEventSeen(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, seen := s.seen[eventID]
	return seen, nil
}

// MarkEventSeen records that a chain event id has been processed.
func (s *IndexProgressStore) MarkEventSeen(_ context.Context, eventID string) error {
	if eventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen[eventID] = struct{}{}
	return nil
}

// LoadSeenEvents returns all seen event ids, sorted for stable output.
func (s *IndexProgressStore) LoadSeenEvents(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0, len(s.seen))
	for id := range s.seen {
		result = append(result, id)
	}
	sort.Strings(result)
	return result, nil
}

var _ storage.IndexProgressStore = (*IndexProgressStore)(nil)
