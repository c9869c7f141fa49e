package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage"
)

// ShareClassStore is an in-memory implementation of storage.ShareClassStore.
type ShareClassStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ShareClass // keyed by class_id
}

// NewShareClassStore creates a new in-memory share class store.
func NewShareClassStore() *ShareClassStore {
	return &ShareClassStore{
		data: make(map[string]*domain.ShareClass),
	}
}

// Insert adds a new share class. Returns ErrDuplicateKey if exists.
func (s *ShareClassStore) Insert(_ context.Context, c *domain.ShareClass) error {
	if c == nil || c.ClassID == "" || c.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.ClassID]; exists {
		return storage.ErrDuplicateKey
	}

	stored := *c
	if stored.CreatedAt == 0 {
		stored.CreatedAt = time.Now().UnixMilli()
	}
	s.data[c.ClassID] = &stored
	return nil
}

// Get retrieves a class by id. Returns ErrNotFound if not exists.
func (s *ShareClassStore) Get(_ context.Context, classID string) (*domain.ShareClass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[classID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// GetByToken retrieves all classes of a token, ordered by priority ASC.
func (s *ShareClassStore) GetByToken(_ context.Context, tokenID string) ([]*domain.ShareClass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ShareClass
	for _, c := range s.data {
		if c.TokenID == tokenID {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].ClassID < result[j].ClassID
	})
	return result, nil
}

var _ storage.ShareClassStore = (*ShareClassStore)(nil)
