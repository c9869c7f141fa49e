package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by token_id
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

// Insert adds a new token. Returns ErrDuplicateKey if exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TokenID]; exists {
		return storage.ErrDuplicateKey
	}

	stored := *t
	if stored.CreatedAt == 0 {
		stored.CreatedAt = time.Now().UnixMilli()
	}
	s.data[t.TokenID] = &stored
	return nil
}

// Get retrieves a token by mint address. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(_ context.Context, tokenID string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// GetAll retrieves all tracked tokens, ordered by token_id.
func (s *TokenStore) GetAll(_ context.Context) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Token, 0, len(s.data))
	for _, t := range s.data {
		cp := *t
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TokenID < result[j].TokenID })
	return result, nil
}

// UpdateSymbol changes the display symbol. Returns ErrNotFound if the token
// does not exist.
func (s *TokenStore) UpdateSymbol(_ context.Context, tokenID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[tokenID]
	if !exists {
		return storage.ErrNotFound
	}
	t.Symbol = symbol
	return nil
}

var _ storage.TokenStore = (*TokenStore)(nil)
