package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if token_id exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	createdAt := t.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tokens (token_id, symbol, name, authority, created_slot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.TokenID, t.Symbol, t.Name, t.Authority, t.CreatedSlot, createdAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	t.CreatedAt = createdAt
	return nil
}

// Get retrieves a token by mint address.
func (s *TokenStore) Get(ctx context.Context, tokenID string) (*domain.Token, error) {
	var t domain.Token
	err := s.pool.QueryRow(ctx, `
		SELECT token_id, symbol, name, authority, created_slot, created_at
		FROM tokens
		WHERE token_id = $1
	`, tokenID).Scan(&t.TokenID, &t.Symbol, &t.Name, &t.Authority, &t.CreatedSlot, &t.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &t, nil
}

// GetAll retrieves all tracked tokens, ordered by token_id.
func (s *TokenStore) GetAll(ctx context.Context) ([]*domain.Token, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token_id, symbol, name, authority, created_slot, created_at
		FROM tokens
		ORDER BY token_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("get all tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.Token
	for rows.Next() {
		var t domain.Token
		if err := rows.Scan(&t.TokenID, &t.Symbol, &t.Name, &t.Authority, &t.CreatedSlot, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return tokens, nil
}

// UpdateSymbol changes the display symbol of a token.
func (s *TokenStore) UpdateSymbol(ctx context.Context, tokenID, symbol string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tokens SET symbol = $2 WHERE token_id = $1
	`, tokenID, symbol)
	if err != nil {
		return fmt.Errorf("update token symbol: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
