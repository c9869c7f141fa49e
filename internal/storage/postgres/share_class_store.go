package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage"
)

// ShareClassStore implements storage.ShareClassStore using PostgreSQL.
type ShareClassStore struct {
	pool *Pool
}

// NewShareClassStore creates a new ShareClassStore.
func NewShareClassStore(pool *Pool) *ShareClassStore {
	return &ShareClassStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ShareClassStore = (*ShareClassStore)(nil)

// Insert adds a new share class. Returns ErrDuplicateKey if class_id exists.
func (s *ShareClassStore) Insert(ctx context.Context, c *domain.ShareClass) error {
	createdAt := c.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO share_classes (
			class_id, token_id, name, symbol, priority,
			preference_multiple, votes_per_share, convertible, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		c.ClassID, c.TokenID, c.Name, c.Symbol, c.Priority,
		c.PreferenceMultiple, c.VotesPerShare, c.Convertible, createdAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert share class: %w", err)
	}
	c.CreatedAt = createdAt
	return nil
}

// Get retrieves a class by id.
func (s *ShareClassStore) Get(ctx context.Context, classID string) (*domain.ShareClass, error) {
	var c domain.ShareClass
	err := s.pool.QueryRow(ctx, `
		SELECT class_id, token_id, name, symbol, priority,
		       preference_multiple, votes_per_share, convertible, created_at
		FROM share_classes
		WHERE class_id = $1
	`, classID).Scan(
		&c.ClassID, &c.TokenID, &c.Name, &c.Symbol, &c.Priority,
		&c.PreferenceMultiple, &c.VotesPerShare, &c.Convertible, &c.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get share class: %w", err)
	}
	return &c, nil
}

// GetByToken retrieves all classes of a token, ordered by priority ASC.
func (s *ShareClassStore) GetByToken(ctx context.Context, tokenID string) ([]*domain.ShareClass, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT class_id, token_id, name, symbol, priority,
		       preference_multiple, votes_per_share, convertible, created_at
		FROM share_classes
		WHERE token_id = $1
		ORDER BY priority ASC, class_id ASC
	`, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get share classes by token: %w", err)
	}
	defer rows.Close()

	var classes []*domain.ShareClass
	for rows.Next() {
		var c domain.ShareClass
		err := rows.Scan(
			&c.ClassID, &c.TokenID, &c.Name, &c.Symbol, &c.Priority,
			&c.PreferenceMultiple, &c.VotesPerShare, &c.Convertible, &c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan share class row: %w", err)
		}
		classes = append(classes, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate share class rows: %w", err)
	}
	return classes, nil
}
