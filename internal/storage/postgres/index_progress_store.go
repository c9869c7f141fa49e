package postgres

import (
	"context"
	"fmt"

	"solana-captable/internal/storage"
)

// IndexProgressStore implements storage.IndexProgressStore using PostgreSQL.
type IndexProgressStore struct {
	pool *Pool
}

// NewIndexProgressStore creates a new IndexProgressStore.
func NewIndexProgressStore(pool *Pool) *IndexProgressStore {
	return &IndexProgressStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IndexProgressStore = (*IndexProgressStore)(nil)

// Get returns the last processed position for a token.
func (s *IndexProgressStore) Get(ctx context.Context, tokenID string) (*storage.IndexProgress, error) {
	var p storage.IndexProgress
	err := s.pool.QueryRow(ctx, `
		SELECT token_id, slot, signature
		FROM index_progress
		WHERE token_id = $1
	`, tokenID).Scan(&p.TokenID, &p.Slot, &p.Signature)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get index progress: %w", err)
	}
	return &p, nil
}

// Set saves the last processed position for a token.
func (s *IndexProgressStore) Set(ctx context.Context, progress *storage.IndexProgress) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO index_progress (token_id, slot, signature)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_id) DO UPDATE
		SET slot = EXCLUDED.slot, signature = EXCLUDED.signature
	`, progress.TokenID, progress.Slot, progress.Signature)
	if err != nil {
		return fmt.Errorf("set index progress: %w", err)
	}
	return nil
}

// IsEventSeen checks if a chain event id has been processed.
func (s *IndexProgressStore) IsEventSeen(ctx context.Context, eventID string) (bool, error) {
	var seen bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM seen_events WHERE event_id = $1)
	`, eventID).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("check seen event: %w", err)
	}
	return seen, nil
}

// MarkEventSeen records that a chain event id has been processed.
func (s *IndexProgressStore) MarkEventSeen(ctx context.Context, eventID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO seen_events (event_id)
		VALUES ($1)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID)
	if err != nil {
		return fmt.Errorf("mark seen event: %w", err)
	}
	return nil
}

// LoadSeenEvents returns all seen event ids.
func (s *IndexProgressStore) LoadSeenEvents(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT event_id FROM seen_events`)
	if err != nil {
		return nil, fmt.Errorf("load seen events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen event row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen event rows: %w", err)
	}
	return ids, nil
}
