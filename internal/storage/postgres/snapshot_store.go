package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if
// (token_id, slot, seq) exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.Snapshot) error {
	createdAt := snap.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO captable_snapshots (
			token_id, slot, seq, entries_applied, state, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		snap.TokenID, snap.Slot, snap.Seq, snap.EntriesApplied,
		snap.State, createdAt,
	).Scan(&snap.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	snap.CreatedAt = createdAt
	return nil
}

// Latest retrieves the newest snapshot with order key <= (slot, seq).
func (s *SnapshotStore) Latest(ctx context.Context, tokenID string, slot, seq int64) (*domain.Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, token_id, slot, seq, entries_applied, state, created_at
		FROM captable_snapshots
		WHERE token_id = $1 AND (slot, seq) <= ($2, $3)
		ORDER BY slot DESC, seq DESC
		LIMIT 1
	`, tokenID, slot, seq)

	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

// GetByToken retrieves all snapshots for a token, ordered by (slot, seq) ASC.
func (s *SnapshotStore) GetByToken(ctx context.Context, tokenID string) ([]*domain.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, token_id, slot, seq, entries_applied, state, created_at
		FROM captable_snapshots
		WHERE token_id = $1
		ORDER BY slot ASC, seq ASC
	`, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by token: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snaps, nil
}

// DeleteOlderThan removes all but the keepLast newest snapshots of a token.
func (s *SnapshotStore) DeleteOlderThan(ctx context.Context, tokenID string, keepLast int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM captable_snapshots
		WHERE token_id = $1
		  AND id NOT IN (
			SELECT id FROM captable_snapshots
			WHERE token_id = $1
			ORDER BY slot DESC, seq DESC
			LIMIT $2
		  )
	`, tokenID, keepLast)
	if err != nil {
		return 0, fmt.Errorf("delete old snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSnapshot(row pgx.Row) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	err := row.Scan(
		&snap.ID, &snap.TokenID, &snap.Slot, &snap.Seq,
		&snap.EntriesApplied, &snap.State, &snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
