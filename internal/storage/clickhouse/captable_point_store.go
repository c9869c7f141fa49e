package clickhouse

import (
	"context"
	"fmt"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage"
)

// CapTablePointStore implements storage.CapTablePointStore using ClickHouse.
type CapTablePointStore struct {
	conn *Conn
}

// NewCapTablePointStore creates a new CapTablePointStore.
func NewCapTablePointStore(conn *Conn) *CapTablePointStore {
	return &CapTablePointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CapTablePointStore = (*CapTablePointStore)(nil)

const capTablePointColumns = `
	token_id, slot, block_time, total_supply, holder_count,
	approved_count, vesting_total, vesting_released, entries_applied
`

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *CapTablePointStore) InsertBulk(ctx context.Context, points []*domain.CapTablePoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		tokenID string
		slot    int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		if p == nil || p.TokenID == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.TokenID, p.Slot}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// MergeTree does not enforce uniqueness, so check against existing rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.TokenID, p.Slot)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO captable_timeseries (`+capTablePointColumns+`)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.TokenID, uint64(p.Slot), p.BlockTime, p.TotalSupply, uint32(p.HolderCount),
			uint32(p.ApprovedCount), p.VestingTotal, p.VestingReleased, uint64(p.EntriesApplied),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetRange retrieves points for a token with slot in [fromSlot, toSlot]
// (inclusive), ordered by slot ASC.
func (s *CapTablePointStore) GetRange(ctx context.Context, tokenID string, fromSlot, toSlot int64) ([]*domain.CapTablePoint, error) {
	query := `
		SELECT ` + capTablePointColumns + `
		FROM captable_timeseries
		WHERE token_id = ? AND slot >= ? AND slot <= ?
		ORDER BY slot ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID, uint64(fromSlot), uint64(toSlot))
	if err != nil {
		return nil, fmt.Errorf("query captable range: %w", err)
	}
	defer rows.Close()

	return scanCapTablePoints(rows)
}

// GetLatest retrieves the newest point for a token.
func (s *CapTablePointStore) GetLatest(ctx context.Context, tokenID string) (*domain.CapTablePoint, error) {
	query := `
		SELECT ` + capTablePointColumns + `
		FROM captable_timeseries
		WHERE token_id = ?
		ORDER BY slot DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query latest captable point: %w", err)
	}
	defer rows.Close()

	points, err := scanCapTablePoints(rows)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}
	return points[0], nil
}

// exists checks if a point with the given key exists.
func (s *CapTablePointStore) exists(ctx context.Context, tokenID string, slot int64) (bool, error) {
	query := `
		SELECT count(*) FROM captable_timeseries
		WHERE token_id = ? AND slot = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, tokenID, uint64(slot)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanCapTablePoints scans multiple rows.
func scanCapTablePoints(rows chRows) ([]*domain.CapTablePoint, error) {
	var points []*domain.CapTablePoint

	for rows.Next() {
		var p domain.CapTablePoint
		var slot, entriesApplied uint64
		var holderCount, approvedCount uint32

		err := rows.Scan(
			&p.TokenID, &slot, &p.BlockTime, &p.TotalSupply, &holderCount,
			&approvedCount, &p.VestingTotal, &p.VestingReleased, &entriesApplied,
		)
		if err != nil {
			return nil, fmt.Errorf("scan captable point row: %w", err)
		}

		p.Slot = int64(slot)
		p.HolderCount = int(holderCount)
		p.ApprovedCount = int(approvedCount)
		p.EntriesApplied = int64(entriesApplied)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate captable point rows: %w", err)
	}

	return points, nil
}
