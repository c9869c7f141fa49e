package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage"
)

// LedgerEntryStore implements storage.LedgerEntryStore using PostgreSQL.
type LedgerEntryStore struct {
	pool *Pool
}

// NewLedgerEntryStore creates a new LedgerEntryStore.
func NewLedgerEntryStore(pool *Pool) *LedgerEntryStore {
	return &LedgerEntryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerEntryStore = (*LedgerEntryStore)(nil)

const entryColumns = `
	id, token_id, slot, seq, block_time, kind, wallet, wallet_to,
	amount, amount_secondary, share_class_id, priority, preference_multiple,
	price_per_share, reference_id, reference_type, payload, tx_signature,
	event_index, triggered_by, notes, created_at
`

// Append inserts one entry, assigning the next Seq within (token_id, slot)
// inside a transaction. The (tx_signature, event_index) unique index maps
// replays of the same chain event to ErrDuplicateKey.
func (s *LedgerEntryStore) Append(ctx context.Context, e *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var seq int64
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1
		FROM ledger_entries
		WHERE token_id = $1 AND slot = $2
	`, e.TokenID, e.Slot).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("next seq for (%s, %d): %w", e.TokenID, e.Slot, err)
	}

	stored := *e
	stored.Seq = seq
	if stored.CreatedAt == 0 {
		stored.CreatedAt = time.Now().UnixMilli()
	}

	var payload []byte
	if len(stored.Payload) > 0 {
		payload = stored.Payload
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (
			token_id, slot, seq, block_time, kind, wallet, wallet_to,
			amount, amount_secondary, share_class_id, priority,
			preference_multiple, price_per_share, reference_id,
			reference_type, payload, tx_signature, event_index,
			triggered_by, notes, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		)
		RETURNING id
	`,
		stored.TokenID, stored.Slot, stored.Seq, stored.BlockTime,
		string(stored.Kind), stored.Wallet, stored.WalletTo,
		stored.Amount, stored.AmountSecondary, stored.ShareClassID,
		stored.Priority, stored.PreferenceMultiple, stored.PricePerShare,
		stored.ReferenceID, stored.ReferenceType, payload,
		stored.TxSignature, stored.EventIndex,
		stored.TriggeredBy, stored.Notes, stored.CreatedAt,
	).Scan(&stored.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &stored, nil
}

// GetRange retrieves entries with order key in ((fromSlot, fromSeq),
// (toSlot, toSeq)], ordered by (slot, seq) ASC. A negative fromSlot means no
// lower bound.
func (s *LedgerEntryStore) GetRange(ctx context.Context, tokenID string, fromSlot, fromSeq, toSlot, toSeq int64) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE token_id = $1
		  AND ($2 < 0 OR (slot, seq) > ($2, $3))
		  AND (slot, seq) <= ($4, $5)
		ORDER BY slot ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenID, fromSlot, fromSeq, toSlot, toSeq)
	if err != nil {
		return nil, fmt.Errorf("get ledger entries by range: %w", err)
	}
	defer rows.Close()

	return scanLedgerEntries(rows)
}

// GetByToken retrieves all entries for a token, ordered by (slot, seq) ASC.
func (s *LedgerEntryStore) GetByToken(ctx context.Context, tokenID string) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE token_id = $1
		ORDER BY slot ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get ledger entries by token: %w", err)
	}
	defer rows.Close()

	return scanLedgerEntries(rows)
}

// GetBySignature retrieves the entry recorded for a chain event.
func (s *LedgerEntryStore) GetBySignature(ctx context.Context, txSignature string, eventIndex int) (*domain.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE tx_signature = $1 AND event_index = $2
	`

	row := s.pool.QueryRow(ctx, query, txSignature, eventIndex)
	e, err := scanLedgerEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ledger entry by signature: %w", err)
	}
	return e, nil
}

// GetByReference retrieves a token's entries linked to one domain object.
func (s *LedgerEntryStore) GetByReference(ctx context.Context, tokenID, referenceType, referenceID string) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE token_id = $1 AND reference_type = $2 AND reference_id = $3
		ORDER BY slot ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenID, referenceType, referenceID)
	if err != nil {
		return nil, fmt.Errorf("get ledger entries by reference: %w", err)
	}
	defer rows.Close()

	return scanLedgerEntries(rows)
}

// HeadOrderKey returns the highest (slot, seq) appended for a token.
func (s *LedgerEntryStore) HeadOrderKey(ctx context.Context, tokenID string) (int64, int64, error) {
	var slot, seq int64
	err := s.pool.QueryRow(ctx, `
		SELECT slot, seq
		FROM ledger_entries
		WHERE token_id = $1
		ORDER BY slot DESC, seq DESC
		LIMIT 1
	`, tokenID).Scan(&slot, &seq)
	if err != nil {
		if isNotFoundError(err) {
			return 0, 0, storage.ErrNotFound
		}
		return 0, 0, fmt.Errorf("get head order key: %w", err)
	}
	return slot, seq, nil
}

// CountByToken returns the number of entries in a token's ledger.
func (s *LedgerEntryStore) CountByToken(ctx context.Context, tokenID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM ledger_entries WHERE token_id = $1
	`, tokenID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return count, nil
}

// scanLedgerEntry scans a single row into a LedgerEntry.
func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var kind string
	err := row.Scan(
		&e.ID, &e.TokenID, &e.Slot, &e.Seq, &e.BlockTime, &kind,
		&e.Wallet, &e.WalletTo, &e.Amount, &e.AmountSecondary,
		&e.ShareClassID, &e.Priority, &e.PreferenceMultiple,
		&e.PricePerShare, &e.ReferenceID, &e.ReferenceType, &e.Payload,
		&e.TxSignature, &e.EventIndex, &e.TriggeredBy, &e.Notes, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Kind = domain.EntryKind(kind)
	return &e, nil
}

// scanLedgerEntries scans multiple rows into a slice of LedgerEntry.
func scanLedgerEntries(rows pgx.Rows) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry

	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entry rows: %w", err)
	}
	return entries, nil
}
