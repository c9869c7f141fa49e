package storage

import (
	"context"

	"solana-captable/internal/domain"
)

// LedgerEntryStore provides access to ledger_entries storage. The ledger is
// append-only: entries are never updated or deleted, and each append is
// assigned the next intra-slot sequence for its (token_id, slot) pair.
type LedgerEntryStore interface {
	// Append inserts one entry, assigning its Seq within (token_id, slot).
	// Returns the stored entry with ID and Seq populated. Returns
	// ErrDuplicateKey if (tx_signature, event_index) was appended before.
	Append(ctx context.Context, e *domain.LedgerEntry) (*domain.LedgerEntry, error)

	// GetRange retrieves entries with order key in ((fromSlot, fromSeq),
	// (toSlot, toSeq)] ordered by (slot, seq) ASC. A negative fromSlot means
	// no lower bound.
	GetRange(ctx context.Context, tokenID string, fromSlot, fromSeq, toSlot, toSeq int64) ([]*domain.LedgerEntry, error)

	// GetByToken retrieves all entries for a token, ordered by (slot, seq) ASC.
	GetByToken(ctx context.Context, tokenID string) ([]*domain.LedgerEntry, error)

	// GetBySignature retrieves the entry recorded for a chain event.
	// Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, txSignature string, eventIndex int) (*domain.LedgerEntry, error)

	// GetByReference retrieves a token's entries linked to one domain object,
	// ordered by (slot, seq) ASC.
	GetByReference(ctx context.Context, tokenID, referenceType, referenceID string) ([]*domain.LedgerEntry, error)

	// HeadOrderKey returns the highest (slot, seq) appended for a token.
	// Returns ErrNotFound if the ledger is empty.
	HeadOrderKey(ctx context.Context, tokenID string) (slot, seq int64, err error)

	// CountByToken returns the number of entries in a token's ledger.
	CountByToken(ctx context.Context, tokenID string) (int64, error)
}

// SnapshotStore provides access to captable_snapshots storage. Snapshot rows
// are immutable once written; pruning old rows is always safe.
type SnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if
	// (token_id, slot, seq) exists.
	Insert(ctx context.Context, s *domain.Snapshot) error

	// Latest retrieves the newest snapshot with order key <= (slot, seq).
	// Returns ErrNotFound if none exists at or before that point.
	Latest(ctx context.Context, tokenID string, slot, seq int64) (*domain.Snapshot, error)

	// GetByToken retrieves all snapshots for a token, ordered by (slot, seq) ASC.
	GetByToken(ctx context.Context, tokenID string) ([]*domain.Snapshot, error)

	// DeleteOlderThan removes all but the keepLast newest snapshots of a
	// token and returns how many were deleted.
	DeleteOlderThan(ctx context.Context, tokenID string, keepLast int) (int64, error)
}

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Insert adds a new token. Returns ErrDuplicateKey if token_id exists.
	Insert(ctx context.Context, t *domain.Token) error

	// Get retrieves a token by mint address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, tokenID string) (*domain.Token, error)

	// GetAll retrieves all tracked tokens, ordered by token_id.
	GetAll(ctx context.Context) ([]*domain.Token, error)

	// UpdateSymbol changes the display symbol (the registry mirrors the
	// latest symbol_change entry; history stays in the ledger).
	UpdateSymbol(ctx context.Context, tokenID, symbol string) error
}

// ShareClassStore provides access to share_classes storage.
type ShareClassStore interface {
	// Insert adds a new share class. Returns ErrDuplicateKey if class_id exists.
	Insert(ctx context.Context, c *domain.ShareClass) error

	// Get retrieves a class by id. Returns ErrNotFound if not exists.
	Get(ctx context.Context, classID string) (*domain.ShareClass, error)

	// GetByToken retrieves all classes of a token, ordered by priority ASC.
	GetByToken(ctx context.Context, tokenID string) ([]*domain.ShareClass, error)
}

// CapTablePointStore provides access to captable_timeseries storage.
type CapTablePointStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (token_id, slot).
	InsertBulk(ctx context.Context, points []*domain.CapTablePoint) error

	// GetRange retrieves points for a token with slot in [fromSlot, toSlot]
	// (inclusive), ordered by slot ASC.
	GetRange(ctx context.Context, tokenID string, fromSlot, toSlot int64) ([]*domain.CapTablePoint, error)

	// GetLatest retrieves the newest point for a token.
	// Returns ErrNotFound if none exists.
	GetLatest(ctx context.Context, tokenID string) (*domain.CapTablePoint, error)
}
