package storage

import "context"

// IndexProgress represents the last chain position the indexer processed.
type IndexProgress struct {
	TokenID   string // token mint, or the program address for program-wide progress
	Slot      int64  // last processed Solana slot
	Signature string // last processed transaction signature
}

// IndexProgressStore provides persistence for indexer state. This enables
// resumption after restarts without reprocessing or double-recording entries.
type IndexProgressStore interface {
	// Get returns the last processed position for a token.
	// Returns ErrNotFound if no progress has been saved yet.
	Get(ctx context.Context, tokenID string) (*IndexProgress, error)

	// Set saves the last processed position for a token.
	Set(ctx context.Context, progress *IndexProgress) error

	// IsEventSeen checks if a chain event id has been processed.
	IsEventSeen(ctx context.Context, eventID string) (bool, error)

	// MarkEventSeen records that a chain event id has been processed.
	MarkEventSeen(ctx context.Context, eventID string) error

	// LoadSeenEvents returns all seen event ids (for warming the in-memory cache).
	LoadSeenEvents(ctx context.Context) ([]string, error)
}
