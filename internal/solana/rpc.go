// Package solana provides read-only access to a Solana RPC node: the
// JSON-RPC queries the indexer needs, a WebSocket slot feed used as the
// confirmation watermark, and program-derived-address math for locating the
// captable program's accounts.
package solana

import "context"

// RPCClient is the HTTP query surface the indexer depends on.
type RPCClient interface {
	// GetSlot retrieves the current confirmed slot.
	GetSlot(ctx context.Context) (int64, error)

	// GetBlockTime retrieves the estimated production time of a slot in Unix
	// seconds. Returns nil when the node has no estimate.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)

	// GetSignaturesForAddress retrieves signatures mentioning an address,
	// newest first, with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns nil when the node does not know the signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// SlotFeed delivers confirmed slot progress. Used by the indexer as the
// watermark that decides when a buffered slot is final enough to flush.
type SlotFeed interface {
	// Slots returns the channel slot events are delivered on. The channel
	// is closed when the feed is closed.
	Slots() <-chan SlotEvent

	// Close tears the feed down. Safe to call more than once.
	Close() error
}
