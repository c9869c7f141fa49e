package replay

import (
	"context"

	"solana-captable/internal/domain"
)

// Engine consumes ledger entries in deterministic order. Implementations
// build derived artifacts (rollup points, verification traces) while the
// reconstructor streams a token's ledger through them.
type Engine interface {
	// OnEntry is called for each entry in (slot, seq) order.
	OnEntry(ctx context.Context, entry *domain.LedgerEntry) error
}
