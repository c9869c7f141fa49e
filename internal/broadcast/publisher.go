// Package broadcast publishes recorded ledger entries to NATS JetStream so
// downstream consumers (activity feeds, webhooks) can follow the ledger
// without polling. Publishing is best-effort: the recorder never fails an
// append because a broadcast failed.
package broadcast

import (
	"context"

	"solana-captable/internal/domain"
)

// Publisher delivers recorded entries to interested consumers.
type Publisher interface {
	// Publish sends one recorded entry. The entry has already been durably
	// appended; failures here must not propagate into the append path.
	Publish(ctx context.Context, entry *domain.LedgerEntry) error

	// Close releases the underlying connection.
	Close()
}

// Noop is the Publisher used when no broker is configured.
type Noop struct{}

// Publish discards the entry.
func (Noop) Publish(context.Context, *domain.LedgerEntry) error { return nil }

// Close does nothing.
func (Noop) Close() {}

var _ Publisher = Noop{}
