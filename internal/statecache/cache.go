// Package statecache caches the most recently reconstructed TokenState per
// token in Redis. The cache is a pure optimization: every value in it can be
// rebuilt by replay, so all operations are best-effort and callers never fail
// on cache errors.
package statecache

import (
	"context"

	"solana-captable/internal/domain"
)

// Cache stores reconstructed token states keyed by token id.
type Cache interface {
	// Get returns the cached state for a token, or false when absent.
	Get(ctx context.Context, tokenID string) (*domain.TokenState, bool)

	// Set stores the state for a token.
	Set(ctx context.Context, state *domain.TokenState)

	// Invalidate drops the cached state after an append changes the ledger.
	Invalidate(ctx context.Context, tokenID string)
}

// Noop is the Cache used when Redis is not configured.
type Noop struct{}

// Get always misses.
func (Noop) Get(context.Context, string) (*domain.TokenState, bool) { return nil, false }

// Set does nothing.
func (Noop) Set(context.Context, *domain.TokenState) {}

// Invalidate does nothing.
func (Noop) Invalidate(context.Context, string) {}

var _ Cache = Noop{}
