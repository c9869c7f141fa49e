package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-captable/internal/replay"
	"solana-captable/internal/snapshot"
	"solana-captable/internal/storage"
)

func defaultUnixNow() int64 { return time.Now().Unix() }

// Maintainer keeps snapshots fresh and bounded: per token, create one at the
// ledger head when the policy says so, then prune old ones.
type Maintainer struct {
	tokens        storage.TokenStore
	reconstructor *replay.Reconstructor
	snapshots     *snapshot.Manager
	logger        *zap.Logger
}

// MaintainerOptions contains configuration for creating a Maintainer.
type MaintainerOptions struct {
	Tokens        storage.TokenStore
	Reconstructor *replay.Reconstructor
	Snapshots     *snapshot.Manager
	Logger        *zap.Logger
}

// NewMaintainer creates a new Maintainer.
func NewMaintainer(opts MaintainerOptions) *Maintainer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Maintainer{
		tokens:        opts.Tokens,
		reconstructor: opts.Reconstructor,
		snapshots:     opts.Snapshots,
		logger:        opts.Logger,
	}
}

// Maintain runs one snapshot pass across all tokens and returns how many
// snapshots were created.
func (m *Maintainer) Maintain(ctx context.Context) (int, error) {
	tokens, err := m.tokens.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tokens: %w", err)
	}

	created := 0
	for _, token := range tokens {
		ok, err := m.maintainToken(ctx, token.TokenID)
		if err != nil {
			m.logger.Error("snapshot maintenance failed",
				zap.String("token", token.TokenID), zap.Error(err))
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (m *Maintainer) maintainToken(ctx context.Context, tokenID string) (bool, error) {
	headSlot, headSeq, err := m.reconstructor.Head(ctx, tokenID)
	if err != nil {
		return false, fmt.Errorf("head of %s: %w", tokenID, err)
	}
	if headSlot == 0 && headSeq == 0 {
		// empty ledger
		return false, nil
	}

	state, err := m.reconstructor.ReconstructAt(ctx, tokenID, headSlot, headSeq)
	if err != nil {
		return false, fmt.Errorf("reconstruct %s: %w", tokenID, err)
	}

	created, err := m.snapshots.MaybeSnapshot(ctx, state)
	if err != nil {
		return false, err
	}
	if _, err := m.snapshots.Prune(ctx, tokenID); err != nil {
		m.logger.Warn("snapshot prune failed",
			zap.String("token", tokenID), zap.Error(err))
	}
	return created, nil
}
