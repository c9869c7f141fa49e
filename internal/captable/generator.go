package captable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-captable/internal/domain"
	"solana-captable/internal/replay"
	"solana-captable/internal/storage"
)

// Generator produces point-in-time cap-table views by reconstructing state
// and joining it with the share class registry.
type Generator struct {
	reconstructor *replay.Reconstructor
	classStore    storage.ShareClassStore
	now           func() time.Time
}

// GeneratorOptions contains configuration for creating a Generator.
type GeneratorOptions struct {
	Reconstructor *replay.Reconstructor
	// ClassStore is optional; without it class ids are used as display names.
	ClassStore storage.ShareClassStore
	// Now overrides the report clock. Defaults to time.Now.
	Now func() time.Time
}

// NewGenerator creates a new Generator.
func NewGenerator(opts GeneratorOptions) *Generator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Generator{
		reconstructor: opts.Reconstructor,
		classStore:    opts.ClassStore,
		now:           now,
	}
}

// Generate builds the cap-table view at the given slot. Pass a negative slot
// for the current head.
func (g *Generator) Generate(ctx context.Context, tokenID string, slot int64) (*View, error) {
	if slot < 0 {
		headSlot, _, err := g.reconstructor.Head(ctx, tokenID)
		if err != nil {
			return nil, fmt.Errorf("resolve head for %s: %w", tokenID, err)
		}
		slot = headSlot
	}

	state, err := g.reconstructor.Reconstruct(ctx, tokenID, slot)
	if err != nil {
		return nil, fmt.Errorf("reconstruct %s at slot %d: %w", tokenID, slot, err)
	}

	classes, err := g.loadClasses(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	return BuildView(state, classes, g.now())
}

func (g *Generator) loadClasses(ctx context.Context, tokenID string) ([]*domain.ShareClass, error) {
	if g.classStore == nil {
		return nil, nil
	}
	classes, err := g.classStore.GetByToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load share classes for %s: %w", tokenID, err)
	}
	return classes, nil
}
