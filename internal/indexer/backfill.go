package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"solana-captable/internal/observability"
	"solana-captable/internal/solana"
)

// Backfiller replays a historical slot range into the ledger. It pages
// signatures backwards (the only direction the RPC supports) until it falls
// below the range, then records everything forward in slot order. Dedup in
// the Manager makes overlapping backfills safe.
type Backfiller struct {
	rpc       solana.RPCClient
	parser    *Parser
	manager   *Manager
	program   string
	pageLimit int
	logger    *zap.Logger
}

// BackfillerOptions contains configuration for creating a Backfiller.
type BackfillerOptions struct {
	RPC       solana.RPCClient
	Parser    *Parser
	Manager   *Manager
	Program   string
	PageLimit int
	Logger    *zap.Logger
}

// NewBackfiller creates a new Backfiller.
func NewBackfiller(opts BackfillerOptions) *Backfiller {
	if opts.PageLimit <= 0 {
		opts.PageLimit = DefaultPageLimit
	}
	if opts.Parser == nil {
		opts.Parser = NewParser(opts.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Backfiller{
		rpc:       opts.RPC,
		parser:    opts.Parser,
		manager:   opts.Manager,
		program:   opts.Program,
		pageLimit: opts.PageLimit,
		logger:    opts.Logger,
	}
}

// Backfill indexes every program transaction with slot in [fromSlot, toSlot].
// Returns how many ledger entries were recorded or re-confirmed.
func (b *Backfiller) Backfill(ctx context.Context, fromSlot, toSlot int64) (int, error) {
	if fromSlot > toSlot {
		return 0, fmt.Errorf("backfill range [%d, %d] is inverted", fromSlot, toSlot)
	}

	signatures, err := b.collectSignatures(ctx, fromSlot, toSlot)
	if err != nil {
		return 0, err
	}

	// Paging walked newest to oldest; replay the other way.
	recorded := 0
	for i := len(signatures) - 1; i >= 0; i-- {
		tx, err := b.fetchTransaction(ctx, signatures[i])
		if err != nil {
			observability.RecordIndexerError("backfill_fetch")
			return recorded, fmt.Errorf("fetch transaction %s: %w", signatures[i], err)
		}
		if tx == nil {
			continue
		}

		events, inits := b.parser.ParseTransaction(tx)
		for _, init := range inits {
			if err := b.manager.HandleInit(ctx, init); err != nil {
				return recorded, err
			}
		}
		for _, ev := range events {
			if err := b.manager.HandleEvent(ctx, ev); err != nil {
				return recorded, err
			}
			recorded++
		}
	}

	b.logger.Info("backfill complete",
		zap.Int64("from_slot", fromSlot),
		zap.Int64("to_slot", toSlot),
		zap.Int("transactions", len(signatures)),
		zap.Int("events", recorded))
	return recorded, nil
}

// collectSignatures pages backwards until the whole range is covered,
// keeping only successful transactions inside it.
func (b *Backfiller) collectSignatures(ctx context.Context, fromSlot, toSlot int64) ([]string, error) {
	var out []string
	before := ""

	for {
		opts := &solana.SignaturesOpts{Before: before, Limit: b.pageLimit}

		var page []solana.SignatureInfo
		operation := func() error {
			start := time.Now()
			var err error
			page, err = b.rpc.GetSignaturesForAddress(ctx, b.program, opts)
			observability.RecordRPCLatency("getSignaturesForAddress", time.Since(start).Seconds())
			return err
		}
		if err := backoff.Retry(operation, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
			return nil, fmt.Errorf("get signatures for %s: %w", b.program, err)
		}
		if len(page) == 0 {
			return out, nil
		}

		for _, info := range page {
			if info.Slot < fromSlot {
				return out, nil
			}
			if info.Slot <= toSlot && info.Err == nil {
				out = append(out, info.Signature)
			}
		}

		if len(page) < b.pageLimit {
			return out, nil
		}
		before = page[len(page)-1].Signature
	}
}

func (b *Backfiller) fetchTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	var tx *solana.Transaction
	operation := func() error {
		start := time.Now()
		var err error
		tx, err = b.rpc.GetTransaction(ctx, signature)
		observability.RecordRPCLatency("getTransaction", time.Since(start).Seconds())
		return err
	}
	if err := backoff.Retry(operation, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return nil, err
	}
	return tx, nil
}
