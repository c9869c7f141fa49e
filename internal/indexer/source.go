package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"solana-captable/internal/domain"
	"solana-captable/internal/observability"
	"solana-captable/internal/solana"
	"solana-captable/internal/storage"
)

// DefaultPageLimit is the signature page size for polling and backfill.
const DefaultPageLimit = 100

// EventSource yields new chain events since the last poll.
type EventSource interface {
	// Poll fetches and parses transactions confirmed since the previous
	// call, oldest first.
	Poll(ctx context.Context) ([]*domain.ChainEvent, []*TokenInit, error)
}

// RPCEventSource polls getSignaturesForAddress for the captable program and
// parses each new transaction. Progress (last seen signature per program) is
// persisted so restarts resume without refetching history.
type RPCEventSource struct {
	rpc       solana.RPCClient
	parser    *Parser
	progress  storage.IndexProgressStore
	program   string
	pageLimit int
	logger    *zap.Logger

	lastSignature string
	lastSlot      int64
	loaded        bool
}

var _ EventSource = (*RPCEventSource)(nil)

// RPCEventSourceOptions contains configuration for creating an RPCEventSource.
type RPCEventSourceOptions struct {
	RPC      solana.RPCClient
	Parser   *Parser
	Progress storage.IndexProgressStore
	// Program is the captable program address polled for signatures.
	Program   string
	PageLimit int
	Logger    *zap.Logger
}

// NewRPCEventSource creates a new RPCEventSource.
func NewRPCEventSource(opts RPCEventSourceOptions) *RPCEventSource {
	if opts.PageLimit <= 0 {
		opts.PageLimit = DefaultPageLimit
	}
	if opts.Parser == nil {
		opts.Parser = NewParser(opts.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &RPCEventSource{
		rpc:       opts.RPC,
		parser:    opts.Parser,
		progress:  opts.Progress,
		program:   opts.Program,
		pageLimit: opts.PageLimit,
		logger:    opts.Logger,
	}
}

// Poll fetches signatures confirmed since the previous poll and parses their
// transactions, oldest first. RPC calls are wrapped in exponential backoff
// bound to the context.
func (s *RPCEventSource) Poll(ctx context.Context) ([]*domain.ChainEvent, []*TokenInit, error) {
	if err := s.loadProgress(ctx); err != nil {
		return nil, nil, err
	}

	sigs, err := s.newSignatures(ctx)
	if err != nil {
		observability.RecordIndexerError("poll_signatures")
		return nil, nil, err
	}
	if len(sigs) == 0 {
		return nil, nil, nil
	}

	// Signatures arrive newest first; process oldest first.
	var events []*domain.ChainEvent
	var inits []*TokenInit
	for i := len(sigs) - 1; i >= 0; i-- {
		info := sigs[i]
		if info.Err != nil {
			continue
		}

		tx, err := s.fetchTransaction(ctx, info.Signature)
		if err != nil {
			observability.RecordIndexerError("fetch_transaction")
			return events, inits, fmt.Errorf("fetch transaction %s: %w", info.Signature, err)
		}
		if tx == nil {
			continue
		}

		parsed, parsedInits := s.parser.ParseTransaction(tx)
		events = append(events, parsed...)
		inits = append(inits, parsedInits...)
	}

	newest := sigs[0]
	s.lastSignature = newest.Signature
	s.lastSlot = newest.Slot
	if err := s.saveProgress(ctx); err != nil {
		s.logger.Warn("save index progress", zap.Error(err))
	}

	return events, inits, nil
}

// newSignatures pages forward from the stored progress point. Pages are
// capped at pageLimit; an overfull window is drained over successive polls.
func (s *RPCEventSource) newSignatures(ctx context.Context) ([]solana.SignatureInfo, error) {
	var out []solana.SignatureInfo
	before := ""

	for {
		opts := &solana.SignaturesOpts{
			Before: before,
			Until:  s.lastSignature,
			Limit:  s.pageLimit,
		}

		var page []solana.SignatureInfo
		operation := func() error {
			start := time.Now()
			var err error
			page, err = s.rpc.GetSignaturesForAddress(ctx, s.program, opts)
			observability.RecordRPCLatency("getSignaturesForAddress", time.Since(start).Seconds())
			return err
		}
		if err := backoff.Retry(operation, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
			return nil, fmt.Errorf("get signatures for %s: %w", s.program, err)
		}

		out = append(out, page...)
		if len(page) < s.pageLimit {
			return out, nil
		}
		before = page[len(page)-1].Signature
	}
}

func (s *RPCEventSource) fetchTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	var tx *solana.Transaction
	operation := func() error {
		start := time.Now()
		var err error
		tx, err = s.rpc.GetTransaction(ctx, signature)
		observability.RecordRPCLatency("getTransaction", time.Since(start).Seconds())
		return err
	}
	if err := backoff.Retry(operation, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *RPCEventSource) loadProgress(ctx context.Context) error {
	if s.loaded || s.progress == nil {
		s.loaded = true
		return nil
	}
	p, err := s.progress.Get(ctx, s.program)
	switch {
	case err == nil:
		s.lastSignature = p.Signature
		s.lastSlot = p.Slot
	case errors.Is(err, storage.ErrNotFound):
		// cold start, index from the present
	default:
		return fmt.Errorf("load index progress: %w", err)
	}
	s.loaded = true
	return nil
}

func (s *RPCEventSource) saveProgress(ctx context.Context) error {
	if s.progress == nil {
		return nil
	}
	return s.progress.Set(ctx, &storage.IndexProgress{
		TokenID:   s.program,
		Slot:      s.lastSlot,
		Signature: s.lastSignature,
	})
}
