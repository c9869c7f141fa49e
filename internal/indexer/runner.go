package indexer

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"solana-captable/internal/domain"
	"solana-captable/internal/observability"
	"solana-captable/internal/solana"
)

// Runner defaults.
const (
	DefaultPollInterval  = 5 * time.Second
	DefaultFlushInterval = 5 * time.Second
	DefaultSlotLagWindow = 5
)

// Runner drives the live indexing loop: poll the event source, buffer events
// per slot, and flush a slot to the Manager only once the WS slot watermark
// has moved past it by the lag window. Buffering gives the ledger a
// deterministic intra-slot order even when polls race slot confirmation.
type Runner struct {
	source  EventSource
	slots   solana.SlotFeed
	manager *Manager

	pollInterval  time.Duration
	flushInterval time.Duration
	slotLagWindow int64
	logger        *zap.Logger

	buffer    map[int64][]*domain.ChainEvent
	watermark int64
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source  EventSource
	Manager *Manager
	// Slots is optional; without a feed the watermark advances from the
	// buffered events themselves.
	Slots         solana.SlotFeed
	PollInterval  time.Duration
	FlushInterval time.Duration
	SlotLagWindow int64
	Logger        *zap.Logger
}

// NewRunner creates a new indexing Runner.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.SlotLagWindow <= 0 {
		opts.SlotLagWindow = DefaultSlotLagWindow
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Runner{
		source:        opts.Source,
		slots:         opts.Slots,
		manager:       opts.Manager,
		pollInterval:  opts.PollInterval,
		flushInterval: opts.FlushInterval,
		slotLagWindow: opts.SlotLagWindow,
		logger:        opts.Logger,
		buffer:        make(map[int64][]*domain.ChainEvent),
	}
}

// Run blocks until the context is cancelled, flushing whatever is buffered
// before returning.
func (r *Runner) Run(ctx context.Context) error {
	pollTicker := time.NewTicker(r.pollInterval)
	defer pollTicker.Stop()
	flushTicker := time.NewTicker(r.flushInterval)
	defer flushTicker.Stop()

	var slotCh <-chan solana.SlotEvent
	if r.slots != nil {
		slotCh = r.slots.Slots()
	}

	r.logger.Info("indexer runner started",
		zap.Duration("poll_interval", r.pollInterval),
		zap.Int64("slot_lag_window", r.slotLagWindow))

	for {
		select {
		case <-ctx.Done():
			r.flushUpTo(context.Background(), int64(1<<62))
			return ctx.Err()

		case event, ok := <-slotCh:
			if !ok {
				slotCh = nil
				continue
			}
			if event.Slot > r.watermark {
				r.watermark = event.Slot
				r.flushReady(ctx)
			}

		case <-pollTicker.C:
			r.pollOnce(ctx)

		case <-flushTicker.C:
			r.flushReady(ctx)
		}
	}
}

// PollOnce runs one poll plus flush cycle. Exposed for backfill catch-up and
// tests; Run calls it on its own cadence.
func (r *Runner) PollOnce(ctx context.Context) {
	r.pollOnce(ctx)
	r.flushReady(ctx)
}

func (r *Runner) pollOnce(ctx context.Context) {
	events, inits, err := r.source.Poll(ctx)
	if err != nil {
		r.logger.Error("event source poll failed", zap.Error(err))
		return
	}

	for _, init := range inits {
		if err := r.manager.HandleInit(ctx, init); err != nil {
			observability.RecordIndexerError("token_init")
			r.logger.Error("token registration failed",
				zap.String("token", init.TokenID), zap.Error(err))
		}
	}

	for _, ev := range events {
		r.buffer[ev.Slot] = append(r.buffer[ev.Slot], ev)
		if r.slots == nil && ev.Slot > r.watermark {
			r.watermark = ev.Slot
		}
	}
	if len(events) > 0 {
		r.flushReady(ctx)
	}
}

// flushReady flushes every buffered slot at or below the watermark minus the
// lag window.
func (r *Runner) flushReady(ctx context.Context) {
	r.flushUpTo(ctx, r.watermark-r.slotLagWindow)
}

func (r *Runner) flushUpTo(ctx context.Context, maxSlot int64) {
	var ready []int64
	for slot := range r.buffer {
		if slot <= maxSlot {
			ready = append(ready, slot)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	for _, slot := range ready {
		r.flushSlot(ctx, slot)
	}
}

// flushSlot records one slot's events in (signature, event index) order.
func (r *Runner) flushSlot(ctx context.Context, slot int64) {
	events := r.buffer[slot]
	delete(r.buffer, slot)

	sort.Slice(events, func(i, j int) bool {
		if events[i].TxSignature != events[j].TxSignature {
			return events[i].TxSignature < events[j].TxSignature
		}
		return events[i].EventIndex < events[j].EventIndex
	})

	for _, ev := range events {
		if err := r.manager.HandleEvent(ctx, ev); err != nil {
			observability.RecordIndexerError("record_event")
			r.logger.Error("chain event recording failed",
				zap.String("token", ev.TokenID),
				zap.String("kind", string(ev.Kind)),
				zap.String("signature", ev.TxSignature),
				zap.Error(err))
		}
	}
}
