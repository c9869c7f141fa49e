package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"solana-captable/internal/domain"
	"solana-captable/internal/ledger"
	"solana-captable/internal/replay"
	"solana-captable/internal/storage"
	"solana-captable/internal/vesting"
)

// TriggeredBySweeper marks vesting_release entries recorded by the sweep job.
const TriggeredBySweeper = "vesting_scheduler"

// DefaultSweepWorkers bounds the per-token fan-out of one sweep.
const DefaultSweepWorkers = 8

// SlotSource supplies the current chain slot for sweep timestamps.
type SlotSource interface {
	GetSlot(ctx context.Context) (int64, error)
}

// Sweeper releases vested shares. Each sweep reconstructs every token at the
// current slot and records a vesting_release for each schedule with releasable
// shares. The released totals come from the reconstruction itself, so a sweep
// that runs twice releases nothing the second time.
type Sweeper struct {
	tokens        storage.TokenStore
	reconstructor *replay.Reconstructor
	recorder      *ledger.Recorder
	slots         SlotSource
	classID       string
	workers       int
	now           func() int64
	logger        *zap.Logger
}

// SweeperOptions contains configuration for creating a Sweeper.
type SweeperOptions struct {
	Tokens        storage.TokenStore
	Reconstructor *replay.Reconstructor
	Recorder      *ledger.Recorder
	Slots         SlotSource
	// ClassID is the share class released shares are issued under.
	// Defaults to "common".
	ClassID string
	Workers int
	// Now returns the wall clock as Unix seconds. Overridable in tests.
	Now    func() int64
	Logger *zap.Logger
}

// NewSweeper creates a new Sweeper.
func NewSweeper(opts SweeperOptions) *Sweeper {
	if opts.ClassID == "" {
		opts.ClassID = "common"
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultSweepWorkers
	}
	if opts.Now == nil {
		opts.Now = defaultUnixNow
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Sweeper{
		tokens:        opts.Tokens,
		reconstructor: opts.Reconstructor,
		recorder:      opts.Recorder,
		slots:         opts.Slots,
		classID:       opts.ClassID,
		workers:       opts.Workers,
		now:           opts.Now,
		logger:        opts.Logger,
	}
}

// Sweep runs one release pass across all tokens and returns how many release
// entries it recorded.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	slot, err := s.slots.GetSlot(ctx)
	if err != nil {
		return 0, fmt.Errorf("get current slot: %w", err)
	}
	tokens, err := s.tokens.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tokens: %w", err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	now := s.now()
	var released atomic.Int64

	pool := pond.NewPool(s.workers, pond.WithQueueSize(len(tokens)))
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, token := range tokens {
		tokenID := token.TokenID
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			n, err := s.sweepToken(groupCtx, tokenID, slot, now)
			if err != nil {
				s.logger.Error("vesting sweep failed",
					zap.String("token", tokenID), zap.Error(err))
				return
			}
			released.Add(int64(n))
		})
	}
	if err := group.Wait(); err != nil {
		return int(released.Load()), err
	}
	return int(released.Load()), nil
}

func (s *Sweeper) sweepToken(ctx context.Context, tokenID string, slot, now int64) (int, error) {
	state, err := s.reconstructor.Reconstruct(ctx, tokenID, slot)
	if err != nil {
		return 0, fmt.Errorf("reconstruct %s: %w", tokenID, err)
	}

	released := 0
	for scheduleID, sched := range state.VestingSchedules {
		if sched.Terminated {
			continue
		}
		amount := vesting.Releasable(sched, now)
		if amount <= 0 {
			continue
		}

		payload := domain.VestingReleasePayload{
			TotalVested:   vesting.VestedAmount(sched, now),
			TotalReleased: sched.ReleasedAmount + amount,
			TotalAmount:   sched.TotalAmount,
		}
		_, err := s.recorder.RecordVestingRelease(ctx, tokenID, slot,
			scheduleID, sched.Beneficiary, amount,
			ledger.CommonTerms(s.classID), payload, TriggeredBySweeper)
		if err != nil {
			return released, fmt.Errorf("release schedule %s: %w", scheduleID, err)
		}

		s.logger.Info("vested shares released",
			zap.String("token", tokenID),
			zap.String("schedule", scheduleID),
			zap.String("beneficiary", sched.Beneficiary),
			zap.Int64("amount", amount),
			zap.Int64("slot", slot))
		released++
	}
	return released, nil
}
