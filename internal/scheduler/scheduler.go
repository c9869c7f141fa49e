// Package scheduler runs the background jobs that keep a ledger-sourced cap
// table current: releasing vested shares, maintaining snapshots and extending
// the analytics time series. Each job is a plain struct the cron wrapper
// schedules, so tests drive the jobs directly.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"solana-captable/internal/analytics"
	"solana-captable/internal/observability"
	"solana-captable/internal/storage"
)

// Default job schedules and run bound.
const (
	DefaultSweepSpec    = "@every 60s"
	DefaultMaintainSpec = "@every 5m"
	DefaultRollupSpec   = "@every 5m"
	DefaultJobTimeout   = 2 * time.Minute
)

// RollupJob extends the analytics time series for every tracked token.
type RollupJob struct {
	Rollup *analytics.Rollup
	Tokens storage.TokenStore
}

// Run runs one rollup pass.
func (j *RollupJob) Run(ctx context.Context) error {
	_, err := j.Rollup.RollupAll(ctx, j.Tokens)
	return err
}

// Scheduler wires the jobs onto a seconds-resolution cron with panic
// recovery. Jobs it is not given are simply not scheduled.
type Scheduler struct {
	cron       *cron.Cron
	jobTimeout time.Duration
	logger     *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
}

// SchedulerOptions contains configuration for creating a Scheduler. Nil jobs
// are skipped.
type SchedulerOptions struct {
	Sweeper      *Sweeper
	Maintainer   *Maintainer
	Rollup       *RollupJob
	SweepSpec    string
	MaintainSpec string
	RollupSpec   string
	JobTimeout   time.Duration
	Logger       *zap.Logger
}

// NewScheduler creates a new Scheduler with its jobs registered.
func NewScheduler(opts SchedulerOptions) (*Scheduler, error) {
	if opts.SweepSpec == "" {
		opts.SweepSpec = DefaultSweepSpec
	}
	if opts.MaintainSpec == "" {
		opts.MaintainSpec = DefaultMaintainSpec
	}
	if opts.RollupSpec == "" {
		opts.RollupSpec = DefaultRollupSpec
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Scheduler{
		jobTimeout: opts.JobTimeout,
		logger:     opts.Logger,
	}
	cronLog := zapCronLogger{opts.Logger.Sugar()}
	s.cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLog)))

	if opts.Sweeper != nil {
		if err := s.addJob(opts.SweepSpec, "vesting_sweep", func(ctx context.Context) error {
			n, err := opts.Sweeper.Sweep(ctx)
			if n > 0 {
				s.logger.Info("vesting sweep recorded releases", zap.Int("releases", n))
			}
			return err
		}); err != nil {
			return nil, err
		}
	}
	if opts.Maintainer != nil {
		if err := s.addJob(opts.MaintainSpec, "snapshot_maintenance", func(ctx context.Context) error {
			_, err := opts.Maintainer.Maintain(ctx)
			return err
		}); err != nil {
			return nil, err
		}
	}
	if opts.Rollup != nil {
		if err := s.addJob(opts.RollupSpec, "analytics_rollup", opts.Rollup.Run); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) addJob(spec, name string, fn func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		base := s.baseCtx
		if base == nil {
			base = context.Background()
		}
		// keep each run bounded
		rctx, cancel := context.WithTimeout(base, s.jobTimeout)
		defer cancel()

		start := time.Now()
		if err := fn(rctx); err != nil {
			observability.RecordJobRun(name, "error", time.Since(start).Seconds())
			s.logger.Error("scheduled job failed",
				zap.String("job", name), zap.Error(err))
			return
		}
		observability.RecordJobRun(name, "ok", time.Since(start).Seconds())
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

// Start begins running jobs on their schedules. The context bounds every job
// run started after this call.
func (s *Scheduler) Start(ctx context.Context) {
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop cancels running jobs and waits for them to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// zapCronLogger adapts zap to the cron logger interface used by the
// recovery chain.
type zapCronLogger struct {
	s *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
