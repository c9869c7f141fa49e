// Package main runs the cap-table service daemon: storage, scheduled jobs
// (vesting sweep, snapshot maintenance, analytics rollup) and the status
// HTTP endpoints.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"solana-captable/internal/analytics"
	"solana-captable/internal/broadcast"
	"solana-captable/internal/config"
	"solana-captable/internal/ledger"
	"solana-captable/internal/logging"
	"solana-captable/internal/observability"
	"solana-captable/internal/replay"
	"solana-captable/internal/scheduler"
	"solana-captable/internal/snapshot"
	"solana-captable/internal/solana"
	"solana-captable/internal/statecache"
	"solana-captable/internal/storage"
	chstore "solana-captable/internal/storage/clickhouse"
	"solana-captable/internal/storage/memory"
	"solana-captable/internal/storage/migrations"
	pgstore "solana-captable/internal/storage/postgres"
)

type stores struct {
	entries   storage.LedgerEntryStore
	snapshots storage.SnapshotStore
	tokens    storage.TokenStore
	classes   storage.ShareClassStore
	progress  storage.IndexProgressStore
	points    storage.CapTablePointStore
}

func main() {
	config.LoadDotenv()

	postgresDSN := flag.String("postgres-dsn", config.Env("POSTGRES_DSN", ""), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", config.Env("CLICKHOUSE_DSN", ""), "ClickHouse connection string (optional, enables analytics rollup)")
	redisAddr := flag.String("redis-addr", config.Env("REDIS_ADDR", ""), "Redis address for the state cache (optional)")
	redisPassword := flag.String("redis-password", config.Env("REDIS_PASSWORD", ""), "Redis password")
	natsURL := flag.String("nats-url", config.Env("NATS_URL", ""), "NATS URL for entry broadcast (optional)")
	rpcEndpoint := flag.String("rpc-endpoint", config.Env("SOLANA_RPC_ENDPOINT", ""), "Solana RPC endpoint for the sweep clock (optional, falls back to ledger head)")
	useMemory := flag.Bool("use-memory", config.EnvBool("USE_MEMORY", false), "Use in-memory storage instead of PostgreSQL")
	httpAddr := flag.String("http-addr", config.Env("HTTP_ADDR", ":8080"), "HTTP listen address for /health, /metrics, /status")
	sweepSpec := flag.String("sweep-spec", config.Env("SWEEP_SPEC", scheduler.DefaultSweepSpec), "Cron spec for the vesting release sweep")
	maintainSpec := flag.String("maintain-spec", config.Env("MAINTAIN_SPEC", scheduler.DefaultMaintainSpec), "Cron spec for snapshot maintenance")
	rollupSpec := flag.String("rollup-spec", config.Env("ROLLUP_SPEC", scheduler.DefaultRollupSpec), "Cron spec for the analytics rollup")
	snapshotPolicy := flag.String("snapshot-policy", config.Env("SNAPSHOT_POLICY", "every-entries:500"), "Snapshot policy spec (every-entries:N, slot-interval:N, none)")
	snapshotKeep := flag.Int("snapshot-keep", config.EnvInt("SNAPSHOT_KEEP", 5), "Snapshots retained per token after pruning")
	sweepClass := flag.String("sweep-class", config.Env("SWEEP_CLASS", "common"), "Share class released vesting shares are issued under")
	sweepWorkers := flag.Int("sweep-workers", config.EnvInt("SWEEP_WORKERS", scheduler.DefaultSweepWorkers), "Per-token fan-out workers in the sweep")
	jobTimeout := flag.Duration("job-timeout", config.EnvDur("JOB_TIMEOUT", scheduler.DefaultJobTimeout), "Per-run timeout for scheduled jobs")
	flag.Parse()

	logger := logging.MustNew()
	defer logger.Sync()

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("-postgres-dsn is required (or -use-memory)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, cleanup, err := openStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer cleanup()

	var cache statecache.Cache
	if *redisAddr != "" {
		redisCache, err := statecache.NewRedisCache(ctx, statecache.Options{
			Addr:     *redisAddr,
			Password: *redisPassword,
			Logger:   logger,
		})
		if err != nil {
			logger.Fatal("connect redis", zap.Error(err))
		}
		defer redisCache.Close()
		cache = redisCache
	}

	var publisher broadcast.Publisher
	if *natsURL != "" {
		js, err := broadcast.NewJetStream(ctx, broadcast.Config{URL: *natsURL}, logger)
		if err != nil {
			logger.Fatal("connect nats", zap.Error(err))
		}
		defer js.Close()
		publisher = js
	}

	recorder := ledger.NewRecorder(ledger.RecorderOptions{
		Store:     st.entries,
		Publisher: publisher,
		Cache:     cache,
		Logger:    logger,
	})
	reconstructor := replay.NewReconstructor(replay.ReconstructorOptions{
		EntryStore:    st.entries,
		SnapshotStore: st.snapshots,
		Logger:        logger,
	})

	policy, err := snapshot.FromSpec(*snapshotPolicy)
	if err != nil {
		logger.Fatal("parse snapshot policy", zap.Error(err))
	}
	snapshots := snapshot.NewManager(snapshot.ManagerOptions{
		Reconstructor: reconstructor,
		Store:         st.snapshots,
		Policy:        policy,
		KeepLast:      *snapshotKeep,
		Logger:        logger,
	})

	var slots scheduler.SlotSource
	if *rpcEndpoint != "" {
		slots = solana.NewClient(*rpcEndpoint)
	} else {
		slots = &headSlotSource{tokens: st.tokens, reconstructor: reconstructor}
	}

	sweeper := scheduler.NewSweeper(scheduler.SweeperOptions{
		Tokens:        st.tokens,
		Reconstructor: reconstructor,
		Recorder:      recorder,
		Slots:         slots,
		ClassID:       *sweepClass,
		Workers:       *sweepWorkers,
		Logger:        logger,
	})
	maintainer := scheduler.NewMaintainer(scheduler.MaintainerOptions{
		Tokens:        st.tokens,
		Reconstructor: reconstructor,
		Snapshots:     snapshots,
		Logger:        logger,
	})

	var rollup *scheduler.RollupJob
	if st.points != nil {
		rollup = &scheduler.RollupJob{
			Rollup: analytics.NewRollup(analytics.RollupOptions{
				EntryStore: st.entries,
				PointStore: st.points,
				Logger:     logger,
			}),
			Tokens: st.tokens,
		}
	}

	sched, err := scheduler.NewScheduler(scheduler.SchedulerOptions{
		Sweeper:      sweeper,
		Maintainer:   maintainer,
		Rollup:       rollup,
		SweepSpec:    *sweepSpec,
		MaintainSpec: *maintainSpec,
		RollupSpec:   *rollupSpec,
		JobTimeout:   *jobTimeout,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("create scheduler", zap.Error(err))
	}
	sched.Start(ctx)
	defer sched.Stop()

	srv := &http.Server{
		Addr:    *httpAddr,
		Handler: newMux(st),
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", *httpAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// openStores builds either the memory or the postgres(+clickhouse) store set.
// Migrations run before any store is handed out.
func openStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *zap.Logger) (*stores, func(), error) {
	if useMemory {
		return &stores{
			entries:   memory.NewLedgerEntryStore(),
			snapshots: memory.NewSnapshotStore(),
			tokens:    memory.NewTokenStore(),
			classes:   memory.NewShareClassStore(),
			progress:  memory.NewIndexProgressStore(),
			points:    memory.NewCapTablePointStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	st := &stores{
		entries:   pgstore.NewLedgerEntryStore(pool),
		snapshots: pgstore.NewSnapshotStore(pool),
		tokens:    pgstore.NewTokenStore(pool),
		classes:   pgstore.NewShareClassStore(pool),
		progress:  pgstore.NewIndexProgressStore(pool),
	}

	var chConn *chstore.Conn
	if clickhouseDSN != "" {
		chConn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		st.points = chstore.NewCapTablePointStore(chConn)
	} else {
		logger.Info("no clickhouse DSN, analytics rollup disabled")
	}

	cleanup := func() {
		if chConn != nil {
			chConn.Close()
		}
		pool.Close()
	}
	return st, cleanup, nil
}

// headSlotSource drives the sweep clock from the ledger itself when no RPC
// endpoint is configured: the current slot is the highest head across
// tracked tokens.
type headSlotSource struct {
	tokens        storage.TokenStore
	reconstructor *replay.Reconstructor
}

func (h *headSlotSource) GetSlot(ctx context.Context) (int64, error) {
	tokens, err := h.tokens.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tokens: %w", err)
	}
	var max int64
	for _, t := range tokens {
		slot, _, err := h.reconstructor.Head(ctx, t.TokenID)
		if err != nil {
			return 0, fmt.Errorf("head for %s: %w", t.TokenID, err)
		}
		if slot > max {
			max = slot
		}
	}
	return max, nil
}

func newMux(st *stores) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", statusHandler(st))
	return mux
}

// tokenStatus is one token's row in the /status response.
type tokenStatus struct {
	TokenID         string `json:"token_id"`
	HeadSlot        int64  `json:"head_slot"`
	HeadSeq         int64  `json:"head_seq"`
	Entries         int64  `json:"entries"`
	Snapshots       int    `json:"snapshots"`
	LastIndexedSlot int64  `json:"last_indexed_slot,omitempty"`
}

type statusResponse struct {
	Status     string        `json:"status"`
	TokenCount int           `json:"token_count"`
	Tokens     []tokenStatus `json:"tokens"`
}

func statusHandler(st *stores) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tokens, err := st.tokens.GetAll(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp := statusResponse{
			Status:     "running",
			TokenCount: len(tokens),
			Tokens:     make([]tokenStatus, 0, len(tokens)),
		}
		for _, t := range tokens {
			ts := tokenStatus{TokenID: t.TokenID}

			slot, seq, err := st.entries.HeadOrderKey(ctx, t.TokenID)
			if err == nil {
				ts.HeadSlot, ts.HeadSeq = slot, seq
			} else if !errors.Is(err, storage.ErrNotFound) {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if count, err := st.entries.CountByToken(ctx, t.TokenID); err == nil {
				ts.Entries = count
			}
			if snaps, err := st.snapshots.GetByToken(ctx, t.TokenID); err == nil {
				ts.Snapshots = len(snaps)
			}
			if progress, err := st.progress.Get(ctx, t.TokenID); err == nil {
				ts.LastIndexedSlot = progress.Slot
			}
			resp.Tokens = append(resp.Tokens, ts)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
