// Package main runs the chain indexer: poll the captable program for
// confirmed transactions, parse emitted events, and record them into the
// ledger. Optionally backfills a historical slot range before going live.
package main

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"solana-captable/internal/config"
	"solana-captable/internal/indexer"
	"solana-captable/internal/ledger"
	"solana-captable/internal/logging"
	"solana-captable/internal/solana"
	"solana-captable/internal/storage"
	"solana-captable/internal/storage/memory"
	"solana-captable/internal/storage/migrations"
	pgstore "solana-captable/internal/storage/postgres"
)

func main() {
	config.LoadDotenv()

	rpcEndpoint := flag.String("rpc-endpoint", config.Env("SOLANA_RPC_ENDPOINT", ""), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", config.Env("SOLANA_WS_ENDPOINT", ""), "Solana WebSocket endpoint (optional, gates flushes on finalized slots)")
	postgresDSN := flag.String("postgres-dsn", config.Env("POSTGRES_DSN", ""), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", config.EnvBool("USE_MEMORY", false), "Use in-memory storage instead of PostgreSQL")
	program := flag.String("program", config.Env("CAPTABLE_PROGRAM", ""), "Captable program address to index")
	pageLimit := flag.Int("page-limit", config.EnvInt("PAGE_LIMIT", indexer.DefaultPageLimit), "Signatures fetched per RPC page")
	pollInterval := flag.Duration("poll-interval", config.EnvDur("POLL_INTERVAL", indexer.DefaultPollInterval), "Event source poll interval")
	flushInterval := flag.Duration("flush-interval", config.EnvDur("FLUSH_INTERVAL", indexer.DefaultFlushInterval), "Slot buffer flush interval")
	slotLag := flag.Int64("slot-lag", config.EnvInt64("SLOT_LAG", indexer.DefaultSlotLagWindow), "Slots a buffered slot must trail the watermark before flushing")
	backfillFrom := flag.Int64("backfill-from", config.EnvInt64("BACKFILL_FROM", -1), "Backfill start slot (negative disables backfill)")
	backfillTo := flag.Int64("backfill-to", config.EnvInt64("BACKFILL_TO", -1), "Backfill end slot (negative means current slot)")
	flag.Parse()

	logger := logging.MustNew()
	defer logger.Sync()

	if *rpcEndpoint == "" {
		logger.Fatal("-rpc-endpoint is required")
	}
	if *program == "" {
		logger.Fatal("-program is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("-postgres-dsn is required (or -use-memory)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		entryStore    storage.LedgerEntryStore
		tokenStore    storage.TokenStore
		progressStore storage.IndexProgressStore
	)
	if *useMemory {
		entryStore = memory.NewLedgerEntryStore()
		tokenStore = memory.NewTokenStore()
		progressStore = memory.NewIndexProgressStore()
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatal("connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatal("run postgres migrations", zap.Error(err))
		}
		entryStore = pgstore.NewLedgerEntryStore(pool)
		tokenStore = pgstore.NewTokenStore(pool)
		progressStore = pgstore.NewIndexProgressStore(pool)
	}

	rpc := solana.NewClient(*rpcEndpoint)
	parser := indexer.NewParser(logger)
	recorder := ledger.NewRecorder(ledger.RecorderOptions{
		Store:  entryStore,
		Logger: logger,
	})
	manager := indexer.NewManager(indexer.ManagerOptions{
		Recorder: recorder,
		Tokens:   tokenStore,
		Progress: progressStore,
		Logger:   logger,
	})

	if *backfillFrom >= 0 {
		toSlot := *backfillTo
		if toSlot < 0 {
			slot, err := rpc.GetSlot(ctx)
			if err != nil {
				logger.Fatal("resolve current slot for backfill", zap.Error(err))
			}
			toSlot = slot
		}
		backfiller := indexer.NewBackfiller(indexer.BackfillerOptions{
			RPC:       rpc,
			Parser:    parser,
			Manager:   manager,
			Program:   *program,
			PageLimit: *pageLimit,
			Logger:    logger,
		})
		start := time.Now()
		recorded, err := backfiller.Backfill(ctx, *backfillFrom, toSlot)
		if err != nil {
			logger.Fatal("backfill", zap.Error(err))
		}
		logger.Info("backfill complete",
			zap.Int64("from_slot", *backfillFrom),
			zap.Int64("to_slot", toSlot),
			zap.Int("entries", recorded),
			zap.Duration("took", time.Since(start)))
	}

	var slots solana.SlotFeed
	if *wsEndpoint != "" {
		watcher, err := solana.NewSlotWatcher(ctx, *wsEndpoint, nil)
		if err != nil {
			logger.Fatal("connect slot watcher", zap.Error(err))
		}
		defer watcher.Close()
		slots = watcher
	}

	source := indexer.NewRPCEventSource(indexer.RPCEventSourceOptions{
		RPC:       rpc,
		Parser:    parser,
		Progress:  progressStore,
		Program:   *program,
		PageLimit: *pageLimit,
		Logger:    logger,
	})
	runner := indexer.NewRunner(indexer.RunnerOptions{
		Source:        source,
		Manager:       manager,
		Slots:         slots,
		PollInterval:  *pollInterval,
		FlushInterval: *flushInterval,
		SlotLagWindow: *slotLag,
		Logger:        logger,
	})

	logger.Info("indexer starting",
		zap.String("program", *program),
		zap.Bool("slot_feed", slots != nil))
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("indexer run", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
