// Package main loads the demo cap-table fixture through the Recorder. With
// -dry-run it seeds in-memory stores and prints the resulting state instead
// of writing to Postgres.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"solana-captable/internal/config"
	"solana-captable/internal/ledger"
	"solana-captable/internal/logging"
	"solana-captable/internal/replay"
	"solana-captable/internal/seed"
	"solana-captable/internal/storage"
	"solana-captable/internal/storage/memory"
	"solana-captable/internal/storage/migrations"
	pgstore "solana-captable/internal/storage/postgres"
)

func main() {
	config.LoadDotenv()

	postgresDSN := flag.String("postgres-dsn", config.Env("POSTGRES_DSN", ""), "PostgreSQL connection string")
	dryRun := flag.Bool("dry-run", false, "Seed in-memory stores and print the resulting state")
	flag.Parse()

	logger := logging.MustNew()
	defer logger.Sync()

	if !*dryRun && *postgresDSN == "" {
		logger.Fatal("-postgres-dsn is required (or -dry-run)")
	}

	ctx := context.Background()

	var (
		entryStore storage.LedgerEntryStore
		tokenStore storage.TokenStore
		classStore storage.ShareClassStore
	)
	if *dryRun {
		entryStore = memory.NewLedgerEntryStore()
		tokenStore = memory.NewTokenStore()
		classStore = memory.NewShareClassStore()
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
		classStore = pgstore.NewShareClassStore(pool)
	}

	seeder := seed.NewSeeder(seed.SeederOptions{
		Recorder: ledger.NewRecorder(ledger.RecorderOptions{
			Store:  entryStore,
			Logger: logger,
		}),
		Tokens:  tokenStore,
		Classes: classStore,
		Logger:  logger,
	})

	count, err := seeder.Load(ctx)
	if err != nil {
		logger.Fatal("load seed fixture", zap.Error(err))
	}
	logger.Info("seed fixture loaded",
		zap.String("token", seed.DemoToken),
		zap.Int("entries", count),
		zap.Bool("dry_run", *dryRun))

	if !*dryRun {
		return
	}

	reconstructor := replay.NewReconstructor(replay.ReconstructorOptions{
		EntryStore: entryStore,
		Logger:     logger,
	})
	headSlot, _, err := reconstructor.Head(ctx, seed.DemoToken)
	if err != nil {
		logger.Fatal("resolve seeded head", zap.Error(err))
	}
	state, err := reconstructor.Reconstruct(ctx, seed.DemoToken, headSlot)
	if err != nil {
		logger.Fatal("reconstruct seeded state", zap.Error(err))
	}
	out, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		logger.Fatal("encode state", zap.Error(err))
	}
	fmt.Println(string(out))
}
