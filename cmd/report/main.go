// Package main renders a point-in-time cap-table report as CSV or markdown,
// to stdout or a file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"solana-captable/internal/captable"
	"solana-captable/internal/config"
	"solana-captable/internal/logging"
	"solana-captable/internal/replay"
	"solana-captable/internal/storage/migrations"
	pgstore "solana-captable/internal/storage/postgres"
)

func main() {
	config.LoadDotenv()

	postgresDSN := flag.String("postgres-dsn", config.Env("POSTGRES_DSN", ""), "PostgreSQL connection string")
	token := flag.String("token", "", "Token mint address to report on")
	slot := flag.Int64("slot", -1, "Slot to report at (negative means ledger head)")
	format := flag.String("format", "markdown", "Output format: csv or markdown")
	out := flag.String("out", "", "Output file (default stdout)")
	flag.Parse()

	logger := logging.MustNew()
	defer logger.Sync()

	if *postgresDSN == "" {
		logger.Fatal("-postgres-dsn is required")
	}
	if *token == "" {
		logger.Fatal("-token is required")
	}
	if *format != "csv" && *format != "markdown" {
		logger.Fatal("-format must be csv or markdown", zap.String("format", *format))
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatal("connect to postgres", zap.Error(err))
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatal("run postgres migrations", zap.Error(err))
	}

	reconstructor := replay.NewReconstructor(replay.ReconstructorOptions{
		EntryStore:    pgstore.NewLedgerEntryStore(pool),
		SnapshotStore: pgstore.NewSnapshotStore(pool),
		Logger:        logger,
	})
	generator := captable.NewGenerator(captable.GeneratorOptions{
		Reconstructor: reconstructor,
		ClassStore:    pgstore.NewShareClassStore(pool),
	})

	view, err := generator.Generate(ctx, *token, *slot)
	if err != nil {
		logger.Fatal("generate cap table", zap.String("token", *token), zap.Error(err))
	}

	var rendered string
	switch *format {
	case "csv":
		rendered = captable.RenderCSV(view)
	case "markdown":
		rendered = captable.RenderMarkdown(view)
	}

	if *out == "" {
		fmt.Print(rendered)
		return
	}
	if err := os.WriteFile(*out, []byte(rendered), 0o644); err != nil {
		logger.Fatal("write report", zap.String("path", *out), zap.Error(err))
	}
	logger.Info("report written", zap.String("path", *out), zap.String("format", *format))
}
