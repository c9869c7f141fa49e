// Package main runs what-if scenarios against a reconstructed cap table:
// liquidation waterfalls at given exit amounts, and dilution across planned
// funding rounds. Results render as markdown on stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"solana-captable/internal/config"
	"solana-captable/internal/dilution"
	"solana-captable/internal/logging"
	"solana-captable/internal/replay"
	"solana-captable/internal/scenario"
	"solana-captable/internal/storage/migrations"
	pgstore "solana-captable/internal/storage/postgres"
)

func main() {
	config.LoadDotenv()

	postgresDSN := flag.String("postgres-dsn", config.Env("POSTGRES_DSN", ""), "PostgreSQL connection string")
	token := flag.String("token", "", "Token mint address to simulate on")
	slot := flag.Int64("slot", -1, "Slot to reconstruct at (negative means ledger head)")
	exit := flag.String("exit", "", "Comma-separated exit amounts for the waterfall (base units)")
	rounds := flag.String("rounds", "", "Comma-separated funding rounds as name:raised:premoney")
	valuation := flag.Int64("valuation", 0, "Share valuation basis for dilution (0 uses last recorded valuation)")
	flag.Parse()

	logger := logging.MustNew()
	defer logger.Sync()

	if *postgresDSN == "" {
		logger.Fatal("-postgres-dsn is required")
	}
	if *token == "" {
		logger.Fatal("-token is required")
	}
	if *exit == "" && *rounds == "" {
		logger.Fatal("nothing to simulate: give -exit and/or -rounds")
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

	runner := scenario.NewRunner(scenario.RunnerOptions{
		Reconstructor: replay.NewReconstructor(replay.ReconstructorOptions{
			EntryStore:    pgstore.NewLedgerEntryStore(pool),
			SnapshotStore: pgstore.NewSnapshotStore(pool),
			Logger:        logger,
		}),
		Logger: logger,
	})

	if *exit != "" {
		amounts, err := parseExitAmounts(*exit)
		if err != nil {
			logger.Fatal("parse -exit", zap.Error(err))
		}
		run, err := runner.RunWaterfall(ctx, *token, *slot, amounts)
		if err != nil {
			logger.Fatal("run waterfall", zap.Error(err))
		}
		fmt.Print(scenario.RenderWaterfallMarkdown(run))
	}

	if *rounds != "" {
		parsed, err := parseRounds(*rounds)
		if err != nil {
			logger.Fatal("parse -rounds", zap.Error(err))
		}
		run, err := runner.RunDilution(ctx, *token, *slot, *valuation, parsed)
		if err != nil {
			logger.Fatal("run dilution", zap.Error(err))
		}
		fmt.Print(scenario.RenderDilutionMarkdown(run))
	}
}

func parseExitAmounts(spec string) ([]int64, error) {
	var amounts []int64
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("exit amount %q: %w", part, err)
		}
		amounts = append(amounts, n)
	}
	if len(amounts) == 0 {
		return nil, fmt.Errorf("no exit amounts in %q", spec)
	}
	return amounts, nil
}

// parseRounds parses name:raised:premoney triples, e.g.
// "series-b:2000000:10000000,series-c:5000000:40000000".
func parseRounds(spec string) ([]dilution.Round, error) {
	var rounds []dilution.Round
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("round %q: want name:raised:premoney", part)
		}
		raised, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("round %q raised: %w", part, err)
		}
		preMoney, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("round %q premoney: %w", part, err)
		}
		rounds = append(rounds, dilution.Round{
			Name:              fields[0],
			AmountRaised:      raised,
			PreMoneyValuation: preMoney,
		})
	}
	if len(rounds) == 0 {
		return nil, fmt.Errorf("no rounds in %q", spec)
	}
	return rounds, nil
}
