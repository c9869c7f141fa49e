// Package seed loads a deterministic demo cap table through the recorder so
// every environment, from a fresh developer machine to an integration test,
// starts from the same ledger.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-captable/internal/domain"
	"solana-captable/internal/ledger"
	"solana-captable/internal/storage"
)

// Demo fixture identifiers.
const (
	DemoToken     = "DemoTok1111111111111111111111111111111111111"
	DemoAuthority = "DemoAuth111111111111111111111111111111111111"
	ClassCommon   = "common"
	ClassSeriesA  = "series-a"
	TriggeredBy   = "seed"
)

// Demo wallets.
const (
	WalletFounderA = "FounderA1111111111111111111111111111111111"
	WalletFounderB = "FounderB1111111111111111111111111111111111"
	WalletEmployee = "Emp1oyee1111111111111111111111111111111111"
	WalletInvestor = "Investor1111111111111111111111111111111111"
	WalletAngel    = "Ange1Inv1111111111111111111111111111111111"
)

// Seeder records the demo fixture against whatever store set the recorder
// is wired to.
type Seeder struct {
	recorder *ledger.Recorder
	tokens   storage.TokenStore
	classes  storage.ShareClassStore
	logger   *zap.Logger
}

// SeederOptions contains configuration for creating a Seeder. Tokens and
// Classes are optional registries.
type SeederOptions struct {
	Recorder *ledger.Recorder
	Tokens   storage.TokenStore
	Classes  storage.ShareClassStore
	Logger   *zap.Logger
}

// NewSeeder creates a new Seeder.
func NewSeeder(opts SeederOptions) *Seeder {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Seeder{
		recorder: opts.Recorder,
		tokens:   opts.Tokens,
		classes:  opts.Classes,
		logger:   opts.Logger,
	}
}

// Load records the full demo ledger and returns how many entries it wrote.
// Loading into a set that already holds the fixture fails on the first
// duplicate entry; seed into a fresh store set.
func (s *Seeder) Load(ctx context.Context) (int, error) {
	if err := s.registries(ctx); err != nil {
		return 0, err
	}

	r := s.recorder
	count := 0
	step := func(_ *domain.LedgerEntry, err error) error {
		if err != nil {
			return err
		}
		count++
		return nil
	}

	common := ledger.CommonTerms(ClassCommon)
	seriesA := ledger.ClassTerms{
		ShareClassID:       ClassSeriesA,
		Priority:           1,
		PreferenceMultiple: 1.0,
		PricePerShare:      2_000,
	}

	// Founding: approvals and the initial common issue.
	for i, wallet := range []string{WalletFounderA, WalletFounderB, WalletEmployee, WalletInvestor, WalletAngel} {
		if err := step(r.RecordApproval(ctx, DemoToken, 1_000+int64(i), wallet, TriggeredBy)); err != nil {
			return count, fmt.Errorf("seed approvals: %w", err)
		}
	}
	if err := step(r.RecordMint(ctx, DemoToken, 1_010, WalletFounderA, 4_000_000, common, TriggeredBy)); err != nil {
		return count, fmt.Errorf("seed founder mint: %w", err)
	}
	if err := step(r.RecordShareGrant(ctx, DemoToken, 1_010, WalletFounderB, 3_000_000, 0, common, TriggeredBy)); err != nil {
		return count, fmt.Errorf("seed founder grant: %w", err)
	}

	// A four-year employee schedule with a one-year cliff, two releases in.
	if err := step(r.RecordVestingScheduleCreate(ctx, DemoToken, 1_020, "vest-emp-1",
		domain.VestingSchedulePayload{
			Beneficiary:     WalletEmployee,
			TotalAmount:     480_000,
			StartTime:       1_700_000_000,
			CliffSeconds:    365 * 86_400,
			DurationSeconds: 4 * 365 * 86_400,
			Interval:        domain.IntervalMonth,
		}, TriggeredBy)); err != nil {
		return count, fmt.Errorf("seed vesting schedule: %w", err)
	}
	for i, amount := range []int64{120_000, 10_000} {
		release := domain.VestingReleasePayload{TotalAmount: 480_000}
		release.TotalReleased = 120_000 + int64(i)*10_000
		release.TotalVested = release.TotalReleased
		if err := step(r.RecordVestingRelease(ctx, DemoToken, 1_030+int64(i)*10,
			"vest-emp-1", WalletEmployee, amount, common, release, TriggeredBy)); err != nil {
			return count, fmt.Errorf("seed vesting release: %w", err)
		}
	}

	// Secondary sale between the founders.
	if err := step(r.RecordTransfer(ctx, DemoToken, 1_050, WalletFounderB, WalletAngel, 250_000, TriggeredBy)); err != nil {
		return count, fmt.Errorf("seed transfer: %w", err)
	}

	// Seed note converted at the Series A.
	if err := step(r.RecordConvertibleCreate(ctx, DemoToken, 1_060, "note-1", WalletAngel, 500_000_000, TriggeredBy)); err != nil {
		return count, fmt.Errorf("seed convertible: %w", err)
	}
	if err := step(r.RecordConvertibleConvert(ctx, DemoToken, 1_080, "note-1", WalletAngel,
		312_500, 500_000_000, seriesA, TriggeredBy)); err != nil {
		return count, fmt.Errorf("seed conversion: %w", err)
	}

	// Series A round closed into priced investments.
	if err := step(r.RecordFundingRoundCreate(ctx, DemoToken, 1_070, "series-a-round", 3_000_000_000, TriggeredBy)); err != nil {
		return count, fmt.Errorf("seed round open: %w", err)
	}
	closed, err := r.RecordFundingRoundClose(ctx, DemoToken, 1_080, "series-a-round", []ledger.Investment{
		{Wallet: WalletInvestor, Shares: 1_250_000, AmountPaid: 2_500_000_000, Terms: seriesA},
		{Wallet: WalletAngel, Shares: 250_000, AmountPaid: 500_000_000, Terms: seriesA},
	}, TriggeredBy)
	if err != nil {
		return count, fmt.Errorf("seed round close: %w", err)
	}
	count += len(closed)

	// Post-round housekeeping: a 2:1 split and a fresh valuation mark.
	if err := step(r.RecordStockSplit(ctx, DemoToken, 1_090, 2, 1, TriggeredBy)); err != nil {
		return count, fmt.Errorf("seed split: %w", err)
	}
	if err := step(r.RecordValuationUpdate(ctx, DemoToken, 1_100, 12_000_000_000, "priced_round", TriggeredBy)); err != nil {
		return count, fmt.Errorf("seed valuation: %w", err)
	}

	s.logger.Info("demo fixture loaded",
		zap.String("token", DemoToken),
		zap.Int("entries", count))
	return count, nil
}

// registries fills the token and share class registries when stores are
// wired. Replays never read these; they serve display paths.
func (s *Seeder) registries(ctx context.Context) error {
	if s.tokens != nil {
		err := s.tokens.Insert(ctx, &domain.Token{
			TokenID:     DemoToken,
			Symbol:      "DEMO",
			Name:        "Demo Equities Inc",
			Authority:   DemoAuthority,
			CreatedSlot: 1_000,
		})
		if err != nil {
			return fmt.Errorf("seed token registry: %w", err)
		}
	}
	if s.classes == nil {
		return nil
	}
	classes := []*domain.ShareClass{
		{
			ClassID: ClassCommon, TokenID: DemoToken,
			Name: "Common", Symbol: "COM",
			Priority:           domain.DefaultPriority,
			PreferenceMultiple: domain.DefaultPreferenceMultiple,
			VotesPerShare:      1,
		},
		{
			ClassID: ClassSeriesA, TokenID: DemoToken,
			Name: "Series A Preferred", Symbol: "SER-A",
			Priority: 1, PreferenceMultiple: 1.0,
			VotesPerShare: 1, Convertible: true,
		},
	}
	for _, c := range classes {
		if err := s.classes.Insert(ctx, c); err != nil {
			return fmt.Errorf("seed class %s: %w", c.ClassID, err)
		}
	}
	return nil
}
