package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"solana-captable/internal/dilution"
	"solana-captable/internal/domain"
	"solana-captable/internal/replay"
	"solana-captable/internal/storage/memory"
)

func seedRunner(t *testing.T, entries []*domain.LedgerEntry) *Runner {
	t.Helper()
	store := memory.NewLedgerEntryStore()
	ctx := context.Background()
	for _, e := range entries {
		if _, err := store.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return NewRunner(RunnerOptions{
		Reconstructor: replay.NewReconstructor(replay.ReconstructorOptions{EntryStore: store}),
	})
}

func fixtureEntries() []*domain.LedgerEntry {
	valuation, _ := json.Marshal(domain.ValuationPayload{Valuation: 20_000_000, Method: "409a"})
	return []*domain.LedgerEntry{
		{TokenID: "mint-1", Slot: 10, Kind: domain.KindApproval, Wallet: "founder"},
		{TokenID: "mint-1", Slot: 20, Kind: domain.KindShareGrant, Wallet: "founder", Amount: 7000,
			ShareClassID: "common", Priority: domain.DefaultPriority, PreferenceMultiple: domain.DefaultPreferenceMultiple},
		{TokenID: "mint-1", Slot: 30, Kind: domain.KindShareGrant, Wallet: "investor", Amount: 3000, AmountSecondary: 3_000_000,
			ShareClassID: "series-a", Priority: 1, PreferenceMultiple: 1.0},
		{TokenID: "mint-1", Slot: 40, Kind: domain.KindValuationUpdate, Amount: 20_000_000, Payload: valuation},
	}
}

func TestRunWaterfallAtHead(t *testing.T) {
	r := seedRunner(t, fixtureEntries())

	run, err := r.RunWaterfall(context.Background(), "mint-1", -1, []int64{1_000_000, 50_000_000})
	if err != nil {
		t.Fatalf("RunWaterfall: %v", err)
	}
	if run.Slot != 40 || run.TotalShares != 10000 {
		t.Errorf("run = slot %d shares %d, want 40/10000", run.Slot, run.TotalShares)
	}
	if len(run.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(run.Results))
	}

	// Below total preference: the senior investor takes everything.
	low := run.Results[0].PayoutsByWallet()
	if low["investor"] != 1_000_000 || low["founder"] != 0 {
		t.Errorf("low exit payouts = %v", low)
	}

	// High exit: everyone converts pro-rata.
	high := run.Results[1].PayoutsByWallet()
	if high["founder"] != 35_000_000 || high["investor"] != 15_000_000 {
		t.Errorf("high exit payouts = %v", high)
	}
}

func TestRunWaterfallRejectsBadInput(t *testing.T) {
	r := seedRunner(t, fixtureEntries())
	ctx := context.Background()

	if _, err := r.RunWaterfall(ctx, "mint-1", -1, nil); err == nil {
		t.Error("empty exit amounts accepted")
	}
	if _, err := r.RunWaterfall(ctx, "mint-1", -1, []int64{-5}); err == nil {
		t.Error("negative exit amount accepted")
	}
	if _, err := r.RunWaterfall(ctx, "mint-1", -1, []int64{100_000, 0}); err == nil {
		t.Error("zero exit amount accepted")
	}
}

func TestRunDilutionUsesLedgerValuation(t *testing.T) {
	r := seedRunner(t, fixtureEntries())

	run, err := r.RunDilution(context.Background(), "mint-1", -1, 0, []dilution.Round{
		{Name: "Series B", PreMoneyValuation: 20_000_000, AmountRaised: 5_000_000},
	})
	if err != nil {
		t.Fatalf("RunDilution: %v", err)
	}
	if run.Valuation != 20_000_000 {
		t.Errorf("valuation = %d, want fallback to ledger valuation", run.Valuation)
	}
	if run.Result.SharesBefore != 10000 {
		t.Errorf("shares before = %d", run.Result.SharesBefore)
	}
	if run.Result.SharesAfter <= run.Result.SharesBefore {
		t.Errorf("no shares issued: %d -> %d", run.Result.SharesBefore, run.Result.SharesAfter)
	}
}

func TestRunDilutionExplicitValuationWins(t *testing.T) {
	r := seedRunner(t, fixtureEntries())

	run, err := r.RunDilution(context.Background(), "mint-1", -1, 40_000_000, []dilution.Round{
		{Name: "Series B", PreMoneyValuation: 40_000_000, AmountRaised: 10_000_000},
	})
	if err != nil {
		t.Fatalf("RunDilution: %v", err)
	}
	if run.Valuation != 40_000_000 {
		t.Errorf("valuation = %d, want explicit value", run.Valuation)
	}
}

func TestRunDilutionNoValuation(t *testing.T) {
	r := seedRunner(t, fixtureEntries()[:3]) // no valuation_update entry

	_, err := r.RunDilution(context.Background(), "mint-1", -1, 0, []dilution.Round{
		{Name: "Series B", PreMoneyValuation: 20_000_000, AmountRaised: 5_000_000},
	})
	if !errors.Is(err, ErrNoValuation) {
		t.Errorf("err = %v, want ErrNoValuation", err)
	}
}

func TestRenderWaterfallMarkdown(t *testing.T) {
	r := seedRunner(t, fixtureEntries())
	run, err := r.RunWaterfall(context.Background(), "mint-1", -1, []int64{50_000_000})
	if err != nil {
		t.Fatalf("RunWaterfall: %v", err)
	}

	md := RenderWaterfallMarkdown(run)
	for _, want := range []string{
		"# Liquidation Waterfall: mint-1",
		"## Exit at 50000000",
		"| 1 | investor | series-a | 3000 |",
		"conversion",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderDilutionMarkdown(t *testing.T) {
	r := seedRunner(t, fixtureEntries())
	run, err := r.RunDilution(context.Background(), "mint-1", -1, 0, []dilution.Round{
		{Name: "Series B", PreMoneyValuation: 20_000_000, AmountRaised: 5_000_000},
	})
	if err != nil {
		t.Fatalf("RunDilution: %v", err)
	}

	md := RenderDilutionMarkdown(run)
	for _, want := range []string{
		"# Dilution Simulation: mint-1",
		"| Series B | 20000000 | 5000000 | 25000000 |",
		"## Existing Holders",
		"## New Investors",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}
