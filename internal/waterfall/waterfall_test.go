package waterfall

import (
	"reflect"
	"testing"

	"solana-captable/internal/domain"
)

func commonPosition(wallet string, shares int64) Position {
	return Position{
		Wallet:             wallet,
		ShareClassID:       "common",
		Priority:           domain.DefaultPriority,
		Shares:             shares,
		CostBasis:          0,
		PreferenceMultiple: 1.0,
	}
}

func preferredPosition(wallet string, shares, costBasis int64, multiple float64, priority int) Position {
	return Position{
		Wallet:             wallet,
		ShareClassID:       "series-a",
		Priority:           priority,
		Shares:             shares,
		CostBasis:          costBasis,
		PreferenceMultiple: multiple,
	}
}

func TestCalculatePartialPreference(t *testing.T) {
	// Exit below the Series A preference: the whole exit goes to the
	// preferred tier pro-rata and common receives nothing.
	positions := []Position{
		preferredPosition("investor", 500, 100_000, 1.0, 1),
		commonPosition("founder", 1000),
	}

	result := Calculate(positions, 80_000)

	if len(result.Tiers) != 2 {
		t.Fatalf("tiers = %d, want 2", len(result.Tiers))
	}

	seriesA := result.Tiers[0]
	if seriesA.Priority != 1 {
		t.Errorf("first tier priority = %d, want 1", seriesA.Priority)
	}
	if seriesA.FullySatisfied {
		t.Error("underfunded tier reported as fully satisfied")
	}
	if got := seriesA.Payouts[0]; got.Amount != 80_000 || got.Source != SourcePartialPreference {
		t.Errorf("series A payout = (%d, %s), want (80000, partial_preference)", got.Amount, got.Source)
	}

	common := result.Tiers[1]
	if got := common.Payouts[0]; got.Amount != 0 || got.Source != SourceNone {
		t.Errorf("common payout = (%d, %s), want (0, none)", got.Amount, got.Source)
	}

	if result.RemainingAmount != 0 {
		t.Errorf("remaining = %d, want 0", result.RemainingAmount)
	}
}

func TestCalculateConversionTieGoesToPreference(t *testing.T) {
	// Exit above total preferences. Series A's as-converted value
	// (300000 * 500/1500 = 100000) exactly ties its preference, and ties
	// go to the preference.
	positions := []Position{
		preferredPosition("investor", 500, 100_000, 1.0, 1),
		commonPosition("founder", 1000),
	}

	result := Calculate(positions, 300_000)

	seriesA := result.Tiers[0].Payouts[0]
	if seriesA.Amount != 100_000 || seriesA.Source != SourcePreference {
		t.Errorf("series A payout = (%d, %s), want (100000, preference)", seriesA.Amount, seriesA.Source)
	}

	common := result.Tiers[1].Payouts[0]
	if common.Amount != 200_000 || common.Source != SourceCommon {
		t.Errorf("common payout = (%d, %s), want (200000, common)", common.Amount, common.Source)
	}

	if !result.Tiers[0].FullySatisfied {
		t.Error("preference tier not marked fully satisfied")
	}
	if result.RemainingAmount != 0 {
		t.Errorf("remaining = %d, want 0", result.RemainingAmount)
	}
}

func TestCalculateConversionChosen(t *testing.T) {
	// A tiny preference next to a large share of the company: converting
	// beats taking the preference.
	positions := []Position{
		preferredPosition("investor", 900, 10, 1.0, 1),
		commonPosition("founder", 100),
	}

	result := Calculate(positions, 1000)

	investor := result.Tiers[0].Payouts[0]
	if investor.Amount != 900 || investor.Source != SourceConversion {
		t.Errorf("investor payout = (%d, %s), want (900, conversion)", investor.Amount, investor.Source)
	}
	founder := result.Tiers[1].Payouts[0]
	if founder.Amount != 100 || founder.Source != SourceCommon {
		t.Errorf("founder payout = (%d, %s), want (100, common)", founder.Amount, founder.Source)
	}
}

func TestCalculateSeniorityOrder(t *testing.T) {
	positions := []Position{
		commonPosition("founder", 1000),
		preferredPosition("senior", 100, 50_000, 1.0, 1),
		{Wallet: "junior", ShareClassID: "series-b", Priority: 2, Shares: 100, CostBasis: 50_000, PreferenceMultiple: 1.0},
	}

	result := Calculate(positions, 60_000)

	if got := result.Tiers[0].Payouts[0]; got.Amount != 50_000 || got.Source != SourcePreference {
		t.Errorf("senior payout = (%d, %s), want (50000, preference)", got.Amount, got.Source)
	}
	if got := result.Tiers[1].Payouts[0]; got.Amount != 10_000 || got.Source != SourcePartialPreference {
		t.Errorf("junior payout = (%d, %s), want (10000, partial_preference)", got.Amount, got.Source)
	}
	if got := result.Tiers[2].Payouts[0]; got.Amount != 0 || got.Source != SourceNone {
		t.Errorf("common payout = (%d, %s), want (0, none)", got.Amount, got.Source)
	}
}

func TestCalculateTierBelowUnsatisfiedGetsNothing(t *testing.T) {
	positions := []Position{
		preferredPosition("senior", 100, 100_000, 1.0, 1),
		{Wallet: "junior", ShareClassID: "series-b", Priority: 2, Shares: 100, CostBasis: 100_000, PreferenceMultiple: 1.0},
	}

	result := Calculate(positions, 40_000)

	if got := result.Tiers[0].Payouts[0].Source; got != SourcePartialPreference {
		t.Errorf("senior source = %s, want partial_preference", got)
	}
	junior := result.Tiers[1]
	if junior.AmountAvailable != 0 || junior.Payouts[0].Source != SourceNone {
		t.Errorf("junior tier = (available %d, source %s), want (0, none)", junior.AmountAvailable, junior.Payouts[0].Source)
	}
}

func TestCalculateMultiplierAndProRataTruncation(t *testing.T) {
	// Two holders in the same tier with preferences 100 and 101 splitting
	// 100: both truncate toward zero and the lost unit surfaces in the
	// remainder instead of disappearing.
	positions := []Position{
		{Wallet: "a", ShareClassID: "seed", Priority: 1, Shares: 10, CostBasis: 50, PreferenceMultiple: 2.0},
		{Wallet: "b", ShareClassID: "seed", Priority: 1, Shares: 10, CostBasis: 101, PreferenceMultiple: 1.0},
	}

	result := Calculate(positions, 100)

	tier := result.Tiers[0]
	if tier.TotalPreference != 201 {
		t.Fatalf("tier preference = %d, want 201", tier.TotalPreference)
	}
	if got := tier.Payouts[0].Amount; got != 49 {
		t.Errorf("holder a payout = %d, want 49", got)
	}
	if got := tier.Payouts[1].Amount; got != 50 {
		t.Errorf("holder b payout = %d, want 50", got)
	}
	if result.RemainingAmount != 1 {
		t.Errorf("remaining = %d, want 1", result.RemainingAmount)
	}
}

func TestCalculateConservation(t *testing.T) {
	tests := []struct {
		name      string
		positions []Position
		exit      int64
	}{
		{
			name:      "no positions",
			positions: nil,
			exit:      5000,
		},
		{
			name: "partial tier with truncation",
			positions: []Position{
				{Wallet: "a", ShareClassID: "seed", Priority: 1, Shares: 3, CostBasis: 333, PreferenceMultiple: 1.0},
				{Wallet: "b", ShareClassID: "seed", Priority: 1, Shares: 7, CostBasis: 667, PreferenceMultiple: 1.0},
				commonPosition("c", 990),
			},
			exit: 999,
		},
		{
			name: "conversion branch with truncation",
			positions: []Position{
				preferredPosition("a", 333, 10, 1.0, 1),
				commonPosition("b", 333),
				commonPosition("c", 334),
			},
			exit: 1000,
		},
		{
			name: "zero exit",
			positions: []Position{
				preferredPosition("a", 100, 1000, 1.0, 1),
				commonPosition("b", 100),
			},
			exit: 0,
		},
		{
			// Independent per-holder decisions can oversubscribe the exit;
			// the remainder goes negative so the balance still holds.
			name: "oversubscribed conversions",
			positions: []Position{
				preferredPosition("a", 10, 60, 1.0, 1),
				{Wallet: "b", ShareClassID: "series-b", Priority: 2, Shares: 90, CostBasis: 1, PreferenceMultiple: 1.0},
			},
			exit: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Calculate(tt.positions, tt.exit)

			total := int64(0)
			for _, tier := range result.Tiers {
				for _, p := range tier.Payouts {
					total += p.Amount
				}
			}
			if total+result.RemainingAmount != tt.exit {
				t.Errorf("payouts %d + remaining %d != exit %d", total, result.RemainingAmount, tt.exit)
			}
		})
	}
}

func TestPayoutsByWalletAggregatesAcrossClasses(t *testing.T) {
	positions := []Position{
		preferredPosition("alice", 500, 100_000, 1.0, 1),
		commonPosition("alice", 200),
		commonPosition("bob", 800),
	}

	result := Calculate(positions, 500_000)
	byWallet := result.PayoutsByWallet()

	// Alice converts her preferred (166,666 as-converted beats the 100,000
	// preference) and adds her common slice of the remainder.
	if got := byWallet["alice"]; got != 233_332 {
		t.Errorf("alice total = %d, want 233332", got)
	}
	if got := byWallet["bob"]; got != 266_667 {
		t.Errorf("bob total = %d, want 266667", got)
	}
	if result.RemainingAmount != 1 {
		t.Errorf("remaining = %d, want 1", result.RemainingAmount)
	}
}

func TestPositionsFromState(t *testing.T) {
	state := domain.NewTokenState("token-1")
	state.Positions[domain.PositionKey{Wallet: "w2", ShareClassID: "common"}] = &domain.Position{
		Shares: 100, Priority: domain.DefaultPriority, PreferenceMultiple: 1.0,
	}
	state.Positions[domain.PositionKey{Wallet: "w1", ShareClassID: "series-a"}] = &domain.Position{
		Shares: 50, CostBasis: 5000, Priority: 1, PreferenceMultiple: 1.5,
	}
	state.Positions[domain.PositionKey{Wallet: "w3", ShareClassID: "common"}] = &domain.Position{
		Shares: 0, Priority: domain.DefaultPriority, PreferenceMultiple: 1.0,
	}

	got := PositionsFromState(state)

	want := []Position{
		{Wallet: "w1", ShareClassID: "series-a", Priority: 1, Shares: 50, CostBasis: 5000, PreferenceMultiple: 1.5},
		{Wallet: "w2", ShareClassID: "common", Priority: domain.DefaultPriority, Shares: 100, PreferenceMultiple: 1.0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PositionsFromState = %+v, want %+v", got, want)
	}
}

func TestScenarios(t *testing.T) {
	positions := []Position{
		preferredPosition("investor", 500, 100_000, 1.0, 1),
		commonPosition("founder", 1000),
	}

	results := Scenarios(positions, []int64{80_000, 300_000})
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Tiers[0].Payouts[0].Source != SourcePartialPreference {
		t.Error("first scenario should hit the partial preference branch")
	}
	if results[1].Tiers[1].Payouts[0].Source != SourceCommon {
		t.Error("second scenario should pay common")
	}
}
