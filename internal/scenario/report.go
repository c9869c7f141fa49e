package scenario

import (
	"fmt"
	"strings"
)

// RenderWaterfallMarkdown renders a waterfall run as a markdown report, one
// section per exit scenario.
func RenderWaterfallMarkdown(run *WaterfallRun) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Liquidation Waterfall: %s\n\n", run.TokenID))
	sb.WriteString(fmt.Sprintf("As of slot %d. Total shares outstanding: %d.\n\n", run.Slot, run.TotalShares))

	for _, result := range run.Results {
		sb.WriteString(fmt.Sprintf("## Exit at %d\n\n", result.ExitAmount))
		sb.WriteString(fmt.Sprintf("Total preference %d, undistributed remainder %d.\n\n",
			result.TotalPreference, result.RemainingAmount))

		if len(result.Tiers) == 0 {
			sb.WriteString("No positions to pay.\n\n")
			continue
		}

		sb.WriteString("| Priority | Wallet | Class | Shares | Preference | Payout | Source |\n")
		sb.WriteString("|----------|--------|-------|--------|------------|--------|--------|\n")
		for _, tier := range result.Tiers {
			for _, p := range tier.Payouts {
				sb.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %d | %d | %s |\n",
					p.Priority, p.Wallet, p.ShareClassID, p.Shares, p.PreferenceAmount, p.Amount, p.Source))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderDilutionMarkdown renders a dilution run as a markdown report.
func RenderDilutionMarkdown(run *DilutionRun) string {
	var sb strings.Builder
	result := run.Result

	sb.WriteString(fmt.Sprintf("# Dilution Simulation: %s\n\n", run.TokenID))
	sb.WriteString(fmt.Sprintf("As of slot %d, valuation %d.\n\n", run.Slot, run.Valuation))

	sb.WriteString("## Rounds\n\n")
	sb.WriteString("| Round | Pre-Money | Raised | Post-Money |\n")
	sb.WriteString("|-------|-----------|--------|------------|\n")
	for _, round := range result.Rounds {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d |\n",
			round.Name, round.PreMoneyValuation, round.AmountRaised, round.PostMoneyValuation()))
	}
	sb.WriteString("\n")

	sb.WriteString("## Before / After\n\n")
	sb.WriteString("| Metric | Before | After |\n")
	sb.WriteString("|--------|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Shares | %d | %d |\n", result.SharesBefore, result.SharesAfter))
	sb.WriteString(fmt.Sprintf("| Valuation | %d | %d |\n", result.ValuationBefore, result.ValuationAfter))
	sb.WriteString(fmt.Sprintf("| Price/Share | %d | %d |\n", result.PricePerShareBefore, result.PricePerShareAfter))
	sb.WriteString("\n")

	if len(result.ExistingHolders) > 0 {
		sb.WriteString("## Existing Holders\n\n")
		sb.WriteString("| Wallet | Shares | Ownership Before | Ownership After | Dilution | Value Before | Value After |\n")
		sb.WriteString("|--------|--------|------------------|-----------------|----------|--------------|-------------|\n")
		for _, h := range result.ExistingHolders {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s%% | %s%% | %s%% | %d | %d |\n",
				h.Wallet, h.SharesBefore,
				h.OwnershipBefore.StringFixed(4), h.OwnershipAfter.StringFixed(4),
				h.DilutionPct.StringFixed(4),
				h.ValueBefore, h.ValueAfter))
		}
		sb.WriteString("\n")
	}

	if len(result.NewInvestors) > 0 {
		sb.WriteString("## New Investors\n\n")
		sb.WriteString("| Round | Invested | Shares | Ownership | Price/Share |\n")
		sb.WriteString("|-------|----------|--------|-----------|-------------|\n")
		for _, inv := range result.NewInvestors {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s%% | %d |\n",
				inv.RoundName, inv.AmountInvested, inv.SharesReceived,
				inv.OwnershipPct.StringFixed(4), inv.PricePerShare))
		}
	}

	return sb.String()
}
