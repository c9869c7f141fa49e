package captable

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a cap-table view as a markdown report.
func RenderMarkdown(view *View) string {
	var sb strings.Builder

	title := view.Symbol
	if title == "" {
		title = view.TokenID
	}
	sb.WriteString(fmt.Sprintf("# Cap Table: %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", view.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Token | %s |\n", view.TokenID))
	sb.WriteString(fmt.Sprintf("| As Of | slot %d, seq %d |\n", view.Slot, view.Seq))
	sb.WriteString(fmt.Sprintf("| Total Supply | %d |\n", view.TotalSupply))
	sb.WriteString(fmt.Sprintf("| Holders | %d |\n", view.HolderCount))
	sb.WriteString(fmt.Sprintf("| Approved Wallets | %d |\n", view.ApprovedCount))
	sb.WriteString(fmt.Sprintf("| Paused | %t |\n", view.IsPaused))
	if view.LastValuation > 0 {
		sb.WriteString(fmt.Sprintf("| Last Valuation | %d |\n", view.LastValuation))
	}
	sb.WriteString(fmt.Sprintf("| Ledger Entries Applied | %d |\n", view.EntriesApplied))
	sb.WriteString("\n")

	sb.WriteString("## Positions\n\n")
	if len(view.Positions) == 0 {
		sb.WriteString("No outstanding positions.\n\n")
	} else {
		sb.WriteString("| Wallet | Class | Shares | Ownership % | Cost Basis | Priority | Pref. Multiple | Approved |\n")
		sb.WriteString("|--------|-------|--------|-------------|------------|----------|----------------|----------|\n")
		for _, row := range view.Positions {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %d | %d | %.2fx | %t |\n",
				row.Wallet,
				row.ClassName,
				row.Shares,
				row.OwnershipPct.StringFixed(4),
				row.CostBasis,
				row.Priority,
				row.PreferenceMultiple,
				row.Approved,
			))
		}
		sb.WriteString("\n")
	}

	if len(view.Vesting) > 0 {
		sb.WriteString("## Vesting\n\n")
		sb.WriteString("| Schedule | Beneficiary | Total | Released | Outstanding | Terminated |\n")
		sb.WriteString("|----------|-------------|-------|----------|-------------|------------|\n")
		for _, row := range view.Vesting {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %t |\n",
				row.ScheduleID,
				row.Beneficiary,
				row.Total,
				row.Released,
				row.Outstanding,
				row.Terminated,
			))
		}
		sb.WriteString(fmt.Sprintf("\nTotal granted %d, released %d, outstanding %d.\n",
			view.VestingTotal, view.VestingReleased, view.VestingOutstanding))
	}

	return sb.String()
}
