package captable

import (
	"fmt"
	"strings"
)

// RenderCSV renders the view's positions as CSV, one row per
// (wallet, share class) holding.
func RenderCSV(view *View) string {
	var sb strings.Builder

	sb.WriteString("wallet,share_class_id,class_name,shares,cost_basis,priority,preference_multiple,ownership_pct,approved\n")
	for _, row := range view.Positions {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%d,%.2f,%s,%t\n",
			row.Wallet,
			row.ShareClassID,
			row.ClassName,
			row.Shares,
			row.CostBasis,
			row.Priority,
			row.PreferenceMultiple,
			row.OwnershipPct.StringFixed(4),
			row.Approved,
		))
	}

	return sb.String()
}
