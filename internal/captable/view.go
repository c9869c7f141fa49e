// Package captable builds human-readable cap-table views and reports from
// reconstructed token state. Views are pure projections: everything in them
// is derived from a TokenState plus the share class registry used for
// display names.
package captable

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"solana-captable/internal/dilution"
	"solana-captable/internal/domain"
)

// View is a cap table as of one order key.
type View struct {
	TokenID     string    `json:"token_id"`
	Symbol      string    `json:"symbol"`
	Slot        int64     `json:"slot"`
	Seq         int64     `json:"seq"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalSupply    int64 `json:"total_supply"`
	HolderCount    int   `json:"holder_count"`
	ApprovedCount  int   `json:"approved_count"`
	IsPaused       bool  `json:"is_paused"`
	LastValuation  int64 `json:"last_valuation"`
	EntriesApplied int64 `json:"entries_applied"`

	Positions []PositionRow `json:"positions"`
	Vesting   []VestingRow  `json:"vesting"`

	VestingTotal       int64 `json:"vesting_total"`
	VestingReleased    int64 `json:"vesting_released"`
	VestingOutstanding int64 `json:"vesting_outstanding"`
}

// PositionRow is one (wallet, share class) holding.
type PositionRow struct {
	Wallet             string          `json:"wallet"`
	ShareClassID       string          `json:"share_class_id"`
	ClassName          string          `json:"class_name"`
	Shares             int64           `json:"shares"`
	CostBasis          int64           `json:"cost_basis"`
	Priority           int             `json:"priority"`
	PreferenceMultiple float64         `json:"preference_multiple"`
	OwnershipPct       decimal.Decimal `json:"ownership_pct"`
	Approved           bool            `json:"approved"`
}

// VestingRow is one vesting schedule's progress.
type VestingRow struct {
	ScheduleID  string `json:"schedule_id"`
	Beneficiary string `json:"beneficiary"`
	Total       int64  `json:"total"`
	Released    int64  `json:"released"`
	Outstanding int64  `json:"outstanding"`
	Terminated  bool   `json:"terminated"`
}

// BuildView projects a reconstructed state into a display view. Class display
// names come from the registry; replay semantics never do. Rows are ordered
// by shares descending, then wallet and class id, so rendering is
// deterministic.
func BuildView(state *domain.TokenState, classes []*domain.ShareClass, generatedAt time.Time) (*View, error) {
	if state == nil {
		return nil, fmt.Errorf("nil state")
	}

	classNames := make(map[string]string, len(classes))
	for _, c := range classes {
		classNames[c.ClassID] = c.Name
	}

	view := &View{
		TokenID:        state.TokenID,
		Symbol:         state.Symbol,
		Slot:           state.Slot,
		Seq:            state.Seq,
		GeneratedAt:    generatedAt.UTC(),
		TotalSupply:    state.TotalSupply,
		HolderCount:    state.HolderCount(),
		ApprovedCount:  len(state.ApprovedWallets),
		IsPaused:       state.IsPaused,
		LastValuation:  state.LastValuation,
		EntriesApplied: state.EntriesApplied,
	}

	for key, pos := range state.Positions {
		if pos.Shares <= 0 {
			continue
		}
		name, ok := classNames[key.ShareClassID]
		if !ok {
			name = key.ShareClassID
		}
		view.Positions = append(view.Positions, PositionRow{
			Wallet:             key.Wallet,
			ShareClassID:       key.ShareClassID,
			ClassName:          name,
			Shares:             pos.Shares,
			CostBasis:          pos.CostBasis,
			Priority:           pos.Priority,
			PreferenceMultiple: pos.PreferenceMultiple,
			OwnershipPct:       dilution.OwnershipPct(pos.Shares, state.TotalSupply),
			Approved:           state.ApprovedWallets[key.Wallet],
		})
	}
	sort.Slice(view.Positions, func(i, j int) bool {
		a, b := view.Positions[i], view.Positions[j]
		if a.Shares != b.Shares {
			return a.Shares > b.Shares
		}
		if a.Wallet != b.Wallet {
			return a.Wallet < b.Wallet
		}
		return a.ShareClassID < b.ShareClassID
	})

	for id, sched := range state.VestingSchedules {
		view.Vesting = append(view.Vesting, VestingRow{
			ScheduleID:  id,
			Beneficiary: sched.Beneficiary,
			Total:       sched.TotalAmount,
			Released:    sched.ReleasedAmount,
			Outstanding: sched.TotalAmount - sched.ReleasedAmount,
			Terminated:  sched.Terminated,
		})
	}
	sort.Slice(view.Vesting, func(i, j int) bool {
		return view.Vesting[i].ScheduleID < view.Vesting[j].ScheduleID
	})

	total, released := state.VestingTotals()
	view.VestingTotal = total
	view.VestingReleased = released
	view.VestingOutstanding = total - released

	return view, nil
}
