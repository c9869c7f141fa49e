// Package waterfall implements the liquidation waterfall for non-participating
// preferred stock. Preferences are paid strictly in priority order (lower
// priority number first); once the exit amount exceeds total preferences each
// preferred holder independently takes the greater of their preference and
// their as-converted pro-rata share.
//
// All arithmetic is integer with truncation toward zero. Truncation residue is
// never dropped: it accumulates in Result.RemainingAmount so that the sum of
// all payouts plus the remainder always equals the exit amount.
package waterfall

import (
	"sort"

	"solana-captable/internal/domain"
)

// Source tags where a payout came from.
type Source string

const (
	SourcePreference        Source = "preference"
	SourcePartialPreference Source = "partial_preference"
	SourceConversion        Source = "conversion"
	SourceCommon            Source = "common"
	SourceNone              Source = "none"
)

// Position is a holder's stake in one share class, with the liquidation terms
// captured at issuance time.
type Position struct {
	Wallet             string  `json:"wallet"`
	ShareClassID       string  `json:"share_class_id"`
	Priority           int     `json:"priority"`
	Shares             int64   `json:"shares"`
	CostBasis          int64   `json:"cost_basis"`
	PreferenceMultiple float64 `json:"preference_multiple"`
}

// PreferenceAmount returns cost basis times the preference multiple,
// truncated toward zero.
func (p Position) PreferenceAmount() int64 {
	return int64(float64(p.CostBasis) * p.PreferenceMultiple)
}

// Payout is the result for a single position.
type Payout struct {
	Wallet             string  `json:"wallet"`
	ShareClassID       string  `json:"share_class_id"`
	Priority           int     `json:"priority"`
	Shares             int64   `json:"shares"`
	CostBasis          int64   `json:"cost_basis"`
	PreferenceAmount   int64   `json:"preference_amount"`
	PreferenceMultiple float64 `json:"preference_multiple"`
	Amount             int64   `json:"amount"`
	Source             Source  `json:"source"`
}

// Tier groups payouts for one priority level.
type Tier struct {
	Priority          int      `json:"priority"`
	TotalPreference   int64    `json:"total_preference"`
	AmountAvailable   int64    `json:"amount_available"`
	AmountDistributed int64    `json:"amount_distributed"`
	FullySatisfied    bool     `json:"fully_satisfied"`
	Payouts           []Payout `json:"payouts"`
}

// Result is the complete waterfall breakdown.
type Result struct {
	ExitAmount      int64  `json:"exit_amount"`
	TotalShares     int64  `json:"total_shares"`
	TotalPreference int64  `json:"total_preference"`
	Tiers           []Tier `json:"tiers"`
	RemainingAmount int64  `json:"remaining_amount"`
}

// PayoutsByWallet aggregates payout amounts per wallet across all tiers.
func (r *Result) PayoutsByWallet() map[string]int64 {
	out := make(map[string]int64)
	for _, tier := range r.Tiers {
		for _, p := range tier.Payouts {
			out[p.Wallet] += p.Amount
		}
	}
	return out
}

// Calculate distributes exitAmount across the given positions. Positions are
// processed in the order given; PositionsFromState produces a deterministic
// order from reconstructed state.
func Calculate(positions []Position, exitAmount int64) *Result {
	if len(positions) == 0 {
		return &Result{
			ExitAmount:      exitAmount,
			RemainingAmount: exitAmount,
		}
	}

	totalShares := int64(0)
	totalPreference := int64(0)
	for _, p := range positions {
		totalShares += p.Shares
		totalPreference += p.PreferenceAmount()
	}

	priorities, tiersMap := groupByPriority(positions)

	if totalPreference >= exitAmount {
		return seniorityWaterfall(priorities, tiersMap, exitAmount, totalShares, totalPreference)
	}
	return conversionWaterfall(priorities, tiersMap, exitAmount, totalShares, totalPreference)
}

// Scenarios runs the waterfall at several exit amounts, one result per amount.
func Scenarios(positions []Position, exitAmounts []int64) []*Result {
	out := make([]*Result, 0, len(exitAmounts))
	for _, amount := range exitAmounts {
		out = append(out, Calculate(positions, amount))
	}
	return out
}

// PositionsFromState extracts waterfall positions from reconstructed state,
// skipping empty positions and sorting by priority, wallet and class so the
// result order is deterministic.
func PositionsFromState(state *domain.TokenState) []Position {
	out := make([]Position, 0, len(state.Positions))
	for key, pos := range state.Positions {
		if pos.Shares <= 0 {
			continue
		}
		out = append(out, Position{
			Wallet:             key.Wallet,
			ShareClassID:       key.ShareClassID,
			Priority:           pos.Priority,
			Shares:             pos.Shares,
			CostBasis:          pos.CostBasis,
			PreferenceMultiple: pos.PreferenceMultiple,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		if out[i].Wallet != out[j].Wallet {
			return out[i].Wallet < out[j].Wallet
		}
		return out[i].ShareClassID < out[j].ShareClassID
	})
	return out
}

func groupByPriority(positions []Position) ([]int, map[int][]Position) {
	tiersMap := make(map[int][]Position)
	for _, p := range positions {
		tiersMap[p.Priority] = append(tiersMap[p.Priority], p)
	}
	priorities := make([]int, 0, len(tiersMap))
	for prio := range tiersMap {
		priorities = append(priorities, prio)
	}
	sort.Ints(priorities)
	return priorities, tiersMap
}

// seniorityWaterfall handles the case where preferences cover or exceed the
// exit amount: pay tiers strictly in priority order, pro-rata within the
// first tier that cannot be fully satisfied, nothing below it.
func seniorityWaterfall(priorities []int, tiersMap map[int][]Position, exitAmount, totalShares, totalPreference int64) *Result {
	remaining := exitAmount
	tiers := make([]Tier, 0, len(priorities))

	for _, prio := range priorities {
		members := tiersMap[prio]
		tierPref := int64(0)
		for _, p := range members {
			tierPref += p.PreferenceAmount()
		}

		tier := Tier{
			Priority:        prio,
			TotalPreference: tierPref,
			AmountAvailable: remaining,
			Payouts:         make([]Payout, 0, len(members)),
		}

		switch {
		case remaining <= 0:
			tier.AmountAvailable = 0
			for _, p := range members {
				tier.Payouts = append(tier.Payouts, payoutFor(p, 0, SourceNone))
			}

		case remaining >= tierPref:
			// Fully satisfied tier. Zero-preference members (common) have
			// nothing to claim here.
			for _, p := range members {
				pref := p.PreferenceAmount()
				source := SourcePreference
				if pref == 0 {
					source = SourceNone
				}
				tier.Payouts = append(tier.Payouts, payoutFor(p, pref, source))
				tier.AmountDistributed += pref
			}
			remaining -= tier.AmountDistributed
			tier.FullySatisfied = true

		default:
			// Partial tier: split what is left pro-rata by preference share.
			for _, p := range members {
				amount := remaining * p.PreferenceAmount() / tierPref
				tier.Payouts = append(tier.Payouts, payoutFor(p, amount, SourcePartialPreference))
				tier.AmountDistributed += amount
			}
			remaining -= tier.AmountDistributed
		}

		tiers = append(tiers, tier)
	}

	return &Result{
		ExitAmount:      exitAmount,
		TotalShares:     totalShares,
		TotalPreference: totalPreference,
		Tiers:           tiers,
		RemainingAmount: remaining,
	}
}

// conversionWaterfall handles the case where the exit amount exceeds total
// preferences. Each preferred position independently takes the greater of its
// preference and its as-converted pro-rata share of the full exit, with ties
// going to the preference. What is left is split pro-rata by shares among
// positions holding no preference.
func conversionWaterfall(priorities []int, tiersMap map[int][]Position, exitAmount, totalShares, totalPreference int64) *Result {
	type decision struct {
		amount int64
		source Source
	}
	decisions := make(map[int][]decision, len(tiersMap))

	distributed := int64(0)
	commonShares := int64(0)
	for _, prio := range priorities {
		members := tiersMap[prio]
		ds := make([]decision, len(members))
		for i, p := range members {
			pref := p.PreferenceAmount()
			if pref == 0 {
				commonShares += p.Shares
				ds[i] = decision{source: SourceCommon}
				continue
			}
			converted := int64(0)
			if totalShares > 0 {
				converted = exitAmount * p.Shares / totalShares
			}
			if converted > pref {
				ds[i] = decision{amount: converted, source: SourceConversion}
			} else {
				ds[i] = decision{amount: pref, source: SourcePreference}
			}
			distributed += ds[i].amount
		}
		decisions[prio] = ds
	}

	remainingForCommon := exitAmount - distributed
	for _, prio := range priorities {
		ds := decisions[prio]
		for i := range ds {
			if ds[i].source != SourceCommon || commonShares <= 0 {
				continue
			}
			ds[i].amount = remainingForCommon * tiersMap[prio][i].Shares / commonShares
			distributed += ds[i].amount
		}
	}

	tiers := make([]Tier, 0, len(priorities))
	for _, prio := range priorities {
		members := tiersMap[prio]
		tierPref := int64(0)
		tier := Tier{
			Priority:        prio,
			AmountAvailable: exitAmount,
			FullySatisfied:  true,
			Payouts:         make([]Payout, 0, len(members)),
		}
		for i, p := range members {
			tierPref += p.PreferenceAmount()
			d := decisions[prio][i]
			tier.Payouts = append(tier.Payouts, payoutFor(p, d.amount, d.source))
			tier.AmountDistributed += d.amount
		}
		tier.TotalPreference = tierPref
		tiers = append(tiers, tier)
	}

	return &Result{
		ExitAmount:      exitAmount,
		TotalShares:     totalShares,
		TotalPreference: totalPreference,
		Tiers:           tiers,
		RemainingAmount: exitAmount - distributed,
	}
}

func payoutFor(p Position, amount int64, source Source) Payout {
	return Payout{
		Wallet:             p.Wallet,
		ShareClassID:       p.ShareClassID,
		Priority:           p.Priority,
		Shares:             p.Shares,
		CostBasis:          p.CostBasis,
		PreferenceAmount:   p.PreferenceAmount(),
		PreferenceMultiple: p.PreferenceMultiple,
		Amount:             amount,
		Source:             source,
	}
}
