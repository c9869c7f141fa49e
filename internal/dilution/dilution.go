// Package dilution projects ownership and value changes from hypothetical
// funding rounds. It is a pure what-if calculation: nothing here reads or
// writes the ledger.
package dilution

import (
	"sort"

	"github.com/shopspring/decimal"

	"solana-captable/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Holder is an existing shareholder entering the simulation.
type Holder struct {
	Wallet       string          `json:"wallet"`
	Shares       int64           `json:"shares"`
	OwnershipPct decimal.Decimal `json:"ownership_pct"`
}

// Round is a hypothetical funding round.
type Round struct {
	Name              string `json:"name"`
	PreMoneyValuation int64  `json:"pre_money_valuation"`
	AmountRaised      int64  `json:"amount_raised"`
}

// PostMoneyValuation is pre-money plus the amount raised.
func (r Round) PostMoneyValuation() int64 {
	return r.PreMoneyValuation + r.AmountRaised
}

// DilutedHolder is an existing holder's position after all rounds. Share
// counts do not change for existing holders; only their slice of the total
// shrinks.
type DilutedHolder struct {
	Wallet          string          `json:"wallet"`
	SharesBefore    int64           `json:"shares_before"`
	SharesAfter     int64           `json:"shares_after"`
	OwnershipBefore decimal.Decimal `json:"ownership_before"`
	OwnershipAfter  decimal.Decimal `json:"ownership_after"`
	DilutionPct     decimal.Decimal `json:"dilution_pct"`
	ValueBefore     int64           `json:"value_before"`
	ValueAfter      int64           `json:"value_after"`
}

// NewInvestor is the position a simulated round's investor ends up with.
type NewInvestor struct {
	RoundName      string          `json:"round_name"`
	AmountInvested int64           `json:"amount_invested"`
	SharesReceived int64           `json:"shares_received"`
	OwnershipPct   decimal.Decimal `json:"ownership_pct"`
	PricePerShare  int64           `json:"price_per_share"`
}

// Result is the complete before and after comparison.
type Result struct {
	Rounds              []Round         `json:"rounds"`
	SharesBefore        int64           `json:"shares_before"`
	ValuationBefore     int64           `json:"valuation_before"`
	PricePerShareBefore int64           `json:"price_per_share_before"`
	SharesAfter         int64           `json:"shares_after"`
	ValuationAfter      int64           `json:"valuation_after"`
	PricePerShareAfter  int64           `json:"price_per_share_after"`
	ExistingHolders     []DilutedHolder `json:"existing_holders"`
	NewInvestors        []NewInvestor   `json:"new_investors"`
}

// OwnershipPct returns shares as a percentage of total, rounded to four
// decimal places with banker's rounding. Zero when total is zero.
func OwnershipPct(shares, total int64) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(shares).Mul(hundred).
		Div(decimal.NewFromInt(total)).
		RoundBank(4)
}

// Calculate runs the given rounds sequentially against the current holders.
// Each round prices its shares off the pre-money valuation and the share
// count accumulated so far, with a minimum price of one unit so a zero or
// tiny valuation never divides by zero.
func Calculate(holders []Holder, currentValuation int64, rounds []Round) *Result {
	if len(holders) == 0 {
		return &Result{
			Rounds:          rounds,
			ValuationBefore: currentValuation,
			ValuationAfter:  currentValuation,
			ExistingHolders: []DilutedHolder{},
			NewInvestors:    []NewInvestor{},
		}
	}

	sharesBefore := int64(0)
	for _, h := range holders {
		sharesBefore += h.Shares
	}
	ppsBefore := int64(0)
	if sharesBefore > 0 {
		ppsBefore = currentValuation / sharesBefore
	}

	totalShares := sharesBefore
	runningValuation := currentValuation
	newInvestors := make([]NewInvestor, 0, len(rounds))

	for _, round := range rounds {
		pps := int64(1)
		if totalShares > 0 {
			pps = round.PreMoneyValuation / totalShares
		}
		if pps <= 0 {
			pps = 1
		}

		newShares := round.AmountRaised / pps
		totalShares += newShares
		runningValuation = round.PostMoneyValuation()

		newInvestors = append(newInvestors, NewInvestor{
			RoundName:      round.Name,
			AmountInvested: round.AmountRaised,
			SharesReceived: newShares,
			OwnershipPct:   OwnershipPct(newShares, totalShares),
			PricePerShare:  pps,
		})
	}

	ppsAfter := int64(0)
	if totalShares > 0 {
		ppsAfter = runningValuation / totalShares
	}

	diluted := make([]DilutedHolder, 0, len(holders))
	for _, h := range holders {
		after := OwnershipPct(h.Shares, totalShares)
		diluted = append(diluted, DilutedHolder{
			Wallet:          h.Wallet,
			SharesBefore:    h.Shares,
			SharesAfter:     h.Shares,
			OwnershipBefore: h.OwnershipPct,
			OwnershipAfter:  after,
			DilutionPct:     h.OwnershipPct.Sub(after).RoundBank(4),
			ValueBefore:     h.Shares * ppsBefore,
			ValueAfter:      h.Shares * ppsAfter,
		})
	}

	return &Result{
		Rounds:              rounds,
		SharesBefore:        sharesBefore,
		ValuationBefore:     currentValuation,
		PricePerShareBefore: ppsBefore,
		SharesAfter:         totalShares,
		ValuationAfter:      runningValuation,
		PricePerShareAfter:  ppsAfter,
		ExistingHolders:     diluted,
		NewInvestors:        newInvestors,
	}
}

// HoldersFromState builds the holder list from reconstructed balances,
// sorted by wallet for deterministic output. Zero balances are skipped.
func HoldersFromState(state *domain.TokenState) []Holder {
	out := make([]Holder, 0, len(state.Balances))
	for wallet, shares := range state.Balances {
		if shares <= 0 {
			continue
		}
		out = append(out, Holder{
			Wallet:       wallet,
			Shares:       shares,
			OwnershipPct: OwnershipPct(shares, state.TotalSupply),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Wallet < out[j].Wallet })
	return out
}
