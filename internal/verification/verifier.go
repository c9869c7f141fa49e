// Package verification checks the correctness properties of the replay
// subsystem: determinism, snapshot equivalence and supply conservation. It
// is used by the replay CLI and by operational audits; a divergence here
// means a bug, never an expected runtime condition.
package verification

import (
	"fmt"
	"math"
	"sort"

	"solana-captable/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons (preference
// multiples are the only floating-point field in a TokenState).
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between two reconstructions.
type FieldDivergence struct {
	Field    string      // field name, map fields include the key
	Expected interface{} // value from the first reconstruction
	Actual   interface{} // value from the second reconstruction
}

// VerificationResult is the outcome of one verification check.
type VerificationResult struct {
	TokenID         string
	Slot            int64
	OK              bool
	Divergences     []FieldDivergence
	EntriesReplayed int64
}

// CompareTokenStates compares two reconstructed states field by field.
// Returns an empty slice when they are equivalent.
func CompareTokenStates(a, b *domain.TokenState) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	if a.TokenID != b.TokenID {
		add("TokenID", a.TokenID, b.TokenID)
	}
	if a.Slot != b.Slot {
		add("Slot", a.Slot, b.Slot)
	}
	if a.Seq != b.Seq {
		add("Seq", a.Seq, b.Seq)
	}
	if a.Symbol != b.Symbol {
		add("Symbol", a.Symbol, b.Symbol)
	}
	if a.IsPaused != b.IsPaused {
		add("IsPaused", a.IsPaused, b.IsPaused)
	}
	if a.TotalSupply != b.TotalSupply {
		add("TotalSupply", a.TotalSupply, b.TotalSupply)
	}
	if a.LastValuation != b.LastValuation {
		add("LastValuation", a.LastValuation, b.LastValuation)
	}
	if a.EntriesApplied != b.EntriesApplied {
		add("EntriesApplied", a.EntriesApplied, b.EntriesApplied)
	}

	for _, w := range sortedKeys(a.ApprovedWallets) {
		if !b.ApprovedWallets[w] {
			add("ApprovedWallets["+w+"]", true, false)
		}
	}
	for _, w := range sortedKeys(b.ApprovedWallets) {
		if !a.ApprovedWallets[w] {
			add("ApprovedWallets["+w+"]", false, true)
		}
	}

	for _, w := range sortedKeys(a.Balances) {
		if a.Balances[w] != b.Balances[w] {
			add("Balances["+w+"]", a.Balances[w], b.Balances[w])
		}
	}
	for _, w := range sortedKeys(b.Balances) {
		if _, ok := a.Balances[w]; !ok {
			add("Balances["+w+"]", int64(0), b.Balances[w])
		}
	}

	divergences = append(divergences, comparePositions(a, b)...)
	divergences = append(divergences, compareSchedules(a, b)...)
	return divergences
}

func comparePositions(a, b *domain.TokenState) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	keys := make([]domain.PositionKey, 0, len(a.Positions))
	for k := range a.Positions {
		keys = append(keys, k)
	}
	for k := range b.Positions {
		if _, ok := a.Positions[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Wallet != keys[j].Wallet {
			return keys[i].Wallet < keys[j].Wallet
		}
		return keys[i].ShareClassID < keys[j].ShareClassID
	})

	for _, k := range keys {
		name := fmt.Sprintf("Positions[%s|%s]", k.Wallet, k.ShareClassID)
		pa, pb := a.Positions[k], b.Positions[k]
		switch {
		case pa == nil:
			add(name, nil, *pb)
		case pb == nil:
			add(name, *pa, nil)
		default:
			if pa.Shares != pb.Shares {
				add(name+".Shares", pa.Shares, pb.Shares)
			}
			if pa.CostBasis != pb.CostBasis {
				add(name+".CostBasis", pa.CostBasis, pb.CostBasis)
			}
			if pa.Priority != pb.Priority {
				add(name+".Priority", pa.Priority, pb.Priority)
			}
			if !floatEquals(pa.PreferenceMultiple, pb.PreferenceMultiple) {
				add(name+".PreferenceMultiple", pa.PreferenceMultiple, pb.PreferenceMultiple)
			}
		}
	}
	return divergences
}

func compareSchedules(a, b *domain.TokenState) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	ids := sortedKeys(a.VestingSchedules)
	for _, id := range sortedKeys(b.VestingSchedules) {
		if _, ok := a.VestingSchedules[id]; !ok {
			ids = append(ids, id)
		}
	}

	for _, id := range ids {
		name := "VestingSchedules[" + id + "]"
		sa, sb := a.VestingSchedules[id], b.VestingSchedules[id]
		switch {
		case sa == nil:
			add(name, nil, *sb)
		case sb == nil:
			add(name, *sa, nil)
		default:
			if *sa != *sb {
				add(name, *sa, *sb)
			}
		}
	}
	return divergences
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
