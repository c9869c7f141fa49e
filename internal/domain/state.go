package domain

import (
	"fmt"
	"strings"
)

// PositionKey identifies a holding of one wallet in one share class.
type PositionKey struct {
	Wallet       string
	ShareClassID string
}

// MarshalText encodes the key as "wallet|class" so it can serve as a JSON
// map key inside snapshot payloads.
func (k PositionKey) MarshalText() ([]byte, error) {
	return []byte(k.Wallet + "|" + k.ShareClassID), nil
}

// UnmarshalText decodes a "wallet|class" key.
func (k *PositionKey) UnmarshalText(text []byte) error {
	parts := strings.SplitN(string(text), "|", 2)
	if len(parts) != 2 || parts[0] == "" {
		return fmt.Errorf("malformed position key %q", string(text))
	}
	k.Wallet = parts[0]
	k.ShareClassID = parts[1]
	return nil
}

// Position is a wallet's holding in one share class, with the class terms
// that were in force when the shares were issued.
type Position struct {
	Shares             int64   `json:"shares"`
	CostBasis          int64   `json:"cost_basis"`          // quote base units paid in
	Priority           int     `json:"priority"`            // captured at issuance
	PreferenceMultiple float64 `json:"preference_multiple"` // captured at issuance
}

// VestingScheduleState is the replayed state of one vesting schedule.
// Parameters come from the vesting_schedule_create payload; ReleasedAmount
// is accumulated purely from vesting_release entries.
type VestingScheduleState struct {
	ScheduleID      string       `json:"schedule_id"`
	Beneficiary     string       `json:"beneficiary"`
	TotalAmount     int64        `json:"total_amount"`
	ReleasedAmount  int64        `json:"released_amount"`
	StartTime       int64        `json:"start_time"`
	CliffSeconds    int64        `json:"cliff_seconds"`
	DurationSeconds int64        `json:"duration_seconds"`
	Interval        IntervalUnit `json:"interval"`
	Terminated      bool         `json:"terminated"`
}

// TokenState is the materialized result of folding a token's ledger up to
// some order key. It is derived, ephemeral and rebuildable; nothing in it
// is authoritative beyond the entries it was folded from.
type TokenState struct {
	TokenID          string                           `json:"token_id"`
	Slot             int64                            `json:"slot"` // order key the state is as of
	Seq              int64                            `json:"seq"`
	Symbol           string                           `json:"symbol"`
	IsPaused         bool                             `json:"is_paused"`
	TotalSupply      int64                            `json:"total_supply"`
	LastValuation    int64                            `json:"last_valuation"`
	EntriesApplied   int64                            `json:"entries_applied"`
	ApprovedWallets  map[string]bool                  `json:"approved_wallets"`
	Balances         map[string]int64                 `json:"balances"`
	Positions        map[PositionKey]*Position        `json:"positions"`
	VestingSchedules map[string]*VestingScheduleState `json:"vesting_schedules"`
}

// NewTokenState returns an empty state for a token, ready to fold from the
// beginning of its ledger.
func NewTokenState(tokenID string) *TokenState {
	return &TokenState{
		TokenID:          tokenID,
		ApprovedWallets:  make(map[string]bool),
		Balances:         make(map[string]int64),
		Positions:        make(map[PositionKey]*Position),
		VestingSchedules: make(map[string]*VestingScheduleState),
	}
}

// Clone returns a deep copy. Snapshot decode paths and verification fold
// into copies so callers can never alias shared maps.
func (s *TokenState) Clone() *TokenState {
	c := &TokenState{
		TokenID:          s.TokenID,
		Slot:             s.Slot,
		Seq:              s.Seq,
		Symbol:           s.Symbol,
		IsPaused:         s.IsPaused,
		TotalSupply:      s.TotalSupply,
		LastValuation:    s.LastValuation,
		EntriesApplied:   s.EntriesApplied,
		ApprovedWallets:  make(map[string]bool, len(s.ApprovedWallets)),
		Balances:         make(map[string]int64, len(s.Balances)),
		Positions:        make(map[PositionKey]*Position, len(s.Positions)),
		VestingSchedules: make(map[string]*VestingScheduleState, len(s.VestingSchedules)),
	}
	for w, ok := range s.ApprovedWallets {
		c.ApprovedWallets[w] = ok
	}
	for w, bal := range s.Balances {
		c.Balances[w] = bal
	}
	for k, p := range s.Positions {
		cp := *p
		c.Positions[k] = &cp
	}
	for id, v := range s.VestingSchedules {
		cv := *v
		c.VestingSchedules[id] = &cv
	}
	return c
}

// BalancesTotal sums all wallet balances. The conservation invariant
// requires it to equal TotalSupply after every fold step.
func (s *TokenState) BalancesTotal() int64 {
	var total int64
	for _, bal := range s.Balances {
		total += bal
	}
	return total
}

// HolderCount counts wallets with a non-zero balance.
func (s *TokenState) HolderCount() int {
	n := 0
	for _, bal := range s.Balances {
		if bal != 0 {
			n++
		}
	}
	return n
}

// VestingTotals sums TotalAmount and ReleasedAmount across all schedules.
func (s *TokenState) VestingTotals() (total, released int64) {
	for _, v := range s.VestingSchedules {
		total += v.TotalAmount
		released += v.ReleasedAmount
	}
	return total, released
}
