package replay

import (
	"encoding/json"
	"fmt"

	"solana-captable/internal/domain"
)

// Fold applies one entry to state in place. Entries must be folded in
// (slot, seq) order; Fold itself trusts the caller on ordering and updates
// the state's order key from the entry.
//
// Folding the same sequence into an empty state is deterministic: the
// resulting state depends only on the entries, never on wall time, map
// iteration or prior failed attempts (a failed Fold leaves state unusable
// and the caller must discard it).
func Fold(state *domain.TokenState, e *domain.LedgerEntry) error {
	if err := ValidateEntry(e); err != nil {
		return err
	}

	switch e.Kind {
	case domain.KindApproval:
		state.ApprovedWallets[e.Wallet] = true

	case domain.KindRevocation:
		delete(state.ApprovedWallets, e.Wallet)

	case domain.KindMint, domain.KindShareGrant, domain.KindInvestment, domain.KindConvertibleConvert:
		applyIssuance(state, e)

	case domain.KindVestingRelease:
		sched, ok := state.VestingSchedules[e.ReferenceID]
		if !ok {
			return fmt.Errorf("%w: vesting schedule %q at slot %d", ErrUnknownReference, e.ReferenceID, e.Slot)
		}
		applyIssuance(state, e)
		// The release entry is the single source of truth for the
		// schedule's running total; payload totals are audit data only.
		sched.ReleasedAmount += e.Amount

	case domain.KindTransfer:
		state.Balances[e.Wallet] -= e.Amount
		state.Balances[e.WalletTo] += e.Amount

	case domain.KindBurn:
		state.Balances[e.Wallet] -= e.Amount
		state.TotalSupply -= e.Amount

	case domain.KindStockSplit:
		if err := applyStockSplit(state, e); err != nil {
			return err
		}

	case domain.KindPause:
		var p domain.PausePayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return fmt.Errorf("%w: pause payload at slot %d: %v", ErrMalformedEntry, e.Slot, err)
		}
		state.IsPaused = p.Paused

	case domain.KindSymbolChange:
		var p domain.SymbolChangePayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return fmt.Errorf("%w: symbol payload at slot %d: %v", ErrMalformedEntry, e.Slot, err)
		}
		state.Symbol = p.New

	case domain.KindVestingScheduleCreate:
		if _, exists := state.VestingSchedules[e.ReferenceID]; exists {
			return fmt.Errorf("%w: duplicate vesting schedule %q at slot %d", ErrMalformedEntry, e.ReferenceID, e.Slot)
		}
		var p domain.VestingSchedulePayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return fmt.Errorf("%w: schedule payload at slot %d: %v", ErrMalformedEntry, e.Slot, err)
		}
		state.VestingSchedules[e.ReferenceID] = &domain.VestingScheduleState{
			ScheduleID:      e.ReferenceID,
			Beneficiary:     p.Beneficiary,
			TotalAmount:     p.TotalAmount,
			ReleasedAmount:  0,
			StartTime:       p.StartTime,
			CliffSeconds:    p.CliffSeconds,
			DurationSeconds: p.DurationSeconds,
			Interval:        p.Interval,
		}

	case domain.KindVestingTerminate:
		sched, ok := state.VestingSchedules[e.ReferenceID]
		if !ok {
			return fmt.Errorf("%w: vesting schedule %q at slot %d", ErrUnknownReference, e.ReferenceID, e.Slot)
		}
		// Terminating moves no shares. Acceleration or forfeiture is
		// expressed by separate entries recorded before this one.
		sched.Terminated = true

	case domain.KindValuationUpdate:
		var p domain.ValuationPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return fmt.Errorf("%w: valuation payload at slot %d: %v", ErrMalformedEntry, e.Slot, err)
		}
		state.LastValuation = p.Valuation

	case domain.KindProposalCreate, domain.KindVote, domain.KindProposalExecute,
		domain.KindDividendRoundCreate, domain.KindDividendPayment,
		domain.KindFundingRoundCreate, domain.KindFundingRoundClose,
		domain.KindConvertibleCreate:
		// Audit-trail bookkeeping. Share movement from these operations
		// arrives as explicit companion entries (a funding round close is
		// followed by one investment entry per accepted investment).

	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}

	state.Slot = e.Slot
	state.Seq = e.Seq
	state.EntriesApplied++
	return nil
}

// Replay folds an ordered entry slice into state, validating the ordering
// first. It fails fast on the first bad entry; the caller must discard the
// state on error.
func Replay(state *domain.TokenState, entries []*domain.LedgerEntry) error {
	if err := ValidateEntryOrdering(entries); err != nil {
		return err
	}
	for _, e := range entries {
		if err := Fold(state, e); err != nil {
			return err
		}
	}
	return nil
}

// applyIssuance credits shares to a (wallet, class) position and to the
// wallet balance and supply. Class terms are captured from the first entry
// that creates the position; later entries never rewrite them, mirroring the
// capture-at-issuance rule.
func applyIssuance(state *domain.TokenState, e *domain.LedgerEntry) {
	key := domain.PositionKey{Wallet: e.Wallet, ShareClassID: e.ShareClassID}
	pos, ok := state.Positions[key]
	if !ok {
		pos = &domain.Position{
			Priority:           e.Priority,
			PreferenceMultiple: e.PreferenceMultiple,
		}
		state.Positions[key] = pos
	}
	pos.Shares += e.Amount
	pos.CostBasis += e.AmountSecondary
	state.Balances[e.Wallet] += e.Amount
	state.TotalSupply += e.Amount
}

// applyStockSplit rescales every share quantity by numerator/denominator
// using one fixed rounding rule, integer division truncating toward zero,
// applied uniformly so no holder rounds differently from another. Cost basis
// is money already paid in and is not rescaled. TotalSupply is recomputed
// from the scaled balances so conservation holds exactly even when a reverse
// split truncates individual balances.
func applyStockSplit(state *domain.TokenState, e *domain.LedgerEntry) error {
	var p domain.SplitPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return fmt.Errorf("%w: split payload at slot %d: %v", ErrMalformedEntry, e.Slot, err)
	}
	if p.Numerator <= 0 || p.Denominator <= 0 {
		return fmt.Errorf("%w: split ratio %d:%d at slot %d", ErrMalformedEntry, p.Numerator, p.Denominator, e.Slot)
	}

	var supply int64
	for w, bal := range state.Balances {
		scaled := splitScale(bal, p.Numerator, p.Denominator)
		state.Balances[w] = scaled
		supply += scaled
	}
	for _, pos := range state.Positions {
		pos.Shares = splitScale(pos.Shares, p.Numerator, p.Denominator)
	}
	for _, v := range state.VestingSchedules {
		v.TotalAmount = splitScale(v.TotalAmount, p.Numerator, p.Denominator)
		v.ReleasedAmount = splitScale(v.ReleasedAmount, p.Numerator, p.Denominator)
	}
	state.TotalSupply = supply
	return nil
}

func splitScale(x, num, den int64) int64 {
	return x * num / den
}
