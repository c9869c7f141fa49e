package replay

import (
	"encoding/json"
	"fmt"

	"solana-captable/internal/domain"
)

// ValidateEntry performs the stateless structural checks an entry must pass
// before it is appended and again before it is folded. Stateful checks
// (unknown references, duplicate schedule ids) happen inside Fold because
// they depend on the entries folded so far.
func ValidateEntry(e *domain.LedgerEntry) error {
	if e == nil {
		return fmt.Errorf("%w: nil entry", ErrMalformedEntry)
	}
	if !e.Kind.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	if e.TokenID == "" {
		return fmt.Errorf("%w: missing token_id", ErrMalformedEntry)
	}
	if e.Slot < 0 {
		return fmt.Errorf("%w: negative slot %d", ErrMalformedEntry, e.Slot)
	}

	switch e.Kind {
	case domain.KindApproval, domain.KindRevocation:
		if e.Wallet == "" {
			return malformed(e, "missing wallet")
		}

	case domain.KindMint, domain.KindShareGrant, domain.KindInvestment, domain.KindConvertibleConvert:
		if e.Wallet == "" {
			return malformed(e, "missing wallet")
		}
		if e.Amount <= 0 {
			return malformed(e, "amount must be positive")
		}
		if e.AmountSecondary < 0 {
			return malformed(e, "negative cost basis")
		}

	case domain.KindVestingRelease:
		if e.Wallet == "" {
			return malformed(e, "missing wallet")
		}
		if e.Amount <= 0 {
			return malformed(e, "amount must be positive")
		}
		if e.ReferenceID == "" {
			return malformed(e, "missing schedule reference")
		}

	case domain.KindTransfer:
		if e.Wallet == "" || e.WalletTo == "" {
			return malformed(e, "transfer requires both wallets")
		}
		if e.Amount <= 0 {
			return malformed(e, "amount must be positive")
		}

	case domain.KindBurn:
		if e.Wallet == "" {
			return malformed(e, "missing wallet")
		}
		if e.Amount <= 0 {
			return malformed(e, "amount must be positive")
		}

	case domain.KindStockSplit:
		var p domain.SplitPayload
		if err := unmarshalPayload(e, &p); err != nil {
			return err
		}
		if p.Numerator <= 0 || p.Denominator <= 0 {
			return malformed(e, "split ratio terms must be positive")
		}

	case domain.KindPause:
		var p domain.PausePayload
		if err := unmarshalPayload(e, &p); err != nil {
			return err
		}

	case domain.KindSymbolChange:
		var p domain.SymbolChangePayload
		if err := unmarshalPayload(e, &p); err != nil {
			return err
		}
		if p.New == "" {
			return malformed(e, "missing new symbol")
		}

	case domain.KindVestingScheduleCreate:
		if e.ReferenceID == "" {
			return malformed(e, "missing schedule reference")
		}
		var p domain.VestingSchedulePayload
		if err := unmarshalPayload(e, &p); err != nil {
			return err
		}
		if p.Beneficiary == "" {
			return malformed(e, "missing beneficiary")
		}
		if p.TotalAmount <= 0 {
			return malformed(e, "schedule total must be positive")
		}
		if p.StartTime <= 0 {
			return malformed(e, "missing start time")
		}
		if p.DurationSeconds <= 0 {
			return malformed(e, "duration must be positive")
		}
		if p.CliffSeconds < 0 || p.CliffSeconds > p.DurationSeconds {
			return malformed(e, "cliff outside duration")
		}
		if p.Interval.Seconds() == 0 {
			return malformed(e, fmt.Sprintf("unknown interval unit %q", p.Interval))
		}

	case domain.KindVestingTerminate:
		if e.ReferenceID == "" {
			return malformed(e, "missing schedule reference")
		}

	case domain.KindValuationUpdate:
		var p domain.ValuationPayload
		if err := unmarshalPayload(e, &p); err != nil {
			return err
		}
		if p.Valuation <= 0 {
			return malformed(e, "valuation must be positive")
		}

	case domain.KindProposalCreate, domain.KindVote, domain.KindProposalExecute,
		domain.KindDividendRoundCreate, domain.KindDividendPayment,
		domain.KindFundingRoundCreate, domain.KindFundingRoundClose,
		domain.KindConvertibleCreate:
		// Bookkeeping kinds: the audit trail accepts whatever fields the
		// business operation captured.
		if e.Amount < 0 {
			return malformed(e, "negative amount")
		}
	}

	return nil
}

func malformed(e *domain.LedgerEntry, reason string) error {
	return fmt.Errorf("%w: %s entry at slot %d: %s", ErrMalformedEntry, e.Kind, e.Slot, reason)
}

func unmarshalPayload(e *domain.LedgerEntry, dst any) error {
	if len(e.Payload) == 0 {
		return malformed(e, "missing payload")
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("%w: %s entry at slot %d: payload: %v", ErrMalformedEntry, e.Kind, e.Slot, err)
	}
	return nil
}
