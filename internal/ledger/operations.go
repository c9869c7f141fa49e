package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"solana-captable/internal/domain"
)

// Convenience wrappers building RecordRequests for each business operation.
// They all go through Record, so validation, locking, metrics and broadcast
// apply uniformly.

// ClassTerms are the share class terms captured into an issuance entry.
type ClassTerms struct {
	ShareClassID       string
	Priority           int
	PreferenceMultiple float64
	PricePerShare      int64
}

// CommonTerms returns the default terms for untiered common stock.
func CommonTerms(classID string) ClassTerms {
	return ClassTerms{
		ShareClassID:       classID,
		Priority:           domain.DefaultPriority,
		PreferenceMultiple: domain.DefaultPreferenceMultiple,
	}
}

// RecordApproval records a wallet approval.
func (r *Recorder) RecordApproval(ctx context.Context, tokenID string, slot int64, wallet, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindApproval, Slot: slot,
		Wallet: wallet, TriggeredBy: triggeredBy,
	})
}

// RecordRevocation records a wallet revocation.
func (r *Recorder) RecordRevocation(ctx context.Context, tokenID string, slot int64, wallet, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindRevocation, Slot: slot,
		Wallet: wallet, TriggeredBy: triggeredBy,
	})
}

// RecordMint records newly minted shares credited to a wallet.
func (r *Recorder) RecordMint(ctx context.Context, tokenID string, slot int64, wallet string, amount int64, terms ClassTerms, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindMint, Slot: slot,
		Wallet: wallet, Amount: amount,
		ShareClassID: terms.ShareClassID, Priority: terms.Priority,
		PreferenceMultiple: terms.PreferenceMultiple, PricePerShare: terms.PricePerShare,
		TriggeredBy: triggeredBy,
	})
}

// RecordShareGrant records a share grant with its paid-in cost basis.
func (r *Recorder) RecordShareGrant(ctx context.Context, tokenID string, slot int64, wallet string, amount, costBasis int64, terms ClassTerms, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindShareGrant, Slot: slot,
		Wallet: wallet, Amount: amount, AmountSecondary: costBasis,
		ShareClassID: terms.ShareClassID, Priority: terms.Priority,
		PreferenceMultiple: terms.PreferenceMultiple, PricePerShare: terms.PricePerShare,
		TriggeredBy: triggeredBy,
	})
}

// RecordTransfer records a share transfer between wallets.
func (r *Recorder) RecordTransfer(ctx context.Context, tokenID string, slot int64, from, to string, amount int64, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindTransfer, Slot: slot,
		Wallet: from, WalletTo: to, Amount: amount, TriggeredBy: triggeredBy,
	})
}

// RecordBurn records burned shares.
func (r *Recorder) RecordBurn(ctx context.Context, tokenID string, slot int64, wallet string, amount int64, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindBurn, Slot: slot,
		Wallet: wallet, Amount: amount, TriggeredBy: triggeredBy,
	})
}

// RecordVestingScheduleCreate records the creation of a vesting schedule.
// The payload fixes the schedule parameters for all later reconstructions.
func (r *Recorder) RecordVestingScheduleCreate(ctx context.Context, tokenID string, slot int64, scheduleID string, p domain.VestingSchedulePayload, triggeredBy string) (*domain.LedgerEntry, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal schedule payload: %w", err)
	}
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindVestingScheduleCreate, Slot: slot,
		Wallet:      p.Beneficiary,
		ReferenceID: scheduleID, ReferenceType: domain.RefTypeVestingSchedule,
		Payload: payload, TriggeredBy: triggeredBy,
	})
}

// RecordVestingRelease records newly vested shares released to the
// beneficiary. The entry amount is the single source of truth for the
// schedule's released total; the payload totals are audit data.
func (r *Recorder) RecordVestingRelease(ctx context.Context, tokenID string, slot int64, scheduleID, beneficiary string, amount int64, terms ClassTerms, p domain.VestingReleasePayload, triggeredBy string) (*domain.LedgerEntry, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal release payload: %w", err)
	}
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindVestingRelease, Slot: slot,
		Wallet: beneficiary, Amount: amount,
		ShareClassID: terms.ShareClassID, Priority: terms.Priority,
		PreferenceMultiple: terms.PreferenceMultiple, PricePerShare: terms.PricePerShare,
		ReferenceID: scheduleID, ReferenceType: domain.RefTypeVestingSchedule,
		Payload: payload, TriggeredBy: triggeredBy,
	})
}

// RecordVestingTerminate records a schedule termination. It moves no shares;
// acceleration or forfeiture is recorded separately before this entry.
func (r *Recorder) RecordVestingTerminate(ctx context.Context, tokenID string, slot int64, scheduleID, triggeredBy, notes string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindVestingTerminate, Slot: slot,
		ReferenceID: scheduleID, ReferenceType: domain.RefTypeVestingSchedule,
		TriggeredBy: triggeredBy, Notes: notes,
	})
}

// RecordStockSplit records a stock split with the given ratio.
func (r *Recorder) RecordStockSplit(ctx context.Context, tokenID string, slot, numerator, denominator int64, triggeredBy string) (*domain.LedgerEntry, error) {
	payload, err := json.Marshal(domain.SplitPayload{Numerator: numerator, Denominator: denominator})
	if err != nil {
		return nil, fmt.Errorf("marshal split payload: %w", err)
	}
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindStockSplit, Slot: slot,
		Payload: payload, TriggeredBy: triggeredBy,
	})
}

// RecordPause records a pause or unpause of transfers.
func (r *Recorder) RecordPause(ctx context.Context, tokenID string, slot int64, paused bool, triggeredBy string) (*domain.LedgerEntry, error) {
	payload, err := json.Marshal(domain.PausePayload{Paused: paused})
	if err != nil {
		return nil, fmt.Errorf("marshal pause payload: %w", err)
	}
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindPause, Slot: slot,
		Payload: payload, TriggeredBy: triggeredBy,
	})
}

// RecordSymbolChange records a token symbol change.
func (r *Recorder) RecordSymbolChange(ctx context.Context, tokenID string, slot int64, oldSymbol, newSymbol, triggeredBy string) (*domain.LedgerEntry, error) {
	payload, err := json.Marshal(domain.SymbolChangePayload{Old: oldSymbol, New: newSymbol})
	if err != nil {
		return nil, fmt.Errorf("marshal symbol payload: %w", err)
	}
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindSymbolChange, Slot: slot,
		Payload: payload, TriggeredBy: triggeredBy,
	})
}

// RecordValuationUpdate records a company valuation mark.
func (r *Recorder) RecordValuationUpdate(ctx context.Context, tokenID string, slot, valuation int64, method, triggeredBy string) (*domain.LedgerEntry, error) {
	payload, err := json.Marshal(domain.ValuationPayload{Valuation: valuation, Method: method})
	if err != nil {
		return nil, fmt.Errorf("marshal valuation payload: %w", err)
	}
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindValuationUpdate, Slot: slot,
		Payload: payload, TriggeredBy: triggeredBy,
	})
}

// RecordProposalCreate records the creation of a governance proposal.
func (r *Recorder) RecordProposalCreate(ctx context.Context, tokenID string, slot int64, proposalID, proposer, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindProposalCreate, Slot: slot,
		Wallet:      proposer,
		ReferenceID: proposalID, ReferenceType: domain.RefTypeProposal,
		TriggeredBy: triggeredBy,
	})
}

// RecordVote records a vote on a proposal; amount carries the voting weight.
func (r *Recorder) RecordVote(ctx context.Context, tokenID string, slot int64, proposalID, voter string, weight int64, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindVote, Slot: slot,
		Wallet: voter, Amount: weight,
		ReferenceID: proposalID, ReferenceType: domain.RefTypeProposal,
		TriggeredBy: triggeredBy,
	})
}

// RecordProposalExecute records the execution of a passed proposal.
func (r *Recorder) RecordProposalExecute(ctx context.Context, tokenID string, slot int64, proposalID, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindProposalExecute, Slot: slot,
		ReferenceID: proposalID, ReferenceType: domain.RefTypeProposal,
		TriggeredBy: triggeredBy,
	})
}

// RecordDividendRoundCreate records the declaration of a dividend round;
// amount carries the total declared.
func (r *Recorder) RecordDividendRoundCreate(ctx context.Context, tokenID string, slot int64, roundID string, total int64, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindDividendRoundCreate, Slot: slot,
		Amount:      total,
		ReferenceID: roundID, ReferenceType: domain.RefTypeDividendRound,
		TriggeredBy: triggeredBy,
	})
}

// RecordDividendPayment records one holder's dividend payment. Dividends are
// paid in the quote currency and move no shares.
func (r *Recorder) RecordDividendPayment(ctx context.Context, tokenID string, slot int64, roundID, wallet string, amount int64, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindDividendPayment, Slot: slot,
		Wallet: wallet, Amount: amount,
		ReferenceID: roundID, ReferenceType: domain.RefTypeDividendRound,
		TriggeredBy: triggeredBy,
	})
}

// RecordFundingRoundCreate records the opening of a funding round; amount
// carries the target raise.
func (r *Recorder) RecordFundingRoundCreate(ctx context.Context, tokenID string, slot int64, roundID string, target int64, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindFundingRoundCreate, Slot: slot,
		Amount:      target,
		ReferenceID: roundID, ReferenceType: domain.RefTypeFundingRound,
		TriggeredBy: triggeredBy,
	})
}

// Investment is one accepted investment closed into a funding round.
type Investment struct {
	Wallet     string
	Shares     int64
	AmountPaid int64
	Terms      ClassTerms
}

// RecordInvestment records one investment crediting shares to the investor.
func (r *Recorder) RecordInvestment(ctx context.Context, tokenID string, slot int64, roundID string, inv Investment, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindInvestment, Slot: slot,
		Wallet: inv.Wallet, Amount: inv.Shares, AmountSecondary: inv.AmountPaid,
		ShareClassID: inv.Terms.ShareClassID, Priority: inv.Terms.Priority,
		PreferenceMultiple: inv.Terms.PreferenceMultiple, PricePerShare: inv.Terms.PricePerShare,
		ReferenceID: roundID, ReferenceType: domain.RefTypeFundingRound,
		TriggeredBy: triggeredBy,
	})
}

// RecordFundingRoundClose records the close of a funding round: one
// bookkeeping entry followed by one investment entry per accepted
// investment, all at the same slot. Share movement happens only through the
// investment entries.
func (r *Recorder) RecordFundingRoundClose(ctx context.Context, tokenID string, slot int64, roundID string, investments []Investment, triggeredBy string) ([]*domain.LedgerEntry, error) {
	closing, err := r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindFundingRoundClose, Slot: slot,
		ReferenceID: roundID, ReferenceType: domain.RefTypeFundingRound,
		TriggeredBy: triggeredBy,
	})
	if err != nil {
		return nil, err
	}

	recorded := []*domain.LedgerEntry{closing}
	for _, inv := range investments {
		e, err := r.RecordInvestment(ctx, tokenID, slot, roundID, inv, triggeredBy)
		if err != nil {
			return recorded, fmt.Errorf("record investment for %s: %w", inv.Wallet, err)
		}
		recorded = append(recorded, e)
	}
	return recorded, nil
}

// RecordConvertibleCreate records the issue of a convertible note; amount
// carries the principal.
func (r *Recorder) RecordConvertibleCreate(ctx context.Context, tokenID string, slot int64, noteID, holder string, principal int64, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindConvertibleCreate, Slot: slot,
		Wallet: holder, Amount: principal,
		ReferenceID: noteID, ReferenceType: domain.RefTypeConvertible,
		TriggeredBy: triggeredBy,
	})
}

// RecordConvertibleConvert records a note conversion crediting shares to the
// holder; the converted principal becomes the position's cost basis.
func (r *Recorder) RecordConvertibleConvert(ctx context.Context, tokenID string, slot int64, noteID, holder string, shares, principal int64, terms ClassTerms, triggeredBy string) (*domain.LedgerEntry, error) {
	return r.Record(ctx, RecordRequest{
		TokenID: tokenID, Kind: domain.KindConvertibleConvert, Slot: slot,
		Wallet: holder, Amount: shares, AmountSecondary: principal,
		ShareClassID: terms.ShareClassID, Priority: terms.Priority,
		PreferenceMultiple: terms.PreferenceMultiple, PricePerShare: terms.PricePerShare,
		ReferenceID: noteID, ReferenceType: domain.RefTypeConvertible,
		TriggeredBy: triggeredBy,
	})
}
