package domain

import "encoding/json"

// EntryKind identifies the business meaning of a ledger entry.
// The set is closed: replay rejects entries with kinds it does not know.
type EntryKind string

// Entry kind constants.
const (
	KindApproval              EntryKind = "approval"
	KindRevocation            EntryKind = "revocation"
	KindMint                  EntryKind = "mint"
	KindTransfer              EntryKind = "transfer"
	KindBurn                  EntryKind = "burn"
	KindShareGrant            EntryKind = "share_grant"
	KindVestingScheduleCreate EntryKind = "vesting_schedule_create"
	KindVestingRelease        EntryKind = "vesting_release"
	KindVestingTerminate      EntryKind = "vesting_terminate"
	KindStockSplit            EntryKind = "stock_split"
	KindSymbolChange          EntryKind = "symbol_change"
	KindPause                 EntryKind = "pause"
	KindProposalCreate        EntryKind = "proposal_create"
	KindVote                  EntryKind = "vote"
	KindProposalExecute       EntryKind = "proposal_execute"
	KindDividendRoundCreate   EntryKind = "dividend_round_create"
	KindDividendPayment       EntryKind = "dividend_payment"
	KindFundingRoundCreate    EntryKind = "funding_round_create"
	KindFundingRoundClose     EntryKind = "funding_round_close"
	KindInvestment            EntryKind = "investment"
	KindConvertibleCreate     EntryKind = "convertible_create"
	KindConvertibleConvert    EntryKind = "convertible_convert"
	KindValuationUpdate       EntryKind = "valuation_update"
)

var knownKinds = map[EntryKind]bool{
	KindApproval:              true,
	KindRevocation:            true,
	KindMint:                  true,
	KindTransfer:              true,
	KindBurn:                  true,
	KindShareGrant:            true,
	KindVestingScheduleCreate: true,
	KindVestingRelease:        true,
	KindVestingTerminate:      true,
	KindStockSplit:            true,
	KindSymbolChange:          true,
	KindPause:                 true,
	KindProposalCreate:        true,
	KindVote:                  true,
	KindProposalExecute:       true,
	KindDividendRoundCreate:   true,
	KindDividendPayment:       true,
	KindFundingRoundCreate:    true,
	KindFundingRoundClose:     true,
	KindInvestment:            true,
	KindConvertibleCreate:     true,
	KindConvertibleConvert:    true,
	KindValuationUpdate:       true,
}

// Known reports whether k belongs to the closed kind set.
func (k EntryKind) Known() bool {
	return knownKinds[k]
}

// Share class terms applied when an entry carries none.
const (
	DefaultPriority           = 99
	DefaultPreferenceMultiple = 1.0
)

// LedgerEntry is one immutable record in a token's append-only ledger.
// Corresponds to ledger_entries table in PostgreSQL.
//
// Entries are totally ordered per token by (Slot, Seq) and are never
// updated or deleted; corrections are expressed as new compensating
// entries. Share class terms (Priority, PreferenceMultiple, PricePerShare)
// are captured at event time so later edits to a class never change
// historical reconstructions.
type LedgerEntry struct {
	ID                 int64           `json:"id"`                  // BIGSERIAL primary key
	TokenID            string          `json:"token_id"`            // token mint address, ledger partition
	Slot               int64           `json:"slot"`                // Solana slot, external clock
	Seq                int64           `json:"seq"`                 // intra-slot insertion sequence, assigned at append
	BlockTime          int64           `json:"block_time"`          // Unix seconds correlated with slot (0 if unknown)
	Kind               EntryKind       `json:"kind"`                // closed kind set
	Wallet             string          `json:"wallet"`              // primary wallet
	WalletTo           string          `json:"wallet_to"`           // counterparty wallet (transfers)
	Amount             int64           `json:"amount"`              // share amount in base units
	AmountSecondary    int64           `json:"amount_secondary"`    // kind-dependent, usually cost basis paid
	ShareClassID       string          `json:"share_class_id"`      // share class, captured at event time
	Priority           int             `json:"priority"`            // liquidation priority, captured at event time
	PreferenceMultiple float64         `json:"preference_multiple"` // preference multiple, captured at event time
	PricePerShare      int64           `json:"price_per_share"`     // price in quote base units, captured at event time
	ReferenceID        string          `json:"reference_id"`        // originating object id (schedule, round, proposal)
	ReferenceType      string          `json:"reference_type"`      // originating object type
	Payload            json.RawMessage `json:"payload,omitempty"`   // kind-specific structured data
	TxSignature        string          `json:"tx_signature"`        // chain signature, or synthetic offchain id
	EventIndex         int             `json:"event_index"`         // event index within the transaction
	TriggeredBy        string          `json:"triggered_by"`        // audit: who or what recorded the entry
	Notes              string          `json:"notes"`               // audit note
	CreatedAt          int64           `json:"created_at"`          // record creation timestamp (ms)
}

// MovesShares reports whether the kind mutates balances or supply when
// folded. Bookkeeping kinds (governance, dividends, funding round and
// convertible markers) are recorded for the audit trail only.
func (k EntryKind) MovesShares() bool {
	switch k {
	case KindMint, KindShareGrant, KindVestingRelease, KindInvestment,
		KindConvertibleConvert, KindTransfer, KindBurn, KindStockSplit:
		return true
	default:
		return false
	}
}
