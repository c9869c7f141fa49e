package domain

import "encoding/json"

// ChainEvent is one program event parsed from confirmed transaction logs,
// before it is recorded as a ledger entry. (TokenID, TxSignature, EventIndex)
// identifies the event; the indexer uses it to stay idempotent across
// restarts and re-polls.
type ChainEvent struct {
	TokenID            string
	Kind               EntryKind
	Slot               int64
	BlockTime          int64 // Unix seconds
	TxSignature        string
	EventIndex         int // index of the event within the transaction's logs
	Wallet             string
	WalletTo           string
	Amount             int64
	AmountSecondary    int64
	ShareClassID       string
	Priority           int
	PreferenceMultiple float64
	PricePerShare      int64
	ReferenceID        string
	ReferenceType      string
	Payload            json.RawMessage
}
