package solana

// Transaction is a confirmed transaction reduced to what the indexer reads:
// where it landed and what the program logged.
type Transaction struct {
	Signature   string
	Slot        int64
	BlockTime   int64 // Unix seconds, 0 if the node had no estimate
	Err         interface{}
	LogMessages []string
}

// Failed reports whether the transaction errored on chain. Failed
// transactions emit no ledger entries.
func (t *Transaction) Failed() bool {
	return t.Err != nil
}

// SignatureInfo is one item from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for
// getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // start searching backwards from this signature
	Until  string // search until this signature
	Limit  int    // maximum number of signatures to return
}

// SlotEvent is one slot progression notification from slotSubscribe.
type SlotEvent struct {
	Slot   int64
	Parent int64
	Root   int64
}
