package domain

// CapTablePoint is one aggregated point of cap-table history, emitted by the
// analytics rollup after folding a slot window.
// Corresponds to captable_timeseries table in ClickHouse.
type CapTablePoint struct {
	TokenID         string // token mint address
	Slot            int64  // slot the window folded up to
	BlockTime       int64  // Unix seconds of the last entry in the window (0 if unknown)
	TotalSupply     int64  // supply as of Slot
	HolderCount     int    // wallets with non-zero balance
	ApprovedCount   int    // approved wallets
	VestingTotal    int64  // sum of schedule totals
	VestingReleased int64  // sum of released amounts
	EntriesApplied  int64  // cumulative entries folded up to Slot
}
