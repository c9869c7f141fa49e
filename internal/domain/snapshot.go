package domain

// Snapshot is a cached TokenState at an order key. Snapshots only bound
// replay cost; they are never the source of truth and every one of them can
// be deleted without losing information.
// Corresponds to captable_snapshots table in PostgreSQL.
type Snapshot struct {
	ID             int64  `json:"id"`       // BIGSERIAL primary key
	TokenID        string `json:"token_id"` // ledger partition
	Slot           int64  `json:"slot"`     // order key the state was folded to
	Seq            int64  `json:"seq"`
	EntriesApplied int64  `json:"entries_applied"` // fold count at capture time
	State          []byte `json:"state"`           // JSON-encoded TokenState
	CreatedAt      int64  `json:"created_at"`      // record creation timestamp (ms)
}
