package domain

// Token represents a tracked tokenized security.
// Corresponds to tokens table in PostgreSQL.
type Token struct {
	TokenID     string `json:"token_id"` // mint address, primary key
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Authority   string `json:"authority"`    // issuer authority wallet
	CreatedSlot int64  `json:"created_slot"` // slot the mint was initialized at
	CreatedAt   int64  `json:"created_at"`   // record creation timestamp (ms)
}

// ShareClass holds the current terms of an equity class for display and for
// capture into new entries. Replay never reads this registry; reconstructions
// use the terms captured on each entry.
// Corresponds to share_classes table in PostgreSQL.
type ShareClass struct {
	ClassID            string  `json:"class_id"` // primary key
	TokenID            string  `json:"token_id"`
	Name               string  `json:"name"`   // display name, e.g. "Series A Preferred"
	Symbol             string  `json:"symbol"` // short code, e.g. "SER-A"
	Priority           int     `json:"priority"`
	PreferenceMultiple float64 `json:"preference_multiple"`
	VotesPerShare      int64   `json:"votes_per_share"`
	Convertible        bool    `json:"convertible"`
	CreatedAt          int64   `json:"created_at"` // record creation timestamp (ms)
}
