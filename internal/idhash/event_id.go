package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeEventID computes a deterministic chain event id using SHA256.
// Formula: SHA256(token_id|tx_signature|event_index|slot)
// Returns hex-encoded hash (64 characters).
//
// The same program event observed twice (websocket plus backfill, or a
// restarted indexer) hashes to the same id, which is what makes the
// seen-event set an effective dedup filter.
func ComputeEventID(
	tokenID string,
	txSignature string,
	eventIndex int,
	slot int64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d",
		tokenID,
		txSignature,
		eventIndex,
		slot,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
