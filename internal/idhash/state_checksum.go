package idhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeStateChecksum computes SHA256 over a serialized TokenState.
// Returns hex-encoded hash (64 characters).
//
// encoding/json writes map keys in sorted order, so two equal states
// serialize identically and checksum equality is a cheap equivalence
// test before a field-by-field comparison.
func ComputeStateChecksum(serialized []byte) string {
	hash := sha256.Sum256(serialized)
	return hex.EncodeToString(hash[:])
}
