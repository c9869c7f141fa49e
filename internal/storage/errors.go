package storage

import "errors"

// Sentinel errors shared by every store implementation. Callers branch on
// these with errors.Is; backends translate their driver errors into them.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert collides with an existing
	// key. For ledger entries this includes replays of an already-recorded
	// chain event; the ledger never updates in place.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
