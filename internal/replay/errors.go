package replay

import "errors"

// Replay errors. All of them abort the reconstruction that encounters them:
// skipping a bad entry would silently corrupt every later point in history.
var (
	// ErrInvalidOrdering is returned when entries are not strictly ascending
	// by (slot, seq).
	ErrInvalidOrdering = errors.New("entries are not in deterministic order")

	// ErrMalformedEntry is returned when an entry's fields or payload fail
	// structural validation.
	ErrMalformedEntry = errors.New("malformed ledger entry")

	// ErrUnknownReference is returned when an entry references an object not
	// created by an earlier entry in the same ledger. This indicates an
	// upstream recording bug, not a recoverable runtime condition.
	ErrUnknownReference = errors.New("unknown reference")

	// ErrUnknownKind is returned for entry kinds outside the closed set.
	ErrUnknownKind = errors.New("unknown entry kind")
)
