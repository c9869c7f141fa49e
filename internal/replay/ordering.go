package replay

import (
	"fmt"
	"sort"

	"solana-captable/internal/domain"
)

// CompareEntries returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (slot ASC, seq ASC). This is the total order of a token's ledger;
// replay must fold entries in this order and only this order.
func CompareEntries(a, b *domain.LedgerEntry) int {
	if a.Slot != b.Slot {
		if a.Slot < b.Slot {
			return -1
		}
		return 1
	}
	if a.Seq != b.Seq {
		if a.Seq < b.Seq {
			return -1
		}
		return 1
	}
	return 0
}

// SortEntries orders entries by (slot ASC, seq ASC).
func SortEntries(entries []*domain.LedgerEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return CompareEntries(entries[i], entries[j]) < 0
	})
}

// ValidateEntryOrdering verifies entries are strictly ascending by
// (slot, seq). Equal order keys mean two entries claim the same position in
// the total order, which replay cannot disambiguate deterministically.
// Returns ErrInvalidOrdering with position details on violation.
func ValidateEntryOrdering(entries []*domain.LedgerEntry) error {
	for i := 1; i < len(entries); i++ {
		if CompareEntries(entries[i-1], entries[i]) >= 0 {
			return fmt.Errorf("%w: entry %d (slot=%d seq=%d) not after entry %d (slot=%d seq=%d)",
				ErrInvalidOrdering,
				i, entries[i].Slot, entries[i].Seq,
				i-1, entries[i-1].Slot, entries[i-1].Seq)
		}
	}
	return nil
}
