package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage"
)

// LedgerEntryStore is an in-memory implementation of storage.LedgerEntryStore.
// Entries are kept sorted by (slot, seq) per token so range queries read a
// contiguous window.
type LedgerEntryStore struct {
	mu          sync.RWMutex
	nextID      int64
	byToken     map[string][]*domain.LedgerEntry
	bySignature map[string]*domain.LedgerEntry
}

// NewLedgerEntryStore creates a new in-memory ledger entry store.
func NewLedgerEntryStore() *LedgerEntryStore {
	return &LedgerEntryStore{
		nextID:      1,
		byToken:     make(map[string][]*domain.LedgerEntry),
		bySignature: make(map[string]*domain.LedgerEntry),
	}
}

// signatureKey identifies a chain event for dedup.
func signatureKey(txSignature string, eventIndex int) string {
	return fmt.Sprintf("%s|%d", txSignature, eventIndex)
}

// Append inserts one entry, assigning the next Seq within (token_id, slot).
// Returns ErrDuplicateKey if the same chain event was appended before.
func (s *LedgerEntryStore) Append(_ context.Context, e *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	if e == nil || e.TokenID == "" || e.Kind == "" {
		return nil, storage.ErrInvalidInput
	}
	if e.Slot < 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.TxSignature != "" {
		if _, exists := s.bySignature[signatureKey(e.TxSignature, e.EventIndex)]; exists {
			return nil, storage.ErrDuplicateKey
		}
	}

	entries := s.byToken[e.TokenID]
	// Insertion point: after every entry with slot <= e.Slot. Out-of-order
	// slots are tolerated; the entry still lands in (slot, seq) position.
	idx := sort.Search(len(entries), func(i int) bool { return entries[i].Slot > e.Slot })

	stored := *e
	stored.ID = s.nextID
	s.nextID++
	stored.Seq = 1
	if idx > 0 && entries[idx-1].Slot == e.Slot {
		stored.Seq = entries[idx-1].Seq + 1
	}
	if stored.CreatedAt == 0 {
		stored.CreatedAt = time.Now().UnixMilli()
	}

	entries = append(entries, nil)
	copy(entries[idx+1:], entries[idx:])
	entries[idx] = &stored
	s.byToken[e.TokenID] = entries

	if stored.TxSignature != "" {
		s.bySignature[signatureKey(stored.TxSignature, stored.EventIndex)] = &stored
	}

	out := stored
	return &out, nil
}

// GetRange retrieves entries with order key in ((fromSlot, fromSeq),
// (toSlot, toSeq)], ordered by (slot, seq) ASC. A negative fromSlot means no
// lower bound.
func (s *LedgerEntryStore) GetRange(_ context.Context, tokenID string, fromSlot, fromSeq, toSlot, toSeq int64) ([]*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerEntry
	for _, e := range s.byToken[tokenID] {
		if fromSlot >= 0 && !orderKeyAfter(e.Slot, e.Seq, fromSlot, fromSeq) {
			continue
		}
		if orderKeyAfter(e.Slot, e.Seq, toSlot, toSeq) {
			break
		}
		cp := *e
		result = append(result, &cp)
	}
	return result, nil
}

// GetByToken retrieves all entries for a token, ordered by (slot, seq) ASC.
func (s *LedgerEntryStore) GetByToken(_ context.Context, tokenID string) ([]*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.byToken[tokenID]
	result := make([]*domain.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		cp := *e
		result = append(result, &cp)
	}
	return result, nil
}

// GetBySignature retrieves the entry recorded for a chain event.
func (s *LedgerEntryStore) GetBySignature(_ context.Context, txSignature string, eventIndex int) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.bySignature[signatureKey(txSignature, eventIndex)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// GetByReference retrieves a token's entries linked to one domain object,
// ordered by (slot, seq) ASC.
func (s *LedgerEntryStore) GetByReference(_ context.Context, tokenID, referenceType, referenceID string) ([]*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerEntry
	for _, e := range s.byToken[tokenID] {
		if e.ReferenceType == referenceType && e.ReferenceID == referenceID {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

// HeadOrderKey returns the highest (slot, seq) appended for a token.
func (s *LedgerEntryStore) HeadOrderKey(_ context.Context, tokenID string) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.byToken[tokenID]
	if len(entries) == 0 {
		return 0, 0, storage.ErrNotFound
	}
	head := entries[len(entries)-1]
	return head.Slot, head.Seq, nil
}

// CountByToken returns the number of entries in a token's ledger.
func (s *LedgerEntryStore) CountByToken(_ context.Context, tokenID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.byToken[tokenID])), nil
}

// orderKeyAfter reports whether (slot, seq) > (afterSlot, afterSeq).
func orderKeyAfter(slot, seq, afterSlot, afterSeq int64) bool {
	if slot != afterSlot {
		return slot > afterSlot
	}
	return seq > afterSeq
}

var _ storage.LedgerEntryStore = (*LedgerEntryStore)(nil)
