// Package ledger implements the append path of the unified transaction
// ledger. The Recorder turns validated business operations into immutable
// entries; it never updates or deletes what it has written, and corrections
// are always expressed as new compensating entries.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"solana-captable/internal/broadcast"
	"solana-captable/internal/domain"
	"solana-captable/internal/observability"
	"solana-captable/internal/replay"
	"solana-captable/internal/statecache"
	"solana-captable/internal/storage"
)

// RecordRequest carries everything needed to append one ledger entry. Slot is
// the external clock value and is always supplied by the caller; the recorder
// has no ambient clock of its own.
type RecordRequest struct {
	TokenID   string
	Kind      domain.EntryKind
	Slot      int64
	BlockTime int64

	Wallet   string
	WalletTo string

	Amount          int64
	AmountSecondary int64

	// Share class terms captured into the entry at event time.
	ShareClassID       string
	Priority           int
	PreferenceMultiple float64
	PricePerShare      int64

	ReferenceID   string
	ReferenceType string

	// Payload is marshalled from the typed payload structs in domain.
	Payload json.RawMessage

	// TxSignature and EventIndex identify the chain event for indexed
	// entries. Off-chain operations leave TxSignature empty and receive a
	// synthetic offchain:<uuid> signature.
	TxSignature string
	EventIndex  int

	TriggeredBy string
	Notes       string
}

// Recorder appends entries to the ledger. The append path is serialized per
// token so concurrent writers cannot race on intra-slot sequence assignment;
// appends to different tokens proceed concurrently.
type Recorder struct {
	store     storage.LedgerEntryStore
	publisher broadcast.Publisher
	cache     statecache.Cache
	logger    *zap.Logger

	// tokenLocks holds one append mutex per token id.
	tokenLocks *xsync.Map[string, *sync.Mutex]
}

// RecorderOptions contains configuration for creating a Recorder.
type RecorderOptions struct {
	Store storage.LedgerEntryStore
	// Publisher receives each appended entry best-effort; nil disables
	// broadcasting.
	Publisher broadcast.Publisher
	// Cache is invalidated per token after each append; nil disables it.
	Cache  statecache.Cache
	Logger *zap.Logger
}

// NewRecorder creates a new Recorder.
func NewRecorder(opts RecorderOptions) *Recorder {
	if opts.Publisher == nil {
		opts.Publisher = broadcast.Noop{}
	}
	if opts.Cache == nil {
		opts.Cache = statecache.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Recorder{
		store:      opts.Store,
		publisher:  opts.Publisher,
		cache:      opts.Cache,
		logger:     opts.Logger,
		tokenLocks: xsync.NewMap[string, *sync.Mutex](),
	}
}

// Record validates the request and appends exactly one entry. It returns the
// stored entry with its assigned (slot, seq) order key. A request replaying
// an already-recorded chain event fails with storage.ErrDuplicateKey and
// writes nothing.
func (r *Recorder) Record(ctx context.Context, req RecordRequest) (*domain.LedgerEntry, error) {
	entry := r.buildEntry(req)

	if err := replay.ValidateEntry(entry); err != nil {
		observability.RecordValidationFailure(string(req.Kind))
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	lock, _ := r.tokenLocks.LoadOrStore(req.TokenID, &sync.Mutex{})
	lock.Lock()
	defer lock.Unlock()

	r.warnOnSlotRegression(ctx, entry)

	stored, err := r.store.Append(ctx, entry)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordDuplicateRejected()
		}
		return nil, fmt.Errorf("append %s entry for %s: %w", req.Kind, req.TokenID, err)
	}

	observability.RecordEntryRecorded(string(stored.Kind), stored.Slot)
	r.logger.Info("ledger entry recorded",
		zap.String("token", stored.TokenID),
		zap.String("kind", string(stored.Kind)),
		zap.Int64("slot", stored.Slot),
		zap.Int64("seq", stored.Seq),
		zap.Int64("amount", stored.Amount))

	r.cache.Invalidate(ctx, stored.TokenID)

	if err := r.publisher.Publish(ctx, stored); err != nil {
		// Broadcast is best-effort; the entry is already durable.
		observability.RecordBroadcastFailure()
		r.logger.Warn("entry broadcast failed",
			zap.String("token", stored.TokenID),
			zap.String("kind", string(stored.Kind)),
			zap.Error(err))
	}

	return stored, nil
}

// buildEntry maps the request onto an entry, assigning a synthetic signature
// to off-chain operations so the (tx_signature, event_index) dedup key is
// uniform across indexed and off-chain entries.
func (r *Recorder) buildEntry(req RecordRequest) *domain.LedgerEntry {
	sig := req.TxSignature
	if sig == "" {
		sig = "offchain:" + uuid.NewString()
	}
	return &domain.LedgerEntry{
		TokenID:            req.TokenID,
		Slot:               req.Slot,
		BlockTime:          req.BlockTime,
		Kind:               req.Kind,
		Wallet:             req.Wallet,
		WalletTo:           req.WalletTo,
		Amount:             req.Amount,
		AmountSecondary:    req.AmountSecondary,
		ShareClassID:       req.ShareClassID,
		Priority:           req.Priority,
		PreferenceMultiple: req.PreferenceMultiple,
		PricePerShare:      req.PricePerShare,
		ReferenceID:        req.ReferenceID,
		ReferenceType:      req.ReferenceType,
		Payload:            req.Payload,
		TxSignature:        sig,
		EventIndex:         req.EventIndex,
		TriggeredBy:        req.TriggeredBy,
		Notes:              req.Notes,
		CreatedAt:          time.Now().UnixMilli(),
	}
}

// warnOnSlotRegression logs when an entry arrives below the token's head
// slot. The append is still accepted: the order key places the entry
// historically, and reconstruction folds by (slot, seq) regardless of
// insertion order.
func (r *Recorder) warnOnSlotRegression(ctx context.Context, entry *domain.LedgerEntry) {
	headSlot, _, err := r.store.HeadOrderKey(ctx, entry.TokenID)
	if err != nil || headSlot <= entry.Slot {
		return
	}
	r.logger.Warn("entry slot below ledger head, appending historically",
		zap.String("token", entry.TokenID),
		zap.String("kind", string(entry.Kind)),
		zap.Int64("slot", entry.Slot),
		zap.Int64("head_slot", headSlot))
}
