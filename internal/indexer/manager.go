package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-captable/internal/domain"
	"solana-captable/internal/idhash"
	"solana-captable/internal/ledger"
	"solana-captable/internal/storage"
)

// TriggeredByIndexer marks entries the indexer recorded from chain events.
const TriggeredByIndexer = "chain_indexer"

// Manager records parsed chain events through the Recorder and keeps the
// token registry and indexing progress current. All entry writes go through
// the Recorder so validation, per-token locking, metrics and broadcast apply
// to indexed entries exactly as to off-chain ones.
type Manager struct {
	recorder *ledger.Recorder
	tokens   storage.TokenStore
	progress storage.IndexProgressStore
	logger   *zap.Logger
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Recorder *ledger.Recorder
	Tokens   storage.TokenStore
	Progress storage.IndexProgressStore
	Logger   *zap.Logger
}

// NewManager creates a new Manager.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		recorder: opts.Recorder,
		tokens:   opts.Tokens,
		progress: opts.Progress,
		logger:   opts.Logger,
	}
}

// HandleInit registers a newly initialized mint. Re-observing a known mint
// is a no-op.
func (m *Manager) HandleInit(ctx context.Context, init *TokenInit) error {
	if m.tokens == nil {
		return nil
	}
	err := m.tokens.Insert(ctx, &domain.Token{
		TokenID:     init.TokenID,
		Symbol:      init.Symbol,
		Name:        init.Name,
		Authority:   init.Authority,
		CreatedSlot: init.Slot,
		CreatedAt:   time.Now().UnixMilli(),
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("register token %s: %w", init.TokenID, err)
	}
	m.logger.Info("token discovered",
		zap.String("token", init.TokenID),
		zap.String("symbol", init.Symbol),
		zap.Int64("slot", init.Slot))
	return nil
}

// HandleEvent records one chain event as a ledger entry, idempotently: the
// seen-event set short-circuits re-observations, and the entry store's
// (tx_signature, event_index) unique key backstops races between indexer
// instances.
func (m *Manager) HandleEvent(ctx context.Context, ev *domain.ChainEvent) error {
	eventID := idhash.ComputeEventID(ev.TokenID, ev.TxSignature, ev.EventIndex, ev.Slot)

	if m.progress != nil {
		seen, err := m.progress.IsEventSeen(ctx, eventID)
		if err != nil {
			return fmt.Errorf("check event %s: %w", eventID, err)
		}
		if seen {
			return nil
		}
	}

	_, err := m.recorder.Record(ctx, requestFromEvent(ev))
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("record %s event for %s: %w", ev.Kind, ev.TokenID, err)
	}

	if m.progress != nil {
		if err := m.progress.MarkEventSeen(ctx, eventID); err != nil {
			return fmt.Errorf("mark event %s: %w", eventID, err)
		}
		if err := m.progress.Set(ctx, &storage.IndexProgress{
			TokenID:   ev.TokenID,
			Slot:      ev.Slot,
			Signature: ev.TxSignature,
		}); err != nil {
			return fmt.Errorf("save token progress for %s: %w", ev.TokenID, err)
		}
	}
	return nil
}

// requestFromEvent maps a chain event onto a record request field by field.
func requestFromEvent(ev *domain.ChainEvent) ledger.RecordRequest {
	return ledger.RecordRequest{
		TokenID:            ev.TokenID,
		Kind:               ev.Kind,
		Slot:               ev.Slot,
		BlockTime:          ev.BlockTime,
		Wallet:             ev.Wallet,
		WalletTo:           ev.WalletTo,
		Amount:             ev.Amount,
		AmountSecondary:    ev.AmountSecondary,
		ShareClassID:       ev.ShareClassID,
		Priority:           ev.Priority,
		PreferenceMultiple: ev.PreferenceMultiple,
		PricePerShare:      ev.PricePerShare,
		ReferenceID:        ev.ReferenceID,
		ReferenceType:      ev.ReferenceType,
		Payload:            json.RawMessage(ev.Payload),
		TxSignature:        ev.TxSignature,
		EventIndex:         ev.EventIndex,
		TriggeredBy:        TriggeredByIndexer,
	}
}
