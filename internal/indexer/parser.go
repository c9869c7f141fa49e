// Package indexer turns confirmed captable program transactions into ledger
// entries. Parsing, slot buffering and recording are split so each stage can
// be tested against scripted transactions.
package indexer

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"solana-captable/internal/domain"
	"solana-captable/internal/observability"
	"solana-captable/internal/solana"
)

// EventLogPrefix marks program log lines that carry a structured event.
const EventLogPrefix = "Program log: EVENT:"

// EventTokenInitialize announces a new mint. It creates a token registry row,
// never a ledger entry.
const EventTokenInitialize = "token_initialize"

// wireEvent mirrors the JSON the captable program writes after the EVENT
// marker. The event name set is open on chain; everything the ledger does not
// know is dropped at this boundary.
type wireEvent struct {
	Event              string          `json:"event"`
	Mint               string          `json:"mint"`
	Wallet             string          `json:"wallet,omitempty"`
	WalletTo           string          `json:"wallet_to,omitempty"`
	Amount             int64           `json:"amount,omitempty"`
	CostBasis          int64           `json:"cost_basis,omitempty"`
	ShareClassID       string          `json:"share_class_id,omitempty"`
	Priority           int             `json:"priority,omitempty"`
	PreferenceMultiple float64         `json:"preference_multiple,omitempty"`
	PricePerShare      int64           `json:"price_per_share,omitempty"`
	ReferenceID        string          `json:"reference_id,omitempty"`
	ReferenceType      string          `json:"reference_type,omitempty"`
	Symbol             string          `json:"symbol,omitempty"`
	Name               string          `json:"name,omitempty"`
	Authority          string          `json:"authority,omitempty"`
	Payload            json.RawMessage `json:"payload,omitempty"`
}

// TokenInit is a parsed token_initialize event.
type TokenInit struct {
	TokenID   string
	Symbol    string
	Name      string
	Authority string
	Slot      int64
	BlockTime int64
}

// Parser extracts chain events from transaction logs.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a new Parser.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// ParseTransaction extracts events from one confirmed transaction. Failed
// transactions yield nothing. EventIndex numbers the EVENT lines within the
// transaction in log order, so the (signature, index) pair is stable across
// re-parses.
func (p *Parser) ParseTransaction(tx *solana.Transaction) ([]*domain.ChainEvent, []*TokenInit) {
	if tx == nil || tx.Failed() {
		return nil, nil
	}

	var events []*domain.ChainEvent
	var inits []*TokenInit
	index := 0

	for _, line := range tx.LogMessages {
		raw, ok := strings.CutPrefix(line, EventLogPrefix)
		if !ok {
			continue
		}
		eventIndex := index
		index++

		var w wireEvent
		if err := json.Unmarshal([]byte(raw), &w); err != nil {
			observability.RecordChainEventSkipped("bad_json")
			p.logger.Warn("unparseable event log line",
				zap.String("signature", tx.Signature),
				zap.Int("event_index", eventIndex),
				zap.Error(err))
			continue
		}
		if w.Mint == "" {
			observability.RecordChainEventSkipped("missing_mint")
			p.logger.Warn("event without mint",
				zap.String("signature", tx.Signature),
				zap.String("event", w.Event))
			continue
		}

		if w.Event == EventTokenInitialize {
			inits = append(inits, &TokenInit{
				TokenID:   w.Mint,
				Symbol:    w.Symbol,
				Name:      w.Name,
				Authority: w.Authority,
				Slot:      tx.Slot,
				BlockTime: tx.BlockTime,
			})
			continue
		}

		kind := domain.EntryKind(w.Event)
		if !kind.Known() {
			// The ledger kind set is closed; unknown program events stop
			// here and are never recorded.
			observability.RecordChainEventSkipped("unknown_event")
			p.logger.Warn("unknown program event skipped",
				zap.String("signature", tx.Signature),
				zap.String("event", w.Event))
			continue
		}

		events = append(events, &domain.ChainEvent{
			TokenID:            w.Mint,
			Kind:               kind,
			Slot:               tx.Slot,
			BlockTime:          tx.BlockTime,
			TxSignature:        tx.Signature,
			EventIndex:         eventIndex,
			Wallet:             w.Wallet,
			WalletTo:           w.WalletTo,
			Amount:             w.Amount,
			AmountSecondary:    w.CostBasis,
			ShareClassID:       w.ShareClassID,
			Priority:           w.Priority,
			PreferenceMultiple: w.PreferenceMultiple,
			PricePerShare:      w.PricePerShare,
			ReferenceID:        w.ReferenceID,
			ReferenceType:      w.ReferenceType,
			Payload:            w.Payload,
		})
	}

	return events, inits
}
