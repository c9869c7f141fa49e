package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"solana-captable/internal/domain"
)

// StreamName is the JetStream stream holding ledger entry events.
const StreamName = "CAPTABLE_ENTRIES"

// subjectPrefix is the root of all entry subjects:
// captable.entries.<token_id>.<kind>.
const subjectPrefix = "captable.entries"

// Config holds the JetStream connection settings.
type Config struct {
	URL            string
	ConnectionName string
	MaxReconnects  int
	ReconnectWait  time.Duration
}

// JetStream publishes entries to a NATS JetStream stream, one subject per
// (token, kind) pair so consumers can filter server-side.
type JetStream struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *zap.Logger
}

// NewJetStream connects to NATS and provisions the entry stream.
func NewJetStream(ctx context.Context, cfg Config, logger *zap.Logger) (*JetStream, error) {
	if cfg.ConnectionName == "" {
		cfg.ConnectionName = "captable-ledger"
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from NATS", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{subjectPrefix + ".>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("provision stream %s: %w", StreamName, err)
	}

	return &JetStream{nc: nc, js: js, logger: logger}, nil
}

// Publish sends the entry as JSON to captable.entries.<token>.<kind>.
func (p *JetStream) Publish(ctx context.Context, entry *domain.LedgerEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	subject := fmt.Sprintf("%s.%s.%s", subjectPrefix, entry.TokenID, entry.Kind)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish entry to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *JetStream) Close() {
	if p.nc == nil {
		return
	}
	p.nc.Close()
}

var _ Publisher = (*JetStream)(nil)
