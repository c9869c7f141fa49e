package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// SlotWatcherConfig configures the WebSocket slot feed.
type SlotWatcherConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the slot channel capacity. Slot events are droppable: a
	// consumer only needs the latest watermark, so a full buffer drops the
	// oldest information, never blocks the reader.
	Buffer int
}

// DefaultSlotWatcherConfig returns default slot feed configuration.
func DefaultSlotWatcherConfig() SlotWatcherConfig {
	return SlotWatcherConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            256,
	}
}

// SlotWatcher implements SlotFeed over a gorilla/websocket slotSubscribe
// subscription, reconnecting and resubscribing on connection loss.
type SlotWatcher struct {
	endpoint string
	config   SlotWatcherConfig

	conn   *websocket.Conn
	connMu sync.Mutex

	slots     chan SlotEvent
	closed    atomic.Bool
	requestID atomic.Uint64

	done         chan struct{}
	wg           sync.WaitGroup
	reconnecting atomic.Bool
}

var _ SlotFeed = (*SlotWatcher)(nil)

// NewSlotWatcher connects to the endpoint and subscribes to slot updates.
func NewSlotWatcher(ctx context.Context, endpoint string, config *SlotWatcherConfig) (*SlotWatcher, error) {
	cfg := DefaultSlotWatcherConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}

	w := &SlotWatcher{
		endpoint: endpoint,
		config:   cfg,
		slots:    make(chan SlotEvent, cfg.Buffer),
		done:     make(chan struct{}),
	}

	if err := w.connect(ctx); err != nil {
		return nil, err
	}
	if err := w.subscribe(); err != nil {
		w.closeConn()
		return nil, err
	}

	w.wg.Add(2)
	go w.readLoop()
	go w.pingLoop()

	return w, nil
}

// Slots returns the slot event channel.
func (w *SlotWatcher) Slots() <-chan SlotEvent {
	return w.slots
}

// Close closes the WebSocket connection and the slot channel.
func (w *SlotWatcher) Close() error {
	if w.closed.Swap(true) {
		return nil
	}

	close(w.done)

	w.connMu.Lock()
	if w.conn != nil {
		w.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		w.conn.Close()
	}
	w.connMu.Unlock()

	w.wg.Wait()
	close(w.slots)
	return nil
}

// connect establishes the WebSocket connection.
func (w *SlotWatcher) connect(ctx context.Context) error {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	w.conn = conn
	return nil
}

func (w *SlotWatcher) closeConn() {
	w.connMu.Lock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connMu.Unlock()
}

// subscribe sends the slotSubscribe request. Confirmation arrives on the
// read loop and carries no state the watcher needs: there is exactly one
// subscription per connection.
func (w *SlotWatcher) subscribe() error {
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      w.requestID.Add(1),
		Method:  "slotSubscribe",
	}

	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn == nil {
		return fmt.Errorf("not connected")
	}
	w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
	if err := w.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// readLoop reads messages and delivers slot notifications, reconnecting with
// exponential backoff on connection errors.
func (w *SlotWatcher) readLoop() {
	defer w.wg.Done()

	reconnectDelay := w.config.ReconnectDelay

	for !w.closed.Load() {
		w.connMu.Lock()
		conn := w.conn
		w.connMu.Unlock()

		if conn == nil {
			select {
			case <-w.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(w.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if w.closed.Load() {
				return
			}

			if !w.reconnecting.Swap(true) {
				go w.reconnect(reconnectDelay)
			}
			reconnectDelay *= 2
			if reconnectDelay > w.config.MaxReconnectDelay {
				reconnectDelay = w.config.MaxReconnectDelay
			}

			select {
			case <-w.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = w.config.ReconnectDelay
		w.handleMessage(message)
	}
}

// reconnect redials and resubscribes after a delay.
func (w *SlotWatcher) reconnect(delay time.Duration) {
	defer w.reconnecting.Store(false)

	if w.closed.Load() {
		return
	}

	select {
	case <-w.done:
		return
	case <-time.After(delay):
	}

	w.closeConn()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := w.connect(ctx); err != nil {
		// Redial failed; the next read error retries with a larger delay.
		return
	}
	w.subscribe()
}

// handleMessage parses one incoming frame. Subscription confirmations and
// error responses are ignored: the watcher cares only about notifications.
func (w *SlotWatcher) handleMessage(message []byte) {
	var notif wsSlotNotification
	if err := json.Unmarshal(message, &notif); err != nil || notif.Method != "slotNotification" {
		return
	}
	if notif.Params == nil {
		return
	}

	event := SlotEvent{
		Slot:   notif.Params.Result.Slot,
		Parent: notif.Params.Result.Parent,
		Root:   notif.Params.Result.Root,
	}

	select {
	case w.slots <- event:
	case <-w.done:
	default:
		// Buffer full: drop the oldest event and keep the newest. The feed
		// is a watermark, not a log.
		select {
		case <-w.slots:
		default:
		}
		select {
		case w.slots <- event:
		default:
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (w *SlotWatcher) pingLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.connMu.Lock()
			if w.conn != nil {
				w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
				// A failed ping surfaces as a read error; the read loop
				// owns reconnection.
				w.conn.WriteMessage(websocket.PingMessage, nil)
			}
			w.connMu.Unlock()
		}
	}
}

// WebSocket message types.

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSlotNotification struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  *wsSlotParams  `json:"params"`
}

type wsSlotParams struct {
	Subscription int64        `json:"subscription"`
	Result       wsSlotResult `json:"result"`
}

type wsSlotResult struct {
	Parent int64 `json:"parent"`
	Root   int64 `json:"root"`
	Slot   int64 `json:"slot"`
}
