package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// slotServer upgrades the connection, confirms the slotSubscribe request and
// then streams the given slots.
func slotServer(t *testing.T, slots []int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "slotSubscribe" {
			t.Errorf("expected slotSubscribe, got %s", req.Method)
		}

		confirm := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": int64(7)}
		if err := conn.WriteJSON(confirm); err != nil {
			return
		}

		for _, slot := range slots {
			notif := wsSlotNotification{
				JSONRPC: "2.0",
				Method:  "slotNotification",
				Params: &wsSlotParams{
					Subscription: 7,
					Result:       wsSlotResult{Slot: slot, Parent: slot - 1, Root: slot - 32},
				},
			}
			if err := conn.WriteJSON(notif); err != nil {
				return
			}
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestSlotWatcher_DeliversSlots(t *testing.T) {
	server := slotServer(t, []int64{100, 101, 102})
	defer server.Close()

	watcher, err := NewSlotWatcher(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewSlotWatcher: %v", err)
	}
	defer watcher.Close()

	for _, want := range []int64{100, 101, 102} {
		select {
		case event := <-watcher.Slots():
			if event.Slot != want {
				t.Errorf("expected slot %d, got %d", want, event.Slot)
			}
			if event.Parent != want-1 {
				t.Errorf("expected parent %d, got %d", want-1, event.Parent)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for slot %d", want)
		}
	}
}

func TestSlotWatcher_Close(t *testing.T) {
	server := slotServer(t, nil)
	defer server.Close()

	watcher, err := NewSlotWatcher(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewSlotWatcher: %v", err)
	}

	if err := watcher.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	// Double close should be safe.
	if err := watcher.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}

	select {
	case _, open := <-watcher.Slots():
		if open {
			t.Error("expected closed slot channel")
		}
	case <-time.After(time.Second):
		t.Error("slot channel not closed")
	}
}

func TestSlotWatcher_CustomConfig(t *testing.T) {
	server := slotServer(t, nil)
	defer server.Close()

	config := DefaultSlotWatcherConfig()
	config.PingInterval = 5 * time.Second
	config.Buffer = 8

	watcher, err := NewSlotWatcher(context.Background(), wsURL(server), &config)
	if err != nil {
		t.Fatalf("NewSlotWatcher: %v", err)
	}
	defer watcher.Close()

	if watcher.config.PingInterval != 5*time.Second {
		t.Errorf("expected PingInterval 5s, got %v", watcher.config.PingInterval)
	}
	if cap(watcher.slots) != 8 {
		t.Errorf("expected buffer 8, got %d", cap(watcher.slots))
	}
}
