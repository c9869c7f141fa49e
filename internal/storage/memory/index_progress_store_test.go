package memory

import (
	"context"
	"errors"
	"testing"

	"solana-captable/internal/storage"
)

func TestIndexProgressStore_GetSet(t *testing.T) {
	store := NewIndexProgressStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "tok1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	progress := &storage.IndexProgress{TokenID: "tok1", Slot: 5000, Signature: "sig5000"}
	if err := store.Set(ctx, progress); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "tok1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Slot != 5000 || got.Signature != "sig5000" {
		t.Errorf("progress = %+v", got)
	}

	// Set overwrites; progress is a cursor, not an append-only record.
	progress.Slot = 6000
	if err := store.Set(ctx, progress); err != nil {
		t.Fatalf("Second Set failed: %v", err)
	}
	got, _ = store.Get(ctx, "tok1")
	if got.Slot != 6000 {
		t.Errorf("Slot = %d, want 6000", got.Slot)
	}
}

func TestIndexProgressStore_SeenEvents(t *testing.T) {
	store := NewIndexProgressStore()
	ctx := context.Background()

	seen, err := store.IsEventSeen(ctx, "event1")
	if err != nil || seen {
		t.Errorf("IsEventSeen = (%v, %v), want (false, nil)", seen, err)
	}

	if err := store.MarkEventSeen(ctx, "event1"); err != nil {
		t.Fatalf("MarkEventSeen failed: %v", err)
	}
	if err := store.MarkEventSeen(ctx, "event2"); err != nil {
		t.Fatalf("MarkEventSeen failed: %v", err)
	}

	seen, _ = store.IsEventSeen(ctx, "event1")
	if !seen {
		t.Error("event1 should be seen")
	}

	all, err := store.LoadSeenEvents(ctx)
	if err != nil {
		t.Fatalf("LoadSeenEvents failed: %v", err)
	}
	if len(all) != 2 || all[0] != "event1" || all[1] != "event2" {
		t.Errorf("LoadSeenEvents = %v, want [event1 event2]", all)
	}
}
