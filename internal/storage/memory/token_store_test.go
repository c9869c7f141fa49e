package memory

import (
	"context"
	"errors"
	"testing"

	"solana-captable/internal/domain"
	"solana-captable/internal/storage"
)

func TestTokenStore_InsertAndGet(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	token := &domain.Token{
		TokenID:     "Mint111",
		Symbol:      "ACME",
		Name:        "Acme Equity",
		Authority:   "Auth111",
		CreatedSlot: 1000,
	}

	if err := store.Insert(ctx, token); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.Get(ctx, "Mint111")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Symbol != "ACME" || got.CreatedSlot != 1000 {
		t.Errorf("Token mismatch: %+v", got)
	}
	if got.CreatedAt == 0 {
		t.Error("CreatedAt should be set on insert")
	}

	if err := store.Insert(ctx, token); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTokenStore_GetAllSorted(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	for _, id := range []string{"Mint3", "Mint1", "Mint2"} {
		if err := store.Insert(ctx, &domain.Token{TokenID: id}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 tokens, got %d", len(all))
	}
	for i, want := range []string{"Mint1", "Mint2", "Mint3"} {
		if all[i].TokenID != want {
			t.Errorf("all[%d] = %s, want %s", i, all[i].TokenID, want)
		}
	}
}

func TestTokenStore_UpdateSymbol(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.Token{TokenID: "Mint1", Symbol: "OLD"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.UpdateSymbol(ctx, "Mint1", "NEW"); err != nil {
		t.Fatalf("UpdateSymbol failed: %v", err)
	}
	got, _ := store.Get(ctx, "Mint1")
	if got.Symbol != "NEW" {
		t.Errorf("Symbol = %s, want NEW", got.Symbol)
	}

	if err := store.UpdateSymbol(ctx, "missing", "X"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
