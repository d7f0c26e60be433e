package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/SwarmMonkey/tensor-listener/internal/domain"
	"github.com/SwarmMonkey/tensor-listener/internal/storage"
)

func TestActivityStore_InsertAndGetByMint(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	rows := []*domain.MarketActivity{
		{TxID: "tx2", Kind: "SALE", Mint: "mint1", CollectionID: "coll-1", Timestamp: 2000},
		{TxID: "tx1", Kind: "LIST", Mint: "mint1", CollectionID: "coll-1", Timestamp: 1000},
		{TxID: "tx3", Kind: "LIST", Mint: "mint2", CollectionID: "coll-1", Timestamp: 1500},
	}
	for _, a := range rows {
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].TxID != "tx1" || got[1].TxID != "tx2" {
		t.Errorf("rows should be ordered by timestamp: got %s, %s", got[0].TxID, got[1].TxID)
	}
}

func TestActivityStore_InvalidInput(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.MarketActivity{Mint: ""}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty mint, got %v", err)
	}
}

func TestActivityStore_EmptyResult(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	got, err := store.GetByMint(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d rows", len(got))
	}
}
