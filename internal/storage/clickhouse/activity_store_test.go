package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SwarmMonkey/tensor-listener/internal/domain"
	"github.com/SwarmMonkey/tensor-listener/internal/storage"
)

func TestActivityStore_InsertAndGetByMint(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewActivityStore(conn)
	ctx := context.Background()

	rows := []*domain.MarketActivity{
		{
			TxID:         "tx-2",
			Kind:         "SALE",
			Mint:         "mint-1",
			CollectionID: "coll-1",
			Seller:       ptr("seller-wallet"),
			Buyer:        ptr("buyer-wallet"),
			PriceSol:     ptr(1.5),
			Marketplace:  ptr("TENSORSWAP"),
			Timestamp:    2000,
		},
		{
			TxID:         "tx-1",
			Kind:         "LIST",
			Mint:         "mint-1",
			CollectionID: "coll-1",
			Seller:       ptr("seller-wallet"),
			PriceUsdc:    ptr(600.0),
			Marketplace:  ptr("TENSORSWAP"),
			Timestamp:    1000,
		},
		{
			TxID:         "tx-3",
			Kind:         "LIST",
			Mint:         "mint-2",
			CollectionID: "coll-2",
			Timestamp:    1500,
		},
	}
	for _, a := range rows {
		require.NoError(t, store.Insert(ctx, a))
	}

	got, err := store.GetByMint(ctx, "mint-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "tx-1", got[0].TxID)
	assert.Equal(t, "LIST", got[0].Kind)
	require.NotNil(t, got[0].PriceUsdc)
	assert.Equal(t, 600.0, *got[0].PriceUsdc)
	assert.Nil(t, got[0].PriceSol)
	assert.Nil(t, got[0].Buyer)

	assert.Equal(t, "tx-2", got[1].TxID)
	require.NotNil(t, got[1].Buyer)
	assert.Equal(t, "buyer-wallet", *got[1].Buyer)
	assert.Equal(t, int64(2000), got[1].Timestamp)
}

func TestActivityStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewActivityStore(conn)
	ctx := context.Background()

	err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Insert(ctx, &domain.MarketActivity{Mint: ""})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestActivityStore_EmptyResult(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewActivityStore(conn)

	got, err := store.GetByMint(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
