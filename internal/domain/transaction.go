package domain

import "encoding/json"

// TxKind is the marketplace transaction kind as reported by the feed.
type TxKind string

// Transaction kinds with a reconciliation effect. Anything else is a no-op.
const (
	TxKindList              TxKind = "LIST"
	TxKindEditSingleListing TxKind = "EDIT_SINGLE_LISTING"
	TxKindDelist            TxKind = "DELIST"
	TxKindSale              TxKind = "SALE"
	TxKindAcceptBid         TxKind = "ACCEPT_BID"
)

// TransactionEvent is one decoded marketplace transaction. It is consumed
// once by the reconciler and then discarded; it is never persisted as-is.
type TransactionEvent struct {
	Kind            TxKind
	TxID            string
	Mint            string  // asset mint address
	Seller          *string // nullable
	Buyer           *string // nullable
	GrossAmount     *int64  // raw amount in the currency's smallest unit (nullable)
	GrossAmountUnit string  // currency mint of GrossAmount
	Source          *string // marketplace source identifier (nullable)
	CollectionSlug  string
	Name            *string       // asset display name (nullable)
	Metadata        *MintMetadata // raw mint metadata, used only on first sight
}

// MintMetadata carries the optional raw asset metadata attached to a
// transaction frame, consulted only when the mint has no stored record yet.
type MintMetadata struct {
	Owner      *string
	ImageURL   *string
	Attributes json.RawMessage
}

// MarketActivity is one append-only analytics row per reconciled
// transaction. Corresponds to the market_activity table in ClickHouse.
type MarketActivity struct {
	TxID         string
	Kind         string
	Mint         string
	CollectionID string
	Seller       *string
	Buyer        *string
	PriceSol     *float64
	PriceUsdc    *float64
	Marketplace  *string
	Timestamp    int64 // ms
}
