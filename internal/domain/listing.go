package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// MaxNameLen bounds the truncated display name stored on a listing.
const MaxNameLen = 32

// UnknownCollectionID tags listings whose collection reference does not
// match any monitored collection.
const UnknownCollectionID = "unknown"

// Listing is the authoritative current listing state for one NFT.
// Corresponds to the nft_listings table in PostgreSQL, keyed by mint.
// At most one of PriceSol/PriceUsdc is set; when IsListed is false all
// listing-specific fields (prices, currency, marketplace, listed_at) are nil.
type Listing struct {
	Mint         string          // asset mint address, PK
	Name         *string         // display name, truncated to MaxNameLen runes (nullable)
	FullName     *string         // untruncated name (nullable)
	CollectionID string          // monitored collection id, or UnknownCollectionID
	Owner        *string         // current owner wallet (nullable)
	ImageURL     *string         // image reference (nullable)
	Attributes   json.RawMessage // raw attribute blob (nullable)
	IsListed     bool
	PriceSol     *decimal.Decimal // price in SOL (nullable)
	PriceUsdc    *decimal.Decimal // price in USDC (nullable)
	Currency     *string          // currency mint of the listing price (nullable)
	Marketplace  *string          // marketplace source identifier (nullable)
	ListedAt     *int64           // when the listing was observed (ms, nullable)
	UpdatedAt    int64            // last mutation timestamp (ms)
}

// ListingMutation is an absolute assignment of the listing-state fields,
// applied as a partial update keyed by mint. Owner nil means the owner
// column is left unchanged (delists keep the current owner).
type ListingMutation struct {
	IsListed    bool
	Owner       *string
	PriceSol    *decimal.Decimal
	PriceUsdc   *decimal.Decimal
	Currency    *string
	Marketplace *string
	ListedAt    *int64
	UpdatedAt   int64
}

// Apply writes the mutation onto a listing in place.
func (l *Listing) Apply(m *ListingMutation) {
	l.IsListed = m.IsListed
	l.PriceSol = m.PriceSol
	l.PriceUsdc = m.PriceUsdc
	l.Currency = m.Currency
	l.Marketplace = m.Marketplace
	l.ListedAt = m.ListedAt
	l.UpdatedAt = m.UpdatedAt
	if m.Owner != nil {
		l.Owner = m.Owner
	}
}

// TruncateName shortens a display name to MaxNameLen runes.
func TruncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= MaxNameLen {
		return name
	}
	return string(runes[:MaxNameLen])
}
