package storage

import (
	"context"

	"github.com/SwarmMonkey/tensor-listener/internal/domain"
)

// ListingStore provides access to nft_listings storage. The reconciler is
// the sole writer; readers are external.
type ListingStore interface {
	// GetByMint retrieves a listing by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Listing, error)

	// Insert adds a new listing. Returns ErrDuplicateKey if the mint exists.
	Insert(ctx context.Context, l *domain.Listing) error

	// Update applies a mutation to an existing listing keyed by mint.
	// Returns ErrNotFound if the mint has no record.
	Update(ctx context.Context, mint string, m *domain.ListingMutation) error
}

// ActivityStore provides access to market_activity storage, an append-only
// analytics log of reconciled transactions.
type ActivityStore interface {
	// Insert appends one activity row.
	Insert(ctx context.Context, a *domain.MarketActivity) error

	// GetByMint retrieves all activity for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.MarketActivity, error)
}
