package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/SwarmMonkey/tensor-listener/internal/domain"
	"github.com/SwarmMonkey/tensor-listener/internal/storage"
)

// ListingStore implements storage.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *Pool
}

// NewListingStore creates a new ListingStore.
func NewListingStore(pool *Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ListingStore = (*ListingStore)(nil)

// GetByMint retrieves a listing by mint address. Returns ErrNotFound if not exists.
func (s *ListingStore) GetByMint(ctx context.Context, mint string) (*domain.Listing, error) {
	query := `
		SELECT mint, name, full_name, collection_id, owner, image_url, attributes,
		       is_listed, price_sol, price_usdc, currency, marketplace, listed_at, updated_at
		FROM nft_listings
		WHERE mint = $1
	`

	row := s.pool.QueryRow(ctx, query, mint)
	l, err := scanListing(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get listing by mint: %w", err)
	}
	return l, nil
}

// Insert adds a new listing. Returns ErrDuplicateKey if the mint exists.
func (s *ListingStore) Insert(ctx context.Context, l *domain.Listing) error {
	if l == nil || l.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO nft_listings (
			mint, name, full_name, collection_id, owner, image_url, attributes,
			is_listed, price_sol, price_usdc, currency, marketplace, listed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.pool.Exec(ctx, query,
		l.Mint,
		l.Name,
		l.FullName,
		l.CollectionID,
		l.Owner,
		l.ImageURL,
		l.Attributes,
		l.IsListed,
		l.PriceSol,
		l.PriceUsdc,
		l.Currency,
		l.Marketplace,
		l.ListedAt,
		l.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// Update applies a mutation to an existing listing keyed by mint. Returns
// ErrNotFound if the mint has no record. Owner is only reassigned when the
// mutation carries one.
func (s *ListingStore) Update(ctx context.Context, mint string, m *domain.ListingMutation) error {
	if mint == "" || m == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE nft_listings
		SET is_listed   = $2,
		    price_sol   = $3,
		    price_usdc  = $4,
		    currency    = $5,
		    marketplace = $6,
		    listed_at   = $7,
		    owner       = COALESCE($8, owner),
		    updated_at  = $9
		WHERE mint = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		mint,
		m.IsListed,
		m.PriceSol,
		m.PriceUsdc,
		m.Currency,
		m.Marketplace,
		m.ListedAt,
		m.Owner,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanListing scans a single row into a Listing.
func scanListing(row pgx.Row) (*domain.Listing, error) {
	var l domain.Listing
	var priceSol, priceUsdc decimal.NullDecimal

	err := row.Scan(
		&l.Mint,
		&l.Name,
		&l.FullName,
		&l.CollectionID,
		&l.Owner,
		&l.ImageURL,
		&l.Attributes,
		&l.IsListed,
		&priceSol,
		&priceUsdc,
		&l.Currency,
		&l.Marketplace,
		&l.ListedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if priceSol.Valid {
		l.PriceSol = &priceSol.Decimal
	}
	if priceUsdc.Valid {
		l.PriceUsdc = &priceUsdc.Decimal
	}

	return &l, nil
}
