package clickhouse

import (
	"context"
	"fmt"

	"github.com/SwarmMonkey/tensor-listener/internal/domain"
	"github.com/SwarmMonkey/tensor-listener/internal/storage"
)

// ActivityStore implements storage.ActivityStore using ClickHouse.
// market_activity is an append-only MergeTree; no uniqueness is enforced.
type ActivityStore struct {
	conn *Conn
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(conn *Conn) *ActivityStore {
	return &ActivityStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

// Insert appends one activity row.
func (s *ActivityStore) Insert(ctx context.Context, a *domain.MarketActivity) error {
	if a == nil || a.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO market_activity (
			tx_id, kind, mint, collection_id, seller, buyer,
			price_sol, price_usdc, marketplace, timestamp_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		a.TxID,
		a.Kind,
		a.Mint,
		a.CollectionID,
		a.Seller,
		a.Buyer,
		a.PriceSol,
		a.PriceUsdc,
		a.Marketplace,
		uint64(a.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert market activity: %w", err)
	}
	return nil
}

// GetByMint retrieves all activity for a mint, ordered by timestamp ASC.
func (s *ActivityStore) GetByMint(ctx context.Context, mint string) ([]*domain.MarketActivity, error) {
	query := `
		SELECT tx_id, kind, mint, collection_id, seller, buyer,
		       price_sol, price_usdc, marketplace, timestamp_ms
		FROM market_activity
		WHERE mint = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query market activity: %w", err)
	}
	defer rows.Close()

	var out []*domain.MarketActivity
	for rows.Next() {
		var a domain.MarketActivity
		var ts uint64

		err := rows.Scan(
			&a.TxID,
			&a.Kind,
			&a.Mint,
			&a.CollectionID,
			&a.Seller,
			&a.Buyer,
			&a.PriceSol,
			&a.PriceUsdc,
			&a.Marketplace,
			&ts,
		)
		if err != nil {
			return nil, fmt.Errorf("scan market activity: %w", err)
		}

		a.Timestamp = int64(ts)
		out = append(out, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market activity: %w", err)
	}
	return out, nil
}
