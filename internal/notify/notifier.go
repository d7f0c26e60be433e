// Package notify defines the downstream notification boundary. Delivery is
// best-effort: failures are logged by callers and never affect
// reconciliation.
package notify

import (
	"context"

	"github.com/shopspring/decimal"
)

// Summary describes one reconciled marketplace transaction for downstream
// channels.
type Summary struct {
	Kind         string
	TxID         string
	Mint         string
	Name         string
	CollectionID string
	PriceSol     *decimal.Decimal
	PriceUsdc    *decimal.Decimal
	Currency     *string
	Seller       *string
	Buyer        *string
	ImageURL     *string
}

// Notifier fans a summary out to a notification channel.
type Notifier interface {
	Notify(ctx context.Context, s *Summary) error
}
