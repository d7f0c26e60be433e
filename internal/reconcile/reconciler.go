// Package reconcile turns decoded marketplace transactions into the
// authoritative current listing state per mint.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SwarmMonkey/tensor-listener/internal/domain"
	"github.com/SwarmMonkey/tensor-listener/internal/feed"
	"github.com/SwarmMonkey/tensor-listener/internal/money"
	"github.com/SwarmMonkey/tensor-listener/internal/notify"
	"github.com/SwarmMonkey/tensor-listener/internal/observability"
	"github.com/SwarmMonkey/tensor-listener/internal/solana"
	"github.com/SwarmMonkey/tensor-listener/internal/storage"
)

// Options configures a Reconciler.
type Options struct {
	Store storage.ListingStore
	// Activity is optional; when set, every reconciled transaction is also
	// archived as an append-only analytics row.
	Activity storage.ActivityStore
	// Notifier is optional; delivery is asynchronous and best-effort.
	Notifier    notify.Notifier
	Collections []domain.Collection
	Logger      *logrus.Logger
	// Now returns the current time in unix milliseconds. Defaults to the
	// wall clock; tests inject a fixed value.
	Now func() int64
	// NotifyTimeout bounds each asynchronous notification delivery.
	NotifyTimeout time.Duration
}

// Reconciler is the sole writer of listing state. It processes one event
// at a time; replaying an event is safe because mutations are absolute
// field assignments, not deltas.
type Reconciler struct {
	store         storage.ListingStore
	activity      storage.ActivityStore
	notifier      notify.Notifier
	collections   []domain.Collection
	logger        *logrus.Logger
	now           func() int64
	notifyTimeout time.Duration
}

var _ feed.Handler = (*Reconciler)(nil)

// New creates a Reconciler.
func New(opts Options) *Reconciler {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Now == nil {
		opts.Now = func() int64 { return time.Now().UnixMilli() }
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	return &Reconciler{
		store:         opts.Store,
		activity:      opts.Activity,
		notifier:      opts.Notifier,
		collections:   opts.Collections,
		logger:        opts.Logger,
		now:           opts.Now,
		notifyTimeout: opts.NotifyTimeout,
	}
}

// HandleTransaction reconciles one event from the feed. Failures are
// logged and never propagate; a bad event must not affect the connection.
func (r *Reconciler) HandleTransaction(ctx context.Context, ev *domain.TransactionEvent) {
	if err := r.Apply(ctx, ev); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"mint": ev.Mint,
			"kind": ev.Kind,
			"tx":   ev.TxID,
		}).Error("reconciliation failed, event dropped")
	}
}

// Apply reconciles one transaction event against the listing store and, on
// success, archives an activity row and dispatches a notification. Events
// with no reconciliation effect return nil without touching storage.
func (r *Reconciler) Apply(ctx context.Context, ev *domain.TransactionEvent) error {
	mutation, price, handled := r.buildMutation(ev)
	if !handled {
		r.logger.WithFields(logrus.Fields{
			"kind": ev.Kind,
			"mint": ev.Mint,
		}).Debug("ignoring transaction kind")
		return nil
	}

	start := time.Now()
	observability.RecordTransaction(string(ev.Kind))

	if err := r.persist(ctx, ev, mutation); err != nil {
		return err
	}
	observability.RecordReconcileLatency(time.Since(start).Seconds())

	r.archiveActivity(ctx, ev, price, mutation.UpdatedAt)
	r.dispatchNotification(ev, mutation, price)
	return nil
}

// buildMutation classifies the transaction kind and computes the absolute
// field set to store. The third return is false for kinds with no effect.
func (r *Reconciler) buildMutation(ev *domain.TransactionEvent) (*domain.ListingMutation, money.Price, bool) {
	now := r.now()
	m := &domain.ListingMutation{UpdatedAt: now}
	var price money.Price

	switch ev.Kind {
	case domain.TxKindList, domain.TxKindEditSingleListing:
		m.IsListed = true
		m.Owner = ev.Seller
		m.Marketplace = ev.Source
		m.ListedAt = &now
		if ev.GrossAmount != nil {
			price = money.Normalize(*ev.GrossAmount, ev.GrossAmountUnit)
			m.PriceSol = price.Sol
			m.PriceUsdc = price.Usdc
			if ev.GrossAmountUnit != "" {
				unit := ev.GrossAmountUnit
				m.Currency = &unit
			}
		}

	case domain.TxKindDelist:
		// Unlisted, owner unchanged, every listing field cleared.

	case domain.TxKindSale, domain.TxKindAcceptBid:
		m.Owner = ev.Buyer
		if ev.GrossAmount != nil {
			// Sale price is archived for analytics, never stored on the
			// listing record.
			price = money.Normalize(*ev.GrossAmount, ev.GrossAmountUnit)
		}

	default:
		return nil, price, false
	}

	return m, price, true
}

// persist runs the read-check-then-insert-or-update branch. A duplicate
// key on insert means another writer won the first-sight race; the event
// is re-applied as an update.
func (r *Reconciler) persist(ctx context.Context, ev *domain.TransactionEvent, m *domain.ListingMutation) error {
	_, err := r.store.GetByMint(ctx, ev.Mint)
	switch {
	case err == nil:
		if err := r.store.Update(ctx, ev.Mint, m); err != nil {
			observability.RecordReconcileError("update")
			return fmt.Errorf("update listing %s: %w", ev.Mint, err)
		}
		observability.RecordListingUpdated()
		return nil

	case errors.Is(err, storage.ErrNotFound):
		listing := r.buildListing(ev, m)
		err := r.store.Insert(ctx, listing)
		if err == nil {
			observability.RecordListingInserted()
			return nil
		}
		if errors.Is(err, storage.ErrDuplicateKey) {
			if err := r.store.Update(ctx, ev.Mint, m); err != nil {
				observability.RecordReconcileError("update")
				return fmt.Errorf("update listing %s after insert race: %w", ev.Mint, err)
			}
			observability.RecordListingUpdated()
			return nil
		}
		observability.RecordReconcileError("insert")
		return fmt.Errorf("insert listing %s: %w", ev.Mint, err)

	default:
		observability.RecordReconcileError("lookup")
		return fmt.Errorf("lookup listing %s: %w", ev.Mint, err)
	}
}

// buildListing constructs the full record for a mint seen for the first
// time, then applies the mutation on top of the defaults.
func (r *Reconciler) buildListing(ev *domain.TransactionEvent, m *domain.ListingMutation) *domain.Listing {
	l := &domain.Listing{
		Mint:         ev.Mint,
		CollectionID: domain.ResolveCollectionID(ev.CollectionSlug, r.collections),
		Owner:        defaultOwner(ev),
		UpdatedAt:    m.UpdatedAt,
	}
	if ev.Name != nil {
		truncated := domain.TruncateName(*ev.Name)
		l.Name = &truncated
		l.FullName = ev.Name
	}
	if md := ev.Metadata; md != nil {
		l.ImageURL = md.ImageURL
		l.Attributes = md.Attributes
	}
	l.Apply(m)
	return l
}

// defaultOwner picks the initial owner for a first-sight record. The
// metadata owner is trusted only when on-curve; marketplace escrows are
// program derived addresses and off-curve, and recording them as owners
// would misattribute every listed asset to the marketplace.
func defaultOwner(ev *domain.TransactionEvent) *string {
	if md := ev.Metadata; md != nil && md.Owner != nil && solana.IsOnCurve(*md.Owner) {
		return md.Owner
	}
	if ev.Seller != nil {
		return ev.Seller
	}
	if ev.Buyer != nil {
		return ev.Buyer
	}
	return nil
}

// archiveActivity appends one analytics row. Archive failures are logged
// and never affect the reconciled state.
func (r *Reconciler) archiveActivity(ctx context.Context, ev *domain.TransactionEvent, price money.Price, ts int64) {
	if r.activity == nil {
		return
	}

	row := &domain.MarketActivity{
		TxID:         ev.TxID,
		Kind:         string(ev.Kind),
		Mint:         ev.Mint,
		CollectionID: domain.ResolveCollectionID(ev.CollectionSlug, r.collections),
		Seller:       ev.Seller,
		Buyer:        ev.Buyer,
		Marketplace:  ev.Source,
		Timestamp:    ts,
	}
	if price.Sol != nil {
		v := price.Sol.InexactFloat64()
		row.PriceSol = &v
	}
	if price.Usdc != nil {
		v := price.Usdc.InexactFloat64()
		row.PriceUsdc = &v
	}

	if err := r.activity.Insert(ctx, row); err != nil {
		observability.RecordReconcileError("activity")
		r.logger.WithError(err).WithField("tx", ev.TxID).Warn("activity archive failed")
	}
}

// dispatchNotification hands the summary off asynchronously. Failures are
// swallowed after a log line; delivery never rolls back the mutation.
func (r *Reconciler) dispatchNotification(ev *domain.TransactionEvent, m *domain.ListingMutation, price money.Price) {
	if r.notifier == nil {
		return
	}

	s := &notify.Summary{
		Kind:         string(ev.Kind),
		TxID:         ev.TxID,
		Mint:         ev.Mint,
		CollectionID: domain.ResolveCollectionID(ev.CollectionSlug, r.collections),
		PriceSol:     price.Sol,
		PriceUsdc:    price.Usdc,
		Currency:     m.Currency,
		Seller:       ev.Seller,
		Buyer:        ev.Buyer,
	}
	if ev.Name != nil {
		s.Name = *ev.Name
	}
	if ev.Metadata != nil {
		s.ImageURL = ev.Metadata.ImageURL
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.notifyTimeout)
		defer cancel()

		err := r.notifier.Notify(ctx, s)
		observability.RecordNotification(err)
		if err != nil {
			r.logger.WithError(err).WithField("tx", s.TxID).Warn("notification delivery failed")
		}
	}()
}
