package memory

import (
	"context"
	"sync"

	"github.com/SwarmMonkey/tensor-listener/internal/domain"
	"github.com/SwarmMonkey/tensor-listener/internal/storage"
)

// ListingStore is an in-memory implementation of storage.ListingStore.
type ListingStore struct {
	mu     sync.RWMutex
	byMint map[string]*domain.Listing
}

// NewListingStore creates a new in-memory listing store.
func NewListingStore() *ListingStore {
	return &ListingStore{
		byMint: make(map[string]*domain.Listing),
	}
}

var _ storage.ListingStore = (*ListingStore)(nil)

// GetByMint retrieves a listing by mint address. Returns ErrNotFound if not exists.
func (s *ListingStore) GetByMint(_ context.Context, mint string) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.byMint[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	listingCopy := *l
	return &listingCopy, nil
}

// Insert adds a new listing. Returns ErrDuplicateKey if the mint exists.
func (s *ListingStore) Insert(_ context.Context, l *domain.Listing) error {
	if l == nil || l.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byMint[l.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	listingCopy := *l
	s.byMint[l.Mint] = &listingCopy
	return nil
}

// Update applies a mutation to an existing listing. Returns ErrNotFound if
// the mint has no record.
func (s *ListingStore) Update(_ context.Context, mint string, m *domain.ListingMutation) error {
	if mint == "" || m == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.byMint[mint]
	if !exists {
		return storage.ErrNotFound
	}

	l.Apply(m)
	return nil
}
