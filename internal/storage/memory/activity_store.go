package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/SwarmMonkey/tensor-listener/internal/domain"
	"github.com/SwarmMonkey/tensor-listener/internal/storage"
)

// ActivityStore is an in-memory implementation of storage.ActivityStore.
type ActivityStore struct {
	mu   sync.RWMutex
	rows []*domain.MarketActivity
}

// NewActivityStore creates a new in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

var _ storage.ActivityStore = (*ActivityStore)(nil)

// Insert appends one activity row.
func (s *ActivityStore) Insert(_ context.Context, a *domain.MarketActivity) error {
	if a == nil || a.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rowCopy := *a
	s.rows = append(s.rows, &rowCopy)
	return nil
}

// GetByMint retrieves all activity for a mint, ordered by timestamp ASC.
func (s *ActivityStore) GetByMint(_ context.Context, mint string) ([]*domain.MarketActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.MarketActivity
	for _, a := range s.rows {
		if a.Mint == mint {
			rowCopy := *a
			out = append(out, &rowCopy)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out, nil
}
