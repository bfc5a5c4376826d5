// Package memory implements the domain store interfaces with in-process maps.
// It backs unit tests and the local development mode; the postgres package is
// the production implementation.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/predictify/predictifyd/internal/domain"
)

// MarketStore is an in-memory domain.MarketStore.
type MarketStore struct {
	mu      sync.RWMutex
	markets map[string]domain.Market
}

// NewMarketStore creates an empty MarketStore.
func NewMarketStore() *MarketStore {
	return &MarketStore{markets: make(map[string]domain.Market)}
}

// Create inserts a market. Inserting an existing ID fails with
// ErrInvalidInput.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.ID]; ok {
		return domain.ErrInvalidInput
	}
	s.markets[m.ID] = cloneMarket(m)
	return nil
}

// Get retrieves a market by ID.
func (s *MarketStore) Get(ctx context.Context, id string) (domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return cloneMarket(m), nil
}

// Update replaces a stored market.
func (s *MarketStore) Update(ctx context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.ID]; !ok {
		return domain.ErrNotFound
	}
	s.markets[m.ID] = cloneMarket(m)
	return nil
}

// ListNeedingFinalization returns markets whose dispute window has closed and
// that are neither finalized nor disputed.
func (s *MarketStore) ListNeedingFinalization(ctx context.Context, now time.Time, limit int) ([]domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Market
	for _, m := range s.markets {
		if limit > 0 && len(out) >= limit {
			break
		}
		if !m.HasProposal() || m.Resolution.Finalized || m.State == domain.MarketStateDisputed {
			continue
		}
		if now.Before(m.Resolution.WindowClosesAt) {
			continue
		}
		out = append(out, cloneMarket(m))
	}
	return out, nil
}

// Count returns the number of stored markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.markets)), nil
}

func cloneMarket(m domain.Market) domain.Market {
	out := m
	out.Outcomes = append([]string(nil), m.Outcomes...)
	return out
}
