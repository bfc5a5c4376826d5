package memory

import (
	"context"
	"sync"

	"github.com/predictify/predictifyd/internal/domain"
)

type stakeKey struct {
	marketID    string
	participant string
}

type outcomeKey struct {
	marketID string
	outcome  string
}

// StakeStore is an in-memory domain.StakeStore. Record keeps the running
// per-outcome totals alongside the entries, mirroring the outcome_totals
// table in the postgres implementation.
type StakeStore struct {
	mu      sync.RWMutex
	entries map[stakeKey]domain.StakeEntry
	totals  map[outcomeKey]int64

	markets *MarketStore
}

// NewStakeStore creates an empty StakeStore. When markets is non-nil, Record
// also bumps the market's TotalStaked counter, as the postgres store does in
// its transaction.
func NewStakeStore(markets *MarketStore) *StakeStore {
	return &StakeStore{
		entries: make(map[stakeKey]domain.StakeEntry),
		totals:  make(map[outcomeKey]int64),
		markets: markets,
	}
}

// Record applies a stake entry, its outcome total, and the market total as
// one atomic write. A second entry for the same participant fails with
// ErrAlreadyStaked.
func (s *StakeStore) Record(ctx context.Context, e domain.StakeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := stakeKey{e.MarketID, e.Participant}
	if _, ok := s.entries[k]; ok {
		return domain.ErrAlreadyStaked
	}
	s.entries[k] = e
	s.totals[outcomeKey{e.MarketID, e.Outcome}] += e.Amount

	if s.markets != nil {
		s.markets.mu.Lock()
		if m, ok := s.markets.markets[e.MarketID]; ok {
			m.TotalStaked += e.Amount
			s.markets.markets[e.MarketID] = m
		}
		s.markets.mu.Unlock()
	}
	return nil
}

// Get retrieves a participant's entry for a market.
func (s *StakeStore) Get(ctx context.Context, marketID, participant string) (domain.StakeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[stakeKey{marketID, participant}]
	if !ok {
		return domain.StakeEntry{}, domain.ErrNotFound
	}
	return e, nil
}

// OutcomeTotal returns the total staked on one outcome of a market.
func (s *StakeStore) OutcomeTotal(ctx context.Context, marketID, outcome string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals[outcomeKey{marketID, outcome}], nil
}

// ListByMarket returns every entry for a market.
func (s *StakeStore) ListByMarket(ctx context.Context, marketID string) ([]domain.StakeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StakeEntry
	for k, e := range s.entries {
		if k.marketID == marketID {
			out = append(out, e)
		}
	}
	return out, nil
}

// MarkClaimed sets the claimed flag and payout, failing with
// ErrAlreadyClaimed when the flag is already set.
func (s *StakeStore) MarkClaimed(ctx context.Context, marketID, participant string, payout int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := stakeKey{marketID, participant}
	e, ok := s.entries[k]
	if !ok {
		return domain.ErrNotFound
	}
	if e.Claimed {
		return domain.ErrAlreadyClaimed
	}
	e.Claimed = true
	e.Payout = payout
	s.entries[k] = e
	return nil
}
