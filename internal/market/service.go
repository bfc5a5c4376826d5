// Package market handles market creation and retrieval.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/predictify/predictifyd/internal/domain"
)

// Service creates and serves markets. Reads go through the cache when one is
// configured; writes always hit the persistent store.
type Service struct {
	markets domain.MarketStore
	cache   domain.MarketCache
	events  domain.EventSink
	clock   domain.Clock
	logger  *slog.Logger
}

// NewService creates a Service. cache may be nil.
func NewService(
	markets domain.MarketStore,
	cache domain.MarketCache,
	events domain.EventSink,
	clock domain.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		markets: markets,
		cache:   cache,
		events:  events,
		clock:   clock,
		logger:  logger,
	}
}

// CreateParams carries the caller-supplied fields of a new market.
type CreateParams struct {
	Question    string
	Outcomes    []string
	EndTime     int64 // unix seconds
	Oracle      domain.OracleConfig
	WindowHours int // 0 inherits the global dispute window
}

// Create validates the parameters, assigns an ID, and persists the market in
// the active state with an empty stake ledger.
func (s *Service) Create(ctx context.Context, p CreateParams) (domain.Market, error) {
	now := s.clock.Now()

	if err := domain.ValidateMarketWindow(p.WindowHours); err != nil {
		return domain.Market{}, err
	}

	m := domain.Market{
		ID:          uuid.NewString(),
		Question:    p.Question,
		Outcomes:    append([]string(nil), p.Outcomes...),
		EndTime:     unixTime(p.EndTime),
		Oracle:      p.Oracle,
		State:       domain.MarketStateActive,
		WindowHours: p.WindowHours,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.Validate(now); err != nil {
		return domain.Market{}, err
	}

	if err := s.markets.Create(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market: create %s: %w", m.ID, err)
	}

	s.events.Publish(domain.Event{
		Kind:     domain.EventMarketCreated,
		MarketID: m.ID,
		At:       now,
		Detail:   map[string]any{"question": m.Question, "end_time": m.EndTime},
	})
	s.logger.InfoContext(ctx, "market: created",
		slog.String("market_id", m.ID),
		slog.Int("outcomes", len(m.Outcomes)),
	)
	return m, nil
}

// Get retrieves a market, checking the cache first and falling back to the
// store on a miss.
func (s *Service) Get(ctx context.Context, id string) (domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, id); err == nil {
			return m, nil
		}
	}

	m, err := s.markets.Get(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market: get %q: %w", id, err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
			s.logger.WarnContext(ctx, "market: cache set failed",
				slog.String("market_id", id),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return m, nil
}

// Count returns the number of markets in the store.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.markets.Count(ctx)
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
