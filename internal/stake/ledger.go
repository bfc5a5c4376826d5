// Package stake maintains the per-market stake ledger.
package stake

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predictify/predictifyd/internal/domain"
)

// Ledger records and serves stake entries. A participant holds at most one
// entry per market; amounts are immutable once recorded.
type Ledger struct {
	markets domain.MarketStore
	stakes  domain.StakeStore
	cache   domain.MarketCache
	events  domain.EventSink
	clock   domain.Clock
	logger  *slog.Logger
}

// NewLedger creates a Ledger. cache may be nil.
func NewLedger(
	markets domain.MarketStore,
	stakes domain.StakeStore,
	cache domain.MarketCache,
	events domain.EventSink,
	clock domain.Clock,
	logger *slog.Logger,
) *Ledger {
	return &Ledger{
		markets: markets,
		stakes:  stakes,
		cache:   cache,
		events:  events,
		clock:   clock,
		logger:  logger,
	}
}

// Record accepts a stake on an outcome of an active market. The market must
// not have ended, the outcome must be in the market's outcome set, and the
// participant must not have staked before.
func (l *Ledger) Record(ctx context.Context, marketID, participant, outcome string, amount int64) (domain.StakeEntry, error) {
	if participant == "" || amount <= 0 {
		return domain.StakeEntry{}, domain.ErrInvalidInput
	}

	m, err := l.markets.Get(ctx, marketID)
	if err != nil {
		return domain.StakeEntry{}, fmt.Errorf("stake: get market %q: %w", marketID, err)
	}

	now := l.clock.Now()
	if m.State != domain.MarketStateActive || m.HasEnded(now) || m.HasProposal() {
		return domain.StakeEntry{}, domain.ErrMarketClosed
	}
	if !m.HasOutcome(outcome) {
		return domain.StakeEntry{}, domain.ErrOutcomeMismatch
	}

	e := domain.StakeEntry{
		MarketID:    marketID,
		Participant: participant,
		Outcome:     outcome,
		Amount:      amount,
		CreatedAt:   now,
	}
	if err := l.stakes.Record(ctx, e); err != nil {
		return domain.StakeEntry{}, fmt.Errorf("stake: record %s/%s: %w", marketID, participant, err)
	}

	// The store bumped the market's total; drop the stale cached copy.
	if l.cache != nil {
		if cacheErr := l.cache.Invalidate(ctx, marketID); cacheErr != nil {
			l.logger.WarnContext(ctx, "stake: cache invalidate failed",
				slog.String("market_id", marketID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	l.events.Publish(domain.Event{
		Kind:     domain.EventStakeRecorded,
		MarketID: marketID,
		At:       now,
		Detail:   map[string]any{"participant": participant, "outcome": outcome, "amount": amount},
	})
	return e, nil
}

// Get retrieves a participant's entry for a market.
func (l *Ledger) Get(ctx context.Context, marketID, participant string) (domain.StakeEntry, error) {
	e, err := l.stakes.Get(ctx, marketID, participant)
	if err != nil {
		return domain.StakeEntry{}, fmt.Errorf("stake: get %s/%s: %w", marketID, participant, err)
	}
	return e, nil
}

// OutcomeTotal returns the total staked on one outcome of a market.
func (l *Ledger) OutcomeTotal(ctx context.Context, marketID, outcome string) (int64, error) {
	return l.stakes.OutcomeTotal(ctx, marketID, outcome)
}

// ListByMarket returns every stake entry for a market.
func (l *Ledger) ListByMarket(ctx context.Context, marketID string) ([]domain.StakeEntry, error) {
	return l.stakes.ListByMarket(ctx, marketID)
}
