// Package settlement computes and pays out winnings for finalized markets.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/predictify/predictifyd/internal/domain"
)

const lockTTL = 10 * time.Second

// DefaultFeePercent is the platform fee retained from each winning stake.
const DefaultFeePercent = 2

// Calculator settles claims against finalized markets. Payout arithmetic runs
// on arbitrary-precision decimals so the intermediate products cannot
// overflow, and every division truncates toward zero. Rounding dust stays in
// the pool.
type Calculator struct {
	markets    domain.MarketStore
	stakes     domain.StakeStore
	locks      domain.LockManager
	events     domain.EventSink
	clock      domain.Clock
	logger     *slog.Logger
	feePercent int64
}

// NewCalculator creates a Calculator. feePercent must be in [0, 100];
// out-of-range values fall back to the default.
func NewCalculator(
	markets domain.MarketStore,
	stakes domain.StakeStore,
	locks domain.LockManager,
	events domain.EventSink,
	clock domain.Clock,
	logger *slog.Logger,
	feePercent int64,
) *Calculator {
	if feePercent < 0 || feePercent > 100 {
		feePercent = DefaultFeePercent
	}
	return &Calculator{
		markets:    markets,
		stakes:     stakes,
		locks:      locks,
		events:     events,
		clock:      clock,
		logger:     logger,
		feePercent: feePercent,
	}
}

// Payout computes a participant's payout for a finalized market without
// paying it out: zero for losers, the fee-adjusted pro-rata share of the
// total pool for winners.
//
//	net_share = stake * (100 - fee) / 100      (truncated)
//	payout    = net_share * total / win_pool   (truncated)
func (c *Calculator) Payout(ctx context.Context, m domain.Market, e domain.StakeEntry) (int64, error) {
	if !m.Resolution.Finalized {
		return 0, domain.ErrNotFinalized
	}
	if e.Outcome != m.WinningOutcome {
		return 0, nil
	}

	winPool, err := c.stakes.OutcomeTotal(ctx, m.ID, m.WinningOutcome)
	if err != nil {
		return 0, fmt.Errorf("settlement: outcome total %s/%s: %w", m.ID, m.WinningOutcome, err)
	}
	if winPool <= 0 {
		return 0, nil
	}

	stake := decimal.NewFromInt(e.Amount)
	keep := decimal.NewFromInt(100 - c.feePercent)
	netShare, _ := stake.Mul(keep).QuoRem(decimal.NewFromInt(100), 0)
	payout, _ := netShare.Mul(decimal.NewFromInt(m.TotalStaked)).QuoRem(decimal.NewFromInt(winPool), 0)
	return payout.IntPart(), nil
}

// Claim settles a participant's stake in a finalized market. Each entry can
// be claimed exactly once; losing entries are marked claimed with a zero
// payout so a repeat claim fails the same way a repeat winning claim does.
func (c *Calculator) Claim(ctx context.Context, marketID, participant string) (domain.StakeEntry, error) {
	unlock, err := c.locks.Acquire(ctx, lockKey(marketID), lockTTL)
	if err != nil {
		return domain.StakeEntry{}, err
	}
	defer unlock()

	m, err := c.markets.Get(ctx, marketID)
	if err != nil {
		return domain.StakeEntry{}, fmt.Errorf("settlement: get market %q: %w", marketID, err)
	}
	if !m.Resolution.Finalized {
		return domain.StakeEntry{}, domain.ErrNotFinalized
	}

	e, err := c.stakes.Get(ctx, marketID, participant)
	if err != nil {
		return domain.StakeEntry{}, fmt.Errorf("settlement: get stake %s/%s: %w", marketID, participant, err)
	}
	if e.Claimed {
		return domain.StakeEntry{}, domain.ErrAlreadyClaimed
	}

	payout, err := c.Payout(ctx, m, e)
	if err != nil {
		return domain.StakeEntry{}, err
	}

	if err := c.stakes.MarkClaimed(ctx, marketID, participant, payout); err != nil {
		return domain.StakeEntry{}, fmt.Errorf("settlement: mark claimed %s/%s: %w", marketID, participant, err)
	}

	now := c.clock.Now()
	e.Claimed = true
	e.Payout = payout
	e.ClaimedAt = &now

	c.events.Publish(domain.Event{
		Kind:     domain.EventPayoutClaimed,
		MarketID: marketID,
		At:       now,
		Detail:   map[string]any{"participant": participant, "payout": payout},
	})
	c.logger.InfoContext(ctx, "settlement: claimed",
		slog.String("market_id", marketID),
		slog.String("participant", participant),
		slog.Int64("payout", payout),
	)
	return e, nil
}

// FeePercent returns the configured platform fee.
func (c *Calculator) FeePercent() int64 { return c.feePercent }

func lockKey(marketID string) string {
	return "market:" + marketID
}
