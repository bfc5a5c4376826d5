package resolution

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predictify/predictifyd/internal/domain"
)

// Dispute records a challenge against the proposed outcome. Disputes are only
// legal while the window is open; each one bumps the counter and leaves a
// trail in the audit log.
func (e *Engine) Dispute(ctx context.Context, marketID, participant, reason string) (domain.Market, error) {
	unlock, err := e.locks.Acquire(ctx, lockKey(marketID), lockTTL)
	if err != nil {
		return domain.Market{}, err
	}
	defer unlock()

	m, err := e.markets.Get(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("resolution: get market %q: %w", marketID, err)
	}

	now := e.clock.Now()
	switch {
	case m.Resolution.Finalized:
		return domain.Market{}, domain.ErrAlreadyFinalized
	case !m.HasProposal():
		return domain.Market{}, domain.ErrNoProposal
	case !m.IsWindowOpen(now):
		return domain.Market{}, domain.ErrWindowClosed
	}

	m.Resolution.DisputeCount++
	m.UpdatedAt = now
	if err := e.update(ctx, m); err != nil {
		return domain.Market{}, err
	}

	e.logAudit(ctx, "dispute_recorded", map[string]any{
		"market_id":   marketID,
		"participant": participant,
		"reason":      reason,
		"count":       m.Resolution.DisputeCount,
	})
	e.events.Publish(domain.Event{
		Kind:     domain.EventDisputeRecorded,
		MarketID: marketID,
		At:       now,
		Detail:   map[string]any{"participant": participant, "count": m.Resolution.DisputeCount},
	})
	e.logger.InfoContext(ctx, "resolution: dispute recorded",
		slog.String("market_id", marketID),
		slog.Int("count", m.Resolution.DisputeCount),
	)
	return m, nil
}

// Escalate moves a market with an open or recent dispute into the disputed
// state. A disputed market cannot be finalized through the normal path until
// ResolveDisputes or ForceFinalize clears it.
func (e *Engine) Escalate(ctx context.Context, caller, marketID string) (domain.Market, error) {
	if !e.auth.IsAdmin(caller) {
		return domain.Market{}, domain.ErrUnauthorized
	}

	unlock, err := e.locks.Acquire(ctx, lockKey(marketID), lockTTL)
	if err != nil {
		return domain.Market{}, err
	}
	defer unlock()

	m, err := e.markets.Get(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("resolution: get market %q: %w", marketID, err)
	}

	now := e.clock.Now()
	switch {
	case m.Resolution.Finalized:
		return domain.Market{}, domain.ErrAlreadyFinalized
	case !m.HasProposal():
		return domain.Market{}, domain.ErrNoProposal
	case m.Resolution.DisputeCount == 0:
		return domain.Market{}, domain.ErrInvalidInput
	}

	m.State = domain.MarketStateDisputed
	m.UpdatedAt = now
	if err := e.update(ctx, m); err != nil {
		return domain.Market{}, err
	}

	e.logAudit(ctx, "dispute_escalated", map[string]any{"market_id": marketID})
	e.events.Publish(domain.Event{
		Kind:     domain.EventDisputeEscalated,
		MarketID: marketID,
		At:       now,
	})
	return m, nil
}

// ResolveDisputes clears the disputed state, returning the market to the
// normal finalization path with its proposal intact.
func (e *Engine) ResolveDisputes(ctx context.Context, caller, marketID string) (domain.Market, error) {
	if !e.auth.IsAdmin(caller) {
		return domain.Market{}, domain.ErrUnauthorized
	}

	unlock, err := e.locks.Acquire(ctx, lockKey(marketID), lockTTL)
	if err != nil {
		return domain.Market{}, err
	}
	defer unlock()

	m, err := e.markets.Get(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("resolution: get market %q: %w", marketID, err)
	}
	if m.State != domain.MarketStateDisputed {
		return domain.Market{}, domain.ErrInvalidInput
	}

	now := e.clock.Now()
	m.State = domain.MarketStateActive
	m.UpdatedAt = now
	if err := e.update(ctx, m); err != nil {
		return domain.Market{}, err
	}

	e.logAudit(ctx, "disputes_resolved", map[string]any{"market_id": marketID})
	e.events.Publish(domain.Event{
		Kind:     domain.EventDisputesResolved,
		MarketID: marketID,
		At:       now,
	})
	return m, nil
}
