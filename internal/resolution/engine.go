// Package resolution drives the outcome-resolution lifecycle: proposals, the
// dispute window, and finalization.
package resolution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/predictify/predictifyd/internal/domain"
)

// lockTTL bounds how long a per-market lock may be held if a holder dies
// without releasing.
const lockTTL = 10 * time.Second

// Engine applies lifecycle transitions to markets. Every mutation runs under
// the per-market lock so check-and-write pairs stay atomic across processes.
type Engine struct {
	markets domain.MarketStore
	windows domain.WindowConfigStore
	audit   domain.AuditStore
	locks   domain.LockManager
	events  domain.EventSink
	auth    domain.Authorizer
	cache   domain.MarketCache
	clock   domain.Clock
	logger  *slog.Logger
}

// NewEngine creates an Engine. cache may be nil.
func NewEngine(
	markets domain.MarketStore,
	windows domain.WindowConfigStore,
	audit domain.AuditStore,
	locks domain.LockManager,
	events domain.EventSink,
	auth domain.Authorizer,
	cache domain.MarketCache,
	clock domain.Clock,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		markets: markets,
		windows: windows,
		audit:   audit,
		locks:   locks,
		events:  events,
		auth:    auth,
		cache:   cache,
		clock:   clock,
		logger:  logger,
	}
}

// EffectiveWindowHours resolves the dispute-window duration for a market:
// the per-market override when set, otherwise the global config.
func (e *Engine) EffectiveWindowHours(ctx context.Context, m domain.Market) (int, error) {
	if m.WindowHours != 0 {
		return m.WindowHours, nil
	}
	cfg, err := e.windows.GetGlobal(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolution: get global window: %w", err)
	}
	return cfg.Hours, nil
}

// Propose records a resolution proposal for an ended market and opens the
// dispute window. The window duration is snapshotted at this instant; later
// configuration changes do not move an open window's close time.
func (e *Engine) Propose(ctx context.Context, marketID, outcome, source string) (domain.Market, error) {
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
	case m.HasProposal():
		return domain.Market{}, domain.ErrAlreadyProposed
	case !m.HasEnded(now):
		return domain.Market{}, domain.ErrMarketNotEnded
	case !m.HasOutcome(outcome):
		return domain.Market{}, domain.ErrOutcomeMismatch
	}

	hours, err := e.EffectiveWindowHours(ctx, m)
	if err != nil {
		return domain.Market{}, err
	}

	m.Resolution = domain.Resolution{
		ProposedOutcome: outcome,
		ProposedAt:      now,
		WindowClosesAt:  now.Add(time.Duration(hours) * time.Hour),
		Source:          source,
	}
	m.UpdatedAt = now

	if err := e.update(ctx, m); err != nil {
		return domain.Market{}, err
	}

	e.events.Publish(domain.Event{
		Kind:     domain.EventResolutionProposed,
		MarketID: m.ID,
		At:       now,
		Detail: map[string]any{
			"outcome":          outcome,
			"source":           source,
			"window_closes_at": m.Resolution.WindowClosesAt,
		},
	})
	e.logger.InfoContext(ctx, "resolution: proposed",
		slog.String("market_id", m.ID),
		slog.String("outcome", outcome),
		slog.Int("window_hours", hours),
	)
	return m, nil
}

// Finalize commits the proposed outcome once the dispute window has closed
// and no dispute is outstanding. It is idempotent in effect but a second call
// fails with ErrAlreadyFinalized.
func (e *Engine) Finalize(ctx context.Context, marketID string) (domain.Market, error) {
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
	case m.IsWindowOpen(now):
		return domain.Market{}, domain.ErrWindowStillOpen
	case m.State == domain.MarketStateDisputed:
		return domain.Market{}, domain.ErrUnresolvedDisputes
	}

	m.Resolution.Finalized = true
	m.WinningOutcome = m.Resolution.ProposedOutcome
	m.State = domain.MarketStateFinalized
	m.UpdatedAt = now

	if err := e.update(ctx, m); err != nil {
		return domain.Market{}, err
	}

	e.logAudit(ctx, "resolution_finalized", map[string]any{
		"market_id":      m.ID,
		"outcome":        m.WinningOutcome,
		"dispute_count":  m.Resolution.DisputeCount,
		"was_overridden": false,
	})
	e.events.Publish(domain.Event{
		Kind:     domain.EventResolutionFinalized,
		MarketID: m.ID,
		At:       now,
		Detail:   map[string]any{"outcome": m.WinningOutcome},
	})
	e.logger.InfoContext(ctx, "resolution: finalized",
		slog.String("market_id", m.ID),
		slog.String("outcome", m.WinningOutcome),
	)
	return m, nil
}

// ForceFinalize lets an administrator set the final outcome directly,
// bypassing the window and any disputes. Used when the oracle fails or a
// dispute deadlocks. The forced path is always audit-logged.
func (e *Engine) ForceFinalize(ctx context.Context, caller, marketID, outcome string) (domain.Market, error) {
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
	if m.Resolution.Finalized {
		return domain.Market{}, domain.ErrAlreadyFinalized
	}
	if !m.HasOutcome(outcome) {
		return domain.Market{}, domain.ErrOutcomeMismatch
	}

	// A forced finalize without a prior proposal records a synthetic
	// zero-duration one so the resolution snapshot is never empty.
	if !m.HasProposal() {
		m.Resolution = domain.Resolution{
			ProposedOutcome: outcome,
			ProposedAt:      now,
			WindowClosesAt:  now,
			Source:          "admin_override",
		}
	}

	overrode := m.Resolution.ProposedOutcome != outcome
	m.Resolution.ProposedOutcome = outcome
	m.Resolution.Finalized = true
	m.Resolution.Overridden = true
	m.WinningOutcome = outcome
	m.State = domain.MarketStateFinalized
	m.UpdatedAt = now

	if err := e.update(ctx, m); err != nil {
		return domain.Market{}, err
	}

	e.logAudit(ctx, "resolution_finalized", map[string]any{
		"market_id":        m.ID,
		"outcome":          outcome,
		"dispute_count":    m.Resolution.DisputeCount,
		"was_overridden":   true,
		"proposal_changed": overrode,
	})
	e.events.Publish(domain.Event{
		Kind:     domain.EventResolutionOverridden,
		MarketID: m.ID,
		At:       now,
		Detail:   map[string]any{"outcome": outcome},
	})
	e.logger.WarnContext(ctx, "resolution: force-finalized",
		slog.String("market_id", m.ID),
		slog.String("outcome", outcome),
	)
	return m, nil
}

// SetGlobalWindow updates the global dispute-window duration. Already-open
// windows keep the close time snapshotted at proposal.
func (e *Engine) SetGlobalWindow(ctx context.Context, caller string, hours int) (domain.WindowConfig, error) {
	if !e.auth.IsAdmin(caller) {
		return domain.WindowConfig{}, domain.ErrUnauthorized
	}
	if err := domain.ValidateGlobalWindow(hours); err != nil {
		return domain.WindowConfig{}, err
	}

	now := e.clock.Now()
	cfg := domain.WindowConfig{Hours: hours, UpdatedAt: now}
	if err := e.windows.SetGlobal(ctx, cfg); err != nil {
		return domain.WindowConfig{}, fmt.Errorf("resolution: set global window: %w", err)
	}

	e.logAudit(ctx, "window_config_changed", map[string]any{"scope": "global", "hours": hours})
	e.events.Publish(domain.Event{
		Kind:   domain.EventWindowConfigChanged,
		At:     now,
		Detail: map[string]any{"scope": "global", "hours": hours},
	})
	return cfg, nil
}

// SetMarketWindow sets or clears a per-market window override. Zero clears
// the override back to the global config.
func (e *Engine) SetMarketWindow(ctx context.Context, caller, marketID string, hours int) (domain.Market, error) {
	if !e.auth.IsAdmin(caller) {
		return domain.Market{}, domain.ErrUnauthorized
	}
	if err := domain.ValidateMarketWindow(hours); err != nil {
		return domain.Market{}, err
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
	m.WindowHours = hours
	m.UpdatedAt = now
	if err := e.update(ctx, m); err != nil {
		return domain.Market{}, err
	}

	e.logAudit(ctx, "window_config_changed", map[string]any{
		"scope": "market", "market_id": marketID, "hours": hours,
	})
	e.events.Publish(domain.Event{
		Kind:     domain.EventWindowConfigChanged,
		MarketID: marketID,
		At:       now,
		Detail:   map[string]any{"scope": "market", "hours": hours},
	})
	return m, nil
}

// GlobalWindow returns the global dispute-window config.
func (e *Engine) GlobalWindow(ctx context.Context) (domain.WindowConfig, error) {
	return e.windows.GetGlobal(ctx)
}

// WindowStatus describes the dispute window of one market at one instant.
type WindowStatus struct {
	Open      bool      `json:"open"`
	ClosesAt  time.Time `json:"closes_at,omitzero"`
	Remaining int64     `json:"remaining_seconds"`
}

// Window reports the dispute-window status of a market. Without a proposal
// there is no window; ClosesAt stays zero.
func (e *Engine) Window(ctx context.Context, marketID string) (WindowStatus, error) {
	m, err := e.markets.Get(ctx, marketID)
	if err != nil {
		return WindowStatus{}, fmt.Errorf("resolution: get market %q: %w", marketID, err)
	}
	if !m.HasProposal() {
		return WindowStatus{}, nil
	}

	now := e.clock.Now()
	st := WindowStatus{
		Open:     m.IsWindowOpen(now),
		ClosesAt: m.Resolution.WindowClosesAt,
	}
	if st.Open {
		st.Remaining = int64(m.Resolution.WindowClosesAt.Sub(now) / time.Second)
	}
	return st, nil
}

// CanFinalize reports whether a market is eligible for finalization right
// now, without mutating anything.
func (e *Engine) CanFinalize(ctx context.Context, marketID string) (bool, error) {
	m, err := e.markets.Get(ctx, marketID)
	if err != nil {
		return false, fmt.Errorf("resolution: get market %q: %w", marketID, err)
	}
	now := e.clock.Now()
	return m.HasProposal() &&
		!m.Resolution.Finalized &&
		!m.IsWindowOpen(now) &&
		m.State != domain.MarketStateDisputed, nil
}

// update persists the market and drops any cached copy.
func (e *Engine) update(ctx context.Context, m domain.Market) error {
	if err := e.markets.Update(ctx, m); err != nil {
		return fmt.Errorf("resolution: update market %s: %w", m.ID, err)
	}
	if e.cache != nil {
		if err := e.cache.Invalidate(ctx, m.ID); err != nil {
			e.logger.WarnContext(ctx, "resolution: cache invalidate failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// logAudit writes an audit entry; failures are logged, never propagated.
func (e *Engine) logAudit(ctx context.Context, event string, detail map[string]any) {
	if err := e.audit.Log(ctx, event, detail); err != nil {
		e.logger.ErrorContext(ctx, "resolution: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func lockKey(marketID string) string {
	return "market:" + marketID
}
