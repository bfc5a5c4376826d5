package resolution

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/predictify/predictifyd/internal/domain"
	"github.com/predictify/predictifyd/internal/store/memory"
)

type allowAll struct{}

func (allowAll) IsAdmin(string) bool { return true }

type denyAll struct{}

func (denyAll) IsAdmin(string) bool { return false }

type fixture struct {
	engine  *Engine
	markets *memory.MarketStore
	windows *memory.WindowStore
	audit   *memory.AuditStore
	now     time.Time
}

func newFixture(t *testing.T, auth domain.Authorizer) *fixture {
	t.Helper()
	f := &fixture{
		markets: memory.NewMarketStore(),
		windows: memory.NewWindowStore(),
		audit:   memory.NewAuditStore(),
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := domain.ClockFunc(func() time.Time { return f.now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.engine = NewEngine(
		f.markets, f.windows, f.audit,
		memory.NewLockManager(), domain.NopSink{}, auth, nil, clock, logger,
	)
	return f
}

func (f *fixture) addMarket(t *testing.T, endOffset time.Duration, windowHours int) domain.Market {
	t.Helper()
	m := domain.Market{
		ID:       "m1",
		Question: "Will BTC close above 100k?",
		Outcomes: []string{"yes", "no"},
		EndTime:  f.now.Add(endOffset),
		State:    domain.MarketStateActive,
		Oracle: domain.OracleConfig{
			Provider:   domain.ProviderReflector,
			FeedID:     "BTC/USD",
			Threshold:  10_000_000,
			Comparison: "gt",
		},
		WindowHours: windowHours,
		CreatedAt:   f.now,
	}
	if err := f.markets.Create(context.Background(), m); err != nil {
		t.Fatalf("create market: %v", err)
	}
	return m
}

func TestProposeBeforeEndRejected(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, time.Hour, 0)

	_, err := f.engine.Propose(context.Background(), "m1", "yes", "oracle")
	if !errors.Is(err, domain.ErrMarketNotEnded) {
		t.Fatalf("got %v, want ErrMarketNotEnded", err)
	}
}

func TestProposeAtExactEndTimeAccepted(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, 0, 0) // end time == now

	m, err := f.engine.Propose(context.Background(), "m1", "yes", "oracle")
	if err != nil {
		t.Fatalf("propose at end time: %v", err)
	}
	want := f.now.Add(time.Duration(domain.DefaultWindowHours) * time.Hour)
	if !m.Resolution.WindowClosesAt.Equal(want) {
		t.Errorf("window closes at %v, want %v", m.Resolution.WindowClosesAt, want)
	}
}

func TestProposeUnknownOutcome(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)

	_, err := f.engine.Propose(context.Background(), "m1", "maybe", "oracle")
	if !errors.Is(err, domain.ErrOutcomeMismatch) {
		t.Fatalf("got %v, want ErrOutcomeMismatch", err)
	}
}

func TestProposeTwiceRejected(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)
	ctx := context.Background()

	if _, err := f.engine.Propose(ctx, "m1", "yes", "oracle"); err != nil {
		t.Fatalf("first propose: %v", err)
	}
	if _, err := f.engine.Propose(ctx, "m1", "no", "oracle"); !errors.Is(err, domain.ErrAlreadyProposed) {
		t.Fatalf("got %v, want ErrAlreadyProposed", err)
	}
}

func TestProposeUsesMarketOverride(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 6)

	m, err := f.engine.Propose(context.Background(), "m1", "yes", "oracle")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	want := f.now.Add(6 * time.Hour)
	if !m.Resolution.WindowClosesAt.Equal(want) {
		t.Errorf("window closes at %v, want %v", m.Resolution.WindowClosesAt, want)
	}
}

func TestGlobalWindowChangeDoesNotMoveOpenWindow(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)
	ctx := context.Background()

	m, err := f.engine.Propose(ctx, "m1", "yes", "oracle")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	closesAt := m.Resolution.WindowClosesAt

	if _, err := f.engine.SetGlobalWindow(ctx, "admin", 1); err != nil {
		t.Fatalf("set global window: %v", err)
	}

	got, err := f.markets.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	if !got.Resolution.WindowClosesAt.Equal(closesAt) {
		t.Errorf("open window moved to %v after config change", got.Resolution.WindowClosesAt)
	}
}

func TestFinalizeInsideWindowRejected(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)
	ctx := context.Background()

	if _, err := f.engine.Propose(ctx, "m1", "yes", "oracle"); err != nil {
		t.Fatalf("propose: %v", err)
	}

	f.now = f.now.Add(47 * time.Hour)
	if _, err := f.engine.Finalize(ctx, "m1"); !errors.Is(err, domain.ErrWindowStillOpen) {
		t.Fatalf("got %v, want ErrWindowStillOpen", err)
	}
}

func TestFinalizeAtExactWindowClose(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)
	ctx := context.Background()

	m, err := f.engine.Propose(ctx, "m1", "yes", "oracle")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	// The close boundary is exclusive: at exactly WindowClosesAt the
	// window is closed and finalization is legal.
	f.now = m.Resolution.WindowClosesAt
	got, err := f.engine.Finalize(ctx, "m1")
	if err != nil {
		t.Fatalf("finalize at window close: %v", err)
	}
	if got.WinningOutcome != "yes" {
		t.Errorf("winning outcome %q, want yes", got.WinningOutcome)
	}
	if got.State != domain.MarketStateFinalized {
		t.Errorf("state %q, want finalized", got.State)
	}
}

func TestFinalizeWithoutProposal(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)

	_, err := f.engine.Finalize(context.Background(), "m1")
	if !errors.Is(err, domain.ErrNoProposal) {
		t.Fatalf("got %v, want ErrNoProposal", err)
	}
}

func TestFinalizeTwiceRejected(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 1)
	ctx := context.Background()

	if _, err := f.engine.Propose(ctx, "m1", "yes", "oracle"); err != nil {
		t.Fatalf("propose: %v", err)
	}
	f.now = f.now.Add(2 * time.Hour)
	if _, err := f.engine.Finalize(ctx, "m1"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := f.engine.Finalize(ctx, "m1"); !errors.Is(err, domain.ErrAlreadyFinalized) {
		t.Fatalf("got %v, want ErrAlreadyFinalized", err)
	}
}

func TestFinalizeBlockedByEscalatedDispute(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 1)
	ctx := context.Background()

	if _, err := f.engine.Propose(ctx, "m1", "yes", "oracle"); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := f.engine.Dispute(ctx, "m1", "alice", "wrong feed"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if _, err := f.engine.Escalate(ctx, "admin", "m1"); err != nil {
		t.Fatalf("escalate: %v", err)
	}

	f.now = f.now.Add(2 * time.Hour)
	if _, err := f.engine.Finalize(ctx, "m1"); !errors.Is(err, domain.ErrUnresolvedDisputes) {
		t.Fatalf("got %v, want ErrUnresolvedDisputes", err)
	}

	if _, err := f.engine.ResolveDisputes(ctx, "admin", "m1"); err != nil {
		t.Fatalf("resolve disputes: %v", err)
	}
	if _, err := f.engine.Finalize(ctx, "m1"); err != nil {
		t.Fatalf("finalize after disputes resolved: %v", err)
	}
}

func TestForceFinalizeWithoutProposal(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)
	ctx := context.Background()

	m, err := f.engine.ForceFinalize(ctx, "admin", "m1", "no")
	if err != nil {
		t.Fatalf("force finalize: %v", err)
	}
	if m.WinningOutcome != "no" {
		t.Errorf("winning outcome %q, want no", m.WinningOutcome)
	}
	if !m.Resolution.Overridden {
		t.Error("resolution not marked overridden")
	}
	if m.Resolution.Source != "admin_override" {
		t.Errorf("source %q, want admin_override", m.Resolution.Source)
	}

	entries, err := f.audit.List(ctx, domain.ListOpts{})
	if err != nil {
		t.Fatalf("audit list: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no audit entry for forced finalize")
	}
	if wo, _ := entries[0].Detail["was_overridden"].(bool); !wo {
		t.Error("audit entry missing was_overridden=true")
	}
}

func TestForceFinalizeUnauthorized(t *testing.T) {
	f := newFixture(t, denyAll{})
	f.addMarket(t, -time.Hour, 0)

	_, err := f.engine.ForceFinalize(context.Background(), "nobody", "m1", "yes")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestForceFinalizeOverridesOpenWindow(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)
	ctx := context.Background()

	if _, err := f.engine.Propose(ctx, "m1", "yes", "oracle"); err != nil {
		t.Fatalf("propose: %v", err)
	}
	// Window is wide open; the override ignores it.
	m, err := f.engine.ForceFinalize(ctx, "admin", "m1", "no")
	if err != nil {
		t.Fatalf("force finalize: %v", err)
	}
	if m.WinningOutcome != "no" {
		t.Errorf("winning outcome %q, want no", m.WinningOutcome)
	}
}

func TestSetGlobalWindowBounds(t *testing.T) {
	f := newFixture(t, allowAll{})
	ctx := context.Background()

	for _, hours := range []int{0, -1, 169} {
		if _, err := f.engine.SetGlobalWindow(ctx, "admin", hours); !errors.Is(err, domain.ErrInvalidDuration) {
			t.Errorf("hours=%d: got %v, want ErrInvalidDuration", hours, err)
		}
	}
	for _, hours := range []int{1, 48, 168} {
		if _, err := f.engine.SetGlobalWindow(ctx, "admin", hours); err != nil {
			t.Errorf("hours=%d: %v", hours, err)
		}
	}
}

func TestSetMarketWindowZeroClearsOverride(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, time.Hour, 6)
	ctx := context.Background()

	m, err := f.engine.SetMarketWindow(ctx, "admin", "m1", 0)
	if err != nil {
		t.Fatalf("clear override: %v", err)
	}
	if m.WindowHours != 0 {
		t.Errorf("window hours %d, want 0", m.WindowHours)
	}

	hours, err := f.engine.EffectiveWindowHours(ctx, m)
	if err != nil {
		t.Fatalf("effective window: %v", err)
	}
	if hours != domain.DefaultWindowHours {
		t.Errorf("effective hours %d, want default %d", hours, domain.DefaultWindowHours)
	}
}

func TestWindowStatus(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 2)
	ctx := context.Background()

	st, err := f.engine.Window(ctx, "m1")
	if err != nil {
		t.Fatalf("window before proposal: %v", err)
	}
	if st.Open || !st.ClosesAt.IsZero() {
		t.Errorf("expected no window before proposal, got %+v", st)
	}

	if _, err := f.engine.Propose(ctx, "m1", "yes", "oracle"); err != nil {
		t.Fatalf("propose: %v", err)
	}

	f.now = f.now.Add(30 * time.Minute)
	st, err = f.engine.Window(ctx, "m1")
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if !st.Open {
		t.Error("window should be open")
	}
	if st.Remaining != 90*60 {
		t.Errorf("remaining %ds, want 5400s", st.Remaining)
	}
}
