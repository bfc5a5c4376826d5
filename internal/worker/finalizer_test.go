package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/predictify/predictifyd/internal/domain"
	"github.com/predictify/predictifyd/internal/resolution"
	"github.com/predictify/predictifyd/internal/store/memory"
)

type allowAll struct{}

func (allowAll) IsAdmin(string) bool { return true }

type countingArchiver struct {
	archived []string
}

func (a *countingArchiver) ArchiveMarket(ctx context.Context, m domain.Market) (int64, error) {
	a.archived = append(a.archived, m.ID)
	return 0, nil
}

func TestSweepFinalizesDueMarkets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := domain.ClockFunc(func() time.Time { return now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	markets := memory.NewMarketStore()
	engine := resolution.NewEngine(
		markets, memory.NewWindowStore(), memory.NewAuditStore(),
		memory.NewLockManager(), domain.NopSink{}, allowAll{}, nil, clock, logger,
	)

	ctx := context.Background()
	mk := func(id string, closesAt time.Time, state domain.MarketState) {
		m := domain.Market{
			ID: id, Question: "q", Outcomes: []string{"yes", "no"},
			EndTime: now.Add(-72 * time.Hour), State: state,
			Resolution: domain.Resolution{
				ProposedOutcome: "yes",
				ProposedAt:      closesAt.Add(-48 * time.Hour),
				WindowClosesAt:  closesAt,
			},
		}
		if err := markets.Create(ctx, m); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	mk("due", now.Add(-time.Hour), domain.MarketStateActive)
	mk("open", now.Add(time.Hour), domain.MarketStateActive)
	mk("disputed", now.Add(-time.Hour), domain.MarketStateDisputed)

	arch := &countingArchiver{}
	f := NewFinalizer(markets, engine, arch, nil, clock, time.Minute, logger)
	f.Sweep(ctx)

	check := func(id string, wantFinalized bool) {
		m, err := markets.Get(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if m.Resolution.Finalized != wantFinalized {
			t.Errorf("%s: finalized=%v, want %v", id, m.Resolution.Finalized, wantFinalized)
		}
	}
	check("due", true)
	check("open", false)
	check("disputed", false)

	if len(arch.archived) != 1 || arch.archived[0] != "due" {
		t.Errorf("archived %v, want [due]", arch.archived)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := domain.ClockFunc(func() time.Time { return now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	markets := memory.NewMarketStore()
	engine := resolution.NewEngine(
		markets, memory.NewWindowStore(), memory.NewAuditStore(),
		memory.NewLockManager(), domain.NopSink{}, allowAll{}, nil, clock, logger,
	)

	ctx := context.Background()
	m := domain.Market{
		ID: "m1", Question: "q", Outcomes: []string{"yes", "no"},
		EndTime: now.Add(-72 * time.Hour), State: domain.MarketStateActive,
		Resolution: domain.Resolution{
			ProposedOutcome: "yes",
			ProposedAt:      now.Add(-49 * time.Hour),
			WindowClosesAt:  now.Add(-time.Hour),
		},
	}
	if err := markets.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}

	arch := &countingArchiver{}
	f := NewFinalizer(markets, engine, arch, nil, clock, time.Minute, logger)
	f.Sweep(ctx)
	f.Sweep(ctx)

	if len(arch.archived) != 1 {
		t.Errorf("archived %d times, want 1", len(arch.archived))
	}
}
