package market

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

func newService(t *testing.T, now time.Time) (*Service, *memory.MarketStore) {
	t.Helper()
	markets := memory.NewMarketStore()
	clock := domain.ClockFunc(func() time.Time { return now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(markets, nil, domain.NopSink{}, clock, logger), markets
}

func validParams(now time.Time) CreateParams {
	return CreateParams{
		Question: "Will ETH close above 5k?",
		Outcomes: []string{"yes", "no"},
		EndTime:  now.Add(24 * time.Hour).Unix(),
		Oracle: domain.OracleConfig{
			Provider:   domain.ProviderPyth,
			FeedID:     "ETH/USD",
			Threshold:  500_000,
			Comparison: "gt",
		},
	}
}

func TestCreateMarket(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newService(t, now)

	m, err := svc.Create(context.Background(), validParams(now))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID == "" {
		t.Error("no ID assigned")
	}
	if m.State != domain.MarketStateActive {
		t.Errorf("state %q, want active", m.State)
	}
	if m.TotalStaked != 0 {
		t.Errorf("total staked %d, want 0", m.TotalStaked)
	}
	if got := m.Phase(now); got != domain.PhaseActive {
		t.Errorf("phase %q, want active", got)
	}
}

func TestCreateValidation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newService(t, now)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateParams)
		want   error
	}{
		{"empty question", func(p *CreateParams) { p.Question = "   " }, domain.ErrInvalidInput},
		{"one outcome", func(p *CreateParams) { p.Outcomes = []string{"yes"} }, domain.ErrInvalidInput},
		{"duplicate outcomes", func(p *CreateParams) { p.Outcomes = []string{"yes", "yes"} }, domain.ErrInvalidInput},
		{"blank outcome", func(p *CreateParams) { p.Outcomes = []string{"yes", " "} }, domain.ErrInvalidInput},
		{"end time in past", func(p *CreateParams) { p.EndTime = now.Add(-time.Hour).Unix() }, domain.ErrInvalidInput},
		{"end time now", func(p *CreateParams) { p.EndTime = now.Unix() }, domain.ErrInvalidInput},
		{"unsupported provider", func(p *CreateParams) { p.Oracle.Provider = domain.ProviderBand }, domain.ErrInvalidInput},
		{"empty feed", func(p *CreateParams) { p.Oracle.FeedID = "" }, domain.ErrInvalidInput},
		{"zero threshold", func(p *CreateParams) { p.Oracle.Threshold = 0 }, domain.ErrInvalidInput},
		{"bad comparison", func(p *CreateParams) { p.Oracle.Comparison = "ge" }, domain.ErrInvalidInput},
		{"window too long", func(p *CreateParams) { p.WindowHours = 200 }, domain.ErrInvalidDuration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validParams(now)
			tc.mutate(&p)
			if _, err := svc.Create(ctx, p); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestGetUnknownMarket(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newService(t, now)

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPhaseDerivation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, markets := newService(t, now)
	ctx := context.Background()

	m, err := svc.Create(ctx, validParams(now))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Ended is derived from the clock, not stored.
	afterEnd := m.EndTime.Add(time.Minute)
	if got := m.Phase(afterEnd); got != domain.PhaseEnded {
		t.Errorf("phase %q, want ended", got)
	}
	stored, err := markets.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.State != domain.MarketStateActive {
		t.Errorf("stored state %q changed without a write", stored.State)
	}
}
