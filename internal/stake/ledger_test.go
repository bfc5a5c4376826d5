package stake

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

type fixture struct {
	ledger  *Ledger
	markets *memory.MarketStore
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		markets: memory.NewMarketStore(),
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	stakes := memory.NewStakeStore(f.markets)
	clock := domain.ClockFunc(func() time.Time { return f.now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.ledger = NewLedger(f.markets, stakes, nil, domain.NopSink{}, clock, logger)
	return f
}

func (f *fixture) addMarket(t *testing.T, endOffset time.Duration) {
	t.Helper()
	m := domain.Market{
		ID:       "m1",
		Question: "q",
		Outcomes: []string{"yes", "no"},
		EndTime:  f.now.Add(endOffset),
		State:    domain.MarketStateActive,
	}
	if err := f.markets.Create(context.Background(), m); err != nil {
		t.Fatalf("create market: %v", err)
	}
}

func TestRecordStake(t *testing.T) {
	f := newFixture(t)
	f.addMarket(t, time.Hour)
	ctx := context.Background()

	e, err := f.ledger.Record(ctx, "m1", "alice", "yes", 100)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if e.Amount != 100 || e.Outcome != "yes" {
		t.Errorf("unexpected entry %+v", e)
	}

	m, err := f.markets.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	if m.TotalStaked != 100 {
		t.Errorf("total staked %d, want 100", m.TotalStaked)
	}

	total, err := f.ledger.OutcomeTotal(ctx, "m1", "yes")
	if err != nil {
		t.Fatalf("outcome total: %v", err)
	}
	if total != 100 {
		t.Errorf("outcome total %d, want 100", total)
	}
}

func TestRecordTwiceRejected(t *testing.T) {
	f := newFixture(t)
	f.addMarket(t, time.Hour)
	ctx := context.Background()

	if _, err := f.ledger.Record(ctx, "m1", "alice", "yes", 100); err != nil {
		t.Fatalf("first record: %v", err)
	}
	_, err := f.ledger.Record(ctx, "m1", "alice", "no", 50)
	if !errors.Is(err, domain.ErrAlreadyStaked) {
		t.Fatalf("got %v, want ErrAlreadyStaked", err)
	}
}

func TestRecordAfterEndRejected(t *testing.T) {
	f := newFixture(t)
	f.addMarket(t, 0) // ends exactly now

	_, err := f.ledger.Record(context.Background(), "m1", "alice", "yes", 100)
	if !errors.Is(err, domain.ErrMarketClosed) {
		t.Fatalf("got %v, want ErrMarketClosed", err)
	}
}

func TestRecordUnknownOutcome(t *testing.T) {
	f := newFixture(t)
	f.addMarket(t, time.Hour)

	_, err := f.ledger.Record(context.Background(), "m1", "alice", "maybe", 100)
	if !errors.Is(err, domain.ErrOutcomeMismatch) {
		t.Fatalf("got %v, want ErrOutcomeMismatch", err)
	}
}

func TestRecordInvalidAmount(t *testing.T) {
	f := newFixture(t)
	f.addMarket(t, time.Hour)
	ctx := context.Background()

	for _, amount := range []int64{0, -5} {
		if _, err := f.ledger.Record(ctx, "m1", "alice", "yes", amount); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("amount=%d: got %v, want ErrInvalidInput", amount, err)
		}
	}
}

func TestRecordUnknownMarket(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Record(context.Background(), "nope", "alice", "yes", 100)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
