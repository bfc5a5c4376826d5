package settlement

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
	calc    *Calculator
	markets *memory.MarketStore
	stakes  *memory.StakeStore
	now     time.Time
}

func newFixture(t *testing.T, feePercent int64) *fixture {
	t.Helper()
	f := &fixture{
		markets: memory.NewMarketStore(),
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.stakes = memory.NewStakeStore(f.markets)
	clock := domain.ClockFunc(func() time.Time { return f.now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.calc = NewCalculator(
		f.markets, f.stakes, memory.NewLockManager(),
		domain.NopSink{}, clock, logger, feePercent,
	)
	return f
}

// finalizedMarket seeds a finalized two-outcome market with the given stakes
// and winning outcome.
func (f *fixture) finalizedMarket(t *testing.T, winner string, stakes map[string]domain.StakeEntry) {
	t.Helper()
	ctx := context.Background()
	m := domain.Market{
		ID:       "m1",
		Question: "q",
		Outcomes: []string{"yes", "no"},
		EndTime:  f.now.Add(-time.Hour),
		State:    domain.MarketStateActive,
	}
	if err := f.markets.Create(ctx, m); err != nil {
		t.Fatalf("create market: %v", err)
	}
	for _, e := range stakes {
		e.MarketID = "m1"
		if err := f.stakes.Record(ctx, e); err != nil {
			t.Fatalf("record stake %s: %v", e.Participant, err)
		}
	}
	m, err := f.markets.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	m.State = domain.MarketStateFinalized
	m.Resolution = domain.Resolution{
		ProposedOutcome: winner,
		ProposedAt:      f.now.Add(-time.Hour),
		WindowClosesAt:  f.now.Add(-time.Minute),
		Finalized:       true,
	}
	m.WinningOutcome = winner
	if err := f.markets.Update(ctx, m); err != nil {
		t.Fatalf("update market: %v", err)
	}
}

func TestClaimWinnerPayout(t *testing.T) {
	f := newFixture(t, 2)
	f.finalizedMarket(t, "yes", map[string]domain.StakeEntry{
		"alice": {Participant: "alice", Outcome: "yes", Amount: 60},
		"bob":   {Participant: "bob", Outcome: "no", Amount: 40},
	})

	// net_share = 60*98/100 = 58 (truncated)
	// payout    = 58*100/60 = 96 (truncated)
	e, err := f.calc.Claim(context.Background(), "m1", "alice")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if e.Payout != 96 {
		t.Errorf("payout %d, want 96", e.Payout)
	}
	if !e.Claimed || e.ClaimedAt == nil {
		t.Error("entry not marked claimed")
	}
}

func TestClaimLoserGetsZero(t *testing.T) {
	f := newFixture(t, 2)
	f.finalizedMarket(t, "yes", map[string]domain.StakeEntry{
		"alice": {Participant: "alice", Outcome: "yes", Amount: 60},
		"bob":   {Participant: "bob", Outcome: "no", Amount: 40},
	})

	e, err := f.calc.Claim(context.Background(), "m1", "bob")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if e.Payout != 0 {
		t.Errorf("payout %d, want 0", e.Payout)
	}
	if !e.Claimed {
		t.Error("losing entry not marked claimed")
	}
}

func TestClaimTwiceRejected(t *testing.T) {
	f := newFixture(t, 2)
	f.finalizedMarket(t, "yes", map[string]domain.StakeEntry{
		"alice": {Participant: "alice", Outcome: "yes", Amount: 60},
	})
	ctx := context.Background()

	if _, err := f.calc.Claim(ctx, "m1", "alice"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := f.calc.Claim(ctx, "m1", "alice"); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Fatalf("got %v, want ErrAlreadyClaimed", err)
	}
}

func TestClaimBeforeFinalization(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	m := domain.Market{
		ID: "m1", Question: "q", Outcomes: []string{"yes", "no"},
		EndTime: f.now.Add(-time.Hour), State: domain.MarketStateActive,
	}
	if err := f.markets.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := f.calc.Claim(ctx, "m1", "alice")
	if !errors.Is(err, domain.ErrNotFinalized) {
		t.Fatalf("got %v, want ErrNotFinalized", err)
	}
}

func TestPayoutsNeverExceedPool(t *testing.T) {
	f := newFixture(t, 2)
	stakes := map[string]domain.StakeEntry{
		"a": {Participant: "a", Outcome: "yes", Amount: 7},
		"b": {Participant: "b", Outcome: "yes", Amount: 13},
		"c": {Participant: "c", Outcome: "yes", Amount: 29},
		"d": {Participant: "d", Outcome: "no", Amount: 51},
	}
	f.finalizedMarket(t, "yes", stakes)
	ctx := context.Background()

	var sum, total int64
	for p, e := range stakes {
		got, err := f.calc.Claim(ctx, "m1", p)
		if err != nil {
			t.Fatalf("claim %s: %v", p, err)
		}
		sum += got.Payout
		total += e.Amount
	}
	if sum > total {
		t.Errorf("paid out %d from a pool of %d", sum, total)
	}
}

func TestZeroFeePayout(t *testing.T) {
	f := newFixture(t, 0)
	f.finalizedMarket(t, "yes", map[string]domain.StakeEntry{
		"alice": {Participant: "alice", Outcome: "yes", Amount: 50},
		"bob":   {Participant: "bob", Outcome: "no", Amount: 50},
	})

	// With no fee the sole winner takes the whole pool.
	e, err := f.calc.Claim(context.Background(), "m1", "alice")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if e.Payout != 100 {
		t.Errorf("payout %d, want 100", e.Payout)
	}
}

func TestLargeStakesDoNotOverflow(t *testing.T) {
	f := newFixture(t, 2)
	const big = int64(1) << 50
	f.finalizedMarket(t, "yes", map[string]domain.StakeEntry{
		"alice": {Participant: "alice", Outcome: "yes", Amount: big},
		"bob":   {Participant: "bob", Outcome: "no", Amount: big},
	})

	// stake*(100-fee)*total would overflow int64; the decimal path must not.
	e, err := f.calc.Claim(context.Background(), "m1", "alice")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	want := (big * 98 / 100) * 2 // net_share * total / win_pool with win_pool == big
	if e.Payout != want {
		t.Errorf("payout %d, want %d", e.Payout, want)
	}
}
