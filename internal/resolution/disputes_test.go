package resolution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/predictify/predictifyd/internal/domain"
)

func TestDisputeWithoutProposal(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)

	_, err := f.engine.Dispute(context.Background(), "m1", "alice", "bad data")
	if !errors.Is(err, domain.ErrNoProposal) {
		t.Fatalf("got %v, want ErrNoProposal", err)
	}
}

func TestDisputeInsideWindowCounts(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)
	ctx := context.Background()

	if _, err := f.engine.Propose(ctx, "m1", "yes", "oracle"); err != nil {
		t.Fatalf("propose: %v", err)
	}

	m, err := f.engine.Dispute(ctx, "m1", "alice", "stale price")
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if m.Resolution.DisputeCount != 1 {
		t.Errorf("dispute count %d, want 1", m.Resolution.DisputeCount)
	}

	m, err = f.engine.Dispute(ctx, "m1", "bob", "same")
	if err != nil {
		t.Fatalf("second dispute: %v", err)
	}
	if m.Resolution.DisputeCount != 2 {
		t.Errorf("dispute count %d, want 2", m.Resolution.DisputeCount)
	}
}

func TestDisputeAtWindowCloseRejected(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)
	ctx := context.Background()

	m, err := f.engine.Propose(ctx, "m1", "yes", "oracle")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	// At exactly the close instant the window is already closed.
	f.now = m.Resolution.WindowClosesAt
	if _, err := f.engine.Dispute(ctx, "m1", "alice", "too late"); !errors.Is(err, domain.ErrWindowClosed) {
		t.Fatalf("got %v, want ErrWindowClosed", err)
	}
}

func TestDisputeAfterFinalizeRejected(t *testing.T) {
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
	if _, err := f.engine.Dispute(ctx, "m1", "alice", "too late"); !errors.Is(err, domain.ErrAlreadyFinalized) {
		t.Fatalf("got %v, want ErrAlreadyFinalized", err)
	}
}

func TestEscalateRequiresDisputes(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)
	ctx := context.Background()

	if _, err := f.engine.Propose(ctx, "m1", "yes", "oracle"); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := f.engine.Escalate(ctx, "admin", "m1"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestEscalateUnauthorized(t *testing.T) {
	f := newFixture(t, denyAll{})
	f.addMarket(t, -time.Hour, 0)

	_, err := f.engine.Escalate(context.Background(), "nobody", "m1")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestResolveDisputesWithoutEscalation(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)

	_, err := f.engine.ResolveDisputes(context.Background(), "admin", "m1")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestEscalatedMarketReportsDisputedPhase(t *testing.T) {
	f := newFixture(t, allowAll{})
	f.addMarket(t, -time.Hour, 0)
	ctx := context.Background()

	if _, err := f.engine.Propose(ctx, "m1", "yes", "oracle"); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := f.engine.Dispute(ctx, "m1", "alice", "x"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	m, err := f.engine.Escalate(ctx, "admin", "m1")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if got := m.Phase(f.now); got != domain.PhaseDisputed {
		t.Errorf("phase %q, want disputed", got)
	}
}
