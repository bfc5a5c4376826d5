package domain

import (
	"testing"
	"time"
)

func TestHasEndedBoundary(t *testing.T) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := Market{EndTime: end}

	if m.HasEnded(end.Add(-time.Second)) {
		t.Error("ended before end time")
	}
	if !m.HasEnded(end) {
		t.Error("not ended at exactly end time")
	}
	if !m.HasEnded(end.Add(time.Second)) {
		t.Error("not ended after end time")
	}
}

func TestIsWindowOpenBoundary(t *testing.T) {
	closesAt := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	m := Market{
		Resolution: Resolution{
			ProposedOutcome: "yes",
			ProposedAt:      closesAt.Add(-48 * time.Hour),
			WindowClosesAt:  closesAt,
		},
	}

	if !m.IsWindowOpen(closesAt.Add(-time.Second)) {
		t.Error("window closed one second early")
	}
	if m.IsWindowOpen(closesAt) {
		t.Error("window still open at exactly the close instant")
	}
}

func TestWindowValidation(t *testing.T) {
	for hours, wantErr := range map[int]bool{
		0: true, 1: false, 48: false, 168: false, 169: true, -1: true,
	} {
		err := ValidateGlobalWindow(hours)
		if (err != nil) != wantErr {
			t.Errorf("global hours=%d: err=%v", hours, err)
		}
	}
	// Zero is valid per-market: it means inherit.
	if err := ValidateMarketWindow(0); err != nil {
		t.Errorf("market hours=0: %v", err)
	}
	if err := ValidateMarketWindow(169); err == nil {
		t.Error("market hours=169 accepted")
	}
}

func TestPhasePrecedence(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ended := now.Add(-time.Hour)

	cases := []struct {
		name string
		m    Market
		want MarketPhase
	}{
		{"active", Market{State: MarketStateActive, EndTime: now.Add(time.Hour)}, PhaseActive},
		{"ended", Market{State: MarketStateActive, EndTime: ended}, PhaseEnded},
		{
			"proposed",
			Market{
				State:      MarketStateActive,
				EndTime:    ended,
				Resolution: Resolution{ProposedOutcome: "yes", ProposedAt: ended, WindowClosesAt: now.Add(time.Hour)},
			},
			PhaseProposed,
		},
		{
			"disputed wins over proposed",
			Market{
				State:      MarketStateDisputed,
				EndTime:    ended,
				Resolution: Resolution{ProposedOutcome: "yes", ProposedAt: ended, WindowClosesAt: now.Add(time.Hour)},
			},
			PhaseDisputed,
		},
		{
			"finalized wins over everything",
			Market{
				State:      MarketStateFinalized,
				EndTime:    ended,
				Resolution: Resolution{ProposedOutcome: "yes", ProposedAt: ended, Finalized: true},
			},
			PhaseFinalized,
		},
	}
	for _, tc := range cases {
		if got := tc.m.Phase(now); got != tc.want {
			t.Errorf("%s: phase %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestOracleConfigValidate(t *testing.T) {
	valid := OracleConfig{Provider: ProviderReflector, FeedID: "BTC/USD", Threshold: 1, Comparison: "eq"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	for name, mutate := range map[string]func(*OracleConfig){
		"band unsupported": func(c *OracleConfig) { c.Provider = ProviderBand },
		"dia unsupported":  func(c *OracleConfig) { c.Provider = ProviderDIA },
		"empty feed":       func(c *OracleConfig) { c.FeedID = "" },
		"zero threshold":   func(c *OracleConfig) { c.Threshold = 0 },
		"bad comparison":   func(c *OracleConfig) { c.Comparison = ">" },
	} {
		c := valid
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: accepted", name)
		}
	}
}
