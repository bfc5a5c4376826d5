package domain

import (
	"strings"
	"time"
)

// MarketState is the stored lifecycle state of a market. Ended and Proposed
// are not stored; they are derived from the clock and the resolution fields
// (see Market.Phase).
type MarketState string

const (
	MarketStateActive    MarketState = "active"
	MarketStateDisputed  MarketState = "disputed"
	MarketStateFinalized MarketState = "finalized"
)

// MarketPhase is the derived lifecycle phase reported to callers.
type MarketPhase string

const (
	PhaseActive    MarketPhase = "active"
	PhaseEnded     MarketPhase = "ended"
	PhaseProposed  MarketPhase = "proposed"
	PhaseDisputed  MarketPhase = "disputed"
	PhaseFinalized MarketPhase = "finalized"
)

// OracleProvider identifies the price feed a market's resolution is sourced
// from.
type OracleProvider string

const (
	ProviderReflector OracleProvider = "reflector"
	ProviderPyth      OracleProvider = "pyth"
	ProviderBand      OracleProvider = "band"
	ProviderDIA       OracleProvider = "dia"
)

// supportedProviders are the providers a market may be created against.
var supportedProviders = map[OracleProvider]bool{
	ProviderReflector: true,
	ProviderPyth:      true,
}

// OracleConfig holds the oracle parameters captured at market creation. The
// core never calls the oracle itself; the parameters travel with the market so
// the external resolver knows what to fetch.
type OracleConfig struct {
	Provider   OracleProvider `json:"provider"`
	FeedID     string         `json:"feed_id"`
	Threshold  int64          `json:"threshold"` // in cents
	Comparison string         `json:"comparison"`
}

// Validate checks the oracle parameters for structural validity.
func (oc OracleConfig) Validate() error {
	if !supportedProviders[oc.Provider] {
		return ErrInvalidInput
	}
	if oc.FeedID == "" {
		return ErrInvalidInput
	}
	if oc.Threshold <= 0 {
		return ErrInvalidInput
	}
	switch oc.Comparison {
	case "gt", "lt", "eq":
	default:
		return ErrInvalidInput
	}
	return nil
}

// Resolution holds the proposal snapshot taken when a resolution is proposed.
// ProposedAt.IsZero() means no proposal exists yet.
type Resolution struct {
	ProposedOutcome string    `json:"proposed_outcome,omitempty"`
	ProposedAt      time.Time `json:"proposed_at,omitzero"`
	WindowClosesAt  time.Time `json:"window_closes_at,omitzero"`
	Finalized       bool      `json:"finalized"`
	DisputeCount    int       `json:"dispute_count"`
	Source          string    `json:"source,omitempty"`
	Overridden      bool      `json:"overridden"`
}

// Market is one predictive question with a fixed outcome set and end time.
// The outcome set is immutable after creation; WinningOutcome is set exactly
// once at finalization (the administrative override path excepted).
type Market struct {
	ID             string       `json:"id"`
	Question       string       `json:"question"`
	Outcomes       []string     `json:"outcomes"`
	EndTime        time.Time    `json:"end_time"`
	Oracle         OracleConfig `json:"oracle"`
	State          MarketState  `json:"state"`
	TotalStaked    int64        `json:"total_staked"`
	WindowHours    int          `json:"window_hours"` // per-market override; 0 means inherit global
	Resolution     Resolution   `json:"resolution"`
	WinningOutcome string       `json:"winning_outcome,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// HasEnded reports whether the market's end time has passed. The boundary is
// inclusive: a market has ended at exactly EndTime.
func (m *Market) HasEnded(now time.Time) bool {
	return !now.Before(m.EndTime)
}

// HasProposal reports whether a resolution has been proposed.
func (m *Market) HasProposal() bool {
	return !m.Resolution.ProposedAt.IsZero()
}

// IsWindowOpen reports whether the dispute window is open at the given
// instant. The close boundary is exclusive: at now == WindowClosesAt the
// window is closed and finalization becomes legal.
func (m *Market) IsWindowOpen(now time.Time) bool {
	return m.HasProposal() && !m.Resolution.Finalized && now.Before(m.Resolution.WindowClosesAt)
}

// HasOutcome reports whether label is one of the market's outcomes.
func (m *Market) HasOutcome(label string) bool {
	for _, o := range m.Outcomes {
		if o == label {
			return true
		}
	}
	return false
}

// Phase derives the lifecycle phase from the stored state, the resolution
// fields, and the clock.
func (m *Market) Phase(now time.Time) MarketPhase {
	switch {
	case m.State == MarketStateFinalized || m.Resolution.Finalized:
		return PhaseFinalized
	case m.State == MarketStateDisputed:
		return PhaseDisputed
	case m.HasProposal():
		return PhaseProposed
	case m.HasEnded(now):
		return PhaseEnded
	default:
		return PhaseActive
	}
}

// Validate checks the structural shape of a market at creation time: a
// non-empty question, at least two unique outcome labels, an end time in the
// future, and valid oracle parameters. Semantic validation (timing of
// proposals, authorization) lives in the resolution engine.
func (m *Market) Validate(now time.Time) error {
	if strings.TrimSpace(m.Question) == "" {
		return ErrInvalidInput
	}
	if len(m.Outcomes) < 2 {
		return ErrInvalidInput
	}
	seen := make(map[string]bool, len(m.Outcomes))
	for _, o := range m.Outcomes {
		if strings.TrimSpace(o) == "" || seen[o] {
			return ErrInvalidInput
		}
		seen[o] = true
	}
	if !m.EndTime.After(now) {
		return ErrInvalidInput
	}
	return m.Oracle.Validate()
}
