package domain

import "time"

// Lifecycle event kinds emitted by the services.
const (
	EventMarketCreated        = "market_created"
	EventStakeRecorded        = "stake_recorded"
	EventResolutionProposed   = "resolution_proposed"
	EventDisputeRecorded      = "dispute_recorded"
	EventDisputeEscalated     = "dispute_escalated"
	EventDisputesResolved     = "disputes_resolved"
	EventResolutionFinalized  = "resolution_finalized"
	EventResolutionOverridden = "resolution_overridden"
	EventPayoutClaimed        = "payout_claimed"
	EventWindowConfigChanged  = "window_config_changed"
	EventMarketArchived       = "market_archived"
)

// Event is one lifecycle notification. Emission is fire-and-forget; a failed
// publish never rolls back the state change it describes.
type Event struct {
	Kind     string         `json:"kind"`
	MarketID string         `json:"market_id,omitempty"`
	At       time.Time      `json:"at"`
	Detail   map[string]any `json:"detail,omitempty"`
}

// EventSink receives lifecycle events. Implementations fan out to the signal
// bus, notifiers, and metrics.
type EventSink interface {
	Publish(ev Event)
}

// NopSink discards events.
type NopSink struct{}

// Publish implements EventSink.
func (NopSink) Publish(Event) {}
