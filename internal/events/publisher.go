// Package events fans lifecycle events out to the signal bus, operator
// notifications, and metrics. Delivery is fire-and-forget: a state change is
// never rolled back because a subscriber was unreachable.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/predictify/predictifyd/internal/domain"
	"github.com/predictify/predictifyd/internal/metrics"
	"github.com/predictify/predictifyd/internal/notify"
)

// Channel and stream names on the signal bus.
const (
	ChannelEvents = "events"
	StreamEvents  = "stream:events"
)

// MarketChannel returns the per-market pub/sub channel name.
func MarketChannel(marketID string) string {
	return "market:" + marketID
}

// publishTimeout bounds each fan-out write so a stuck bus cannot block the
// calling request.
const publishTimeout = 3 * time.Second

// Publisher implements domain.EventSink.
type Publisher struct {
	bus      domain.SignalBus
	notifier *notify.Notifier
	reg      *metrics.Registry
	logger   *slog.Logger
}

// NewPublisher creates a Publisher. bus, notifier, and reg may each be nil;
// missing targets are skipped.
func NewPublisher(bus domain.SignalBus, notifier *notify.Notifier, reg *metrics.Registry, logger *slog.Logger) *Publisher {
	return &Publisher{
		bus:      bus,
		notifier: notifier,
		reg:      reg,
		logger:   logger.With(slog.String("component", "events")),
	}
}

// Publish delivers ev to every configured target.
func (p *Publisher) Publish(ev domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	p.count(ev)

	if p.bus != nil {
		payload, err := json.Marshal(ev)
		if err != nil {
			p.logger.Error("events: marshal failed", slog.String("kind", ev.Kind), slog.String("error", err.Error()))
			return
		}
		p.send(ctx, ChannelEvents, payload)
		if ev.MarketID != "" {
			p.send(ctx, MarketChannel(ev.MarketID), payload)
		}
		if err := p.bus.StreamAppend(ctx, StreamEvents, payload); err != nil {
			p.logger.Warn("events: stream append failed",
				slog.String("kind", ev.Kind),
				slog.String("error", err.Error()),
			)
		}
	}

	if p.notifier != nil {
		title, msg := format(ev)
		if err := p.notifier.Notify(ctx, ev.Kind, title, msg); err != nil {
			p.logger.Warn("events: notify failed",
				slog.String("kind", ev.Kind),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (p *Publisher) send(ctx context.Context, channel string, payload []byte) {
	if err := p.bus.Publish(ctx, channel, payload); err != nil {
		p.logger.Warn("events: publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// count bumps the metric matching the event kind.
func (p *Publisher) count(ev domain.Event) {
	if p.reg == nil {
		return
	}
	switch ev.Kind {
	case domain.EventMarketCreated:
		p.reg.MarketsCreated.Inc()
	case domain.EventStakeRecorded:
		p.reg.StakesRecorded.Inc()
		if amount, ok := ev.Detail["amount"].(int64); ok {
			p.reg.StakedAmount.Add(float64(amount))
		}
	case domain.EventResolutionProposed:
		p.reg.ResolutionsProposed.Inc()
	case domain.EventDisputeRecorded:
		p.reg.DisputesRecorded.Inc()
	case domain.EventResolutionFinalized:
		p.reg.Finalizations.WithLabelValues("normal").Inc()
	case domain.EventResolutionOverridden:
		p.reg.Finalizations.WithLabelValues("override").Inc()
	case domain.EventPayoutClaimed:
		p.reg.PayoutsClaimed.Inc()
		if payout, ok := ev.Detail["payout"].(int64); ok {
			p.reg.PayoutAmount.Add(float64(payout))
		}
	}
}

// format renders an operator-facing notification for an event.
func format(ev domain.Event) (title, message string) {
	title = "predictify: " + ev.Kind
	if ev.MarketID != "" {
		message = fmt.Sprintf("market %s: %s at %s", ev.MarketID, ev.Kind, ev.At.Format(time.RFC3339))
	} else {
		message = fmt.Sprintf("%s at %s", ev.Kind, ev.At.Format(time.RFC3339))
	}
	return title, message
}

// Compile-time interface check.
var _ domain.EventSink = (*Publisher)(nil)
