// Package metrics registers the Prometheus instruments for the resolution
// lifecycle and exposes them behind a single Registry handle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the service's Prometheus collectors.
type Registry struct {
	reg *prometheus.Registry

	MarketsCreated      prometheus.Counter
	StakesRecorded      prometheus.Counter
	StakedAmount        prometheus.Counter
	ResolutionsProposed prometheus.Counter
	DisputesRecorded    prometheus.Counter
	Finalizations       *prometheus.CounterVec
	PayoutsClaimed      prometheus.Counter
	PayoutAmount        prometheus.Counter
	FinalizerRuns       prometheus.Counter
	FinalizerErrors     prometheus.Counter
}

// New creates a Registry with every collector registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		reg: reg,
		MarketsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predictify_markets_created_total",
			Help: "Markets created.",
		}),
		StakesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predictify_stakes_recorded_total",
			Help: "Stake entries recorded.",
		}),
		StakedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predictify_staked_amount_total",
			Help: "Total staked amount in token base units.",
		}),
		ResolutionsProposed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predictify_resolutions_proposed_total",
			Help: "Resolution proposals accepted.",
		}),
		DisputesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predictify_disputes_recorded_total",
			Help: "Disputes recorded inside open windows.",
		}),
		Finalizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "predictify_finalizations_total",
			Help: "Finalized resolutions by path.",
		}, []string{"path"}),
		PayoutsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predictify_payouts_claimed_total",
			Help: "Payout claims settled.",
		}),
		PayoutAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predictify_payout_amount_total",
			Help: "Total paid out in token base units.",
		}),
		FinalizerRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predictify_finalizer_runs_total",
			Help: "Auto-finalizer sweep iterations.",
		}),
		FinalizerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predictify_finalizer_errors_total",
			Help: "Auto-finalizer sweep errors.",
		}),
	}

	reg.MustRegister(
		r.MarketsCreated,
		r.StakesRecorded,
		r.StakedAmount,
		r.ResolutionsProposed,
		r.DisputesRecorded,
		r.Finalizations,
		r.PayoutsClaimed,
		r.PayoutAmount,
		r.FinalizerRuns,
		r.FinalizerErrors,
	)
	return r
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
