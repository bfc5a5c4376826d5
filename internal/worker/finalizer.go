// Package worker runs the background sweeps.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/predictify/predictifyd/internal/domain"
	"github.com/predictify/predictifyd/internal/metrics"
	"github.com/predictify/predictifyd/internal/resolution"
)

// sweepBatchSize caps how many markets one sweep iteration picks up.
const sweepBatchSize = 100

// MarketArchiver archives a finalized market to object storage.
type MarketArchiver interface {
	ArchiveMarket(ctx context.Context, m domain.Market) (int64, error)
}

// Finalizer periodically sweeps for markets whose dispute window has closed
// and finalizes them, so settlement does not wait for an explicit finalize
// call. Finalized markets are optionally archived.
type Finalizer struct {
	markets  domain.MarketStore
	engine   *resolution.Engine
	archiver MarketArchiver
	reg      *metrics.Registry
	clock    domain.Clock
	interval time.Duration
	logger   *slog.Logger
}

// NewFinalizer creates a Finalizer. archiver and reg may be nil.
func NewFinalizer(
	markets domain.MarketStore,
	engine *resolution.Engine,
	archiver MarketArchiver,
	reg *metrics.Registry,
	clock domain.Clock,
	interval time.Duration,
	logger *slog.Logger,
) *Finalizer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Finalizer{
		markets:  markets,
		engine:   engine,
		archiver: archiver,
		reg:      reg,
		clock:    clock,
		interval: interval,
		logger:   logger.With(slog.String("component", "finalizer")),
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (f *Finalizer) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.logger.InfoContext(ctx, "finalizer: started", slog.Duration("interval", f.interval))
	for {
		select {
		case <-ctx.Done():
			f.logger.InfoContext(ctx, "finalizer: stopped")
			return ctx.Err()
		case <-ticker.C:
			f.Sweep(ctx)
		}
	}
}

// Sweep finalizes every eligible market once. Individual failures are logged
// and skipped; a lock held by another process is not an error.
func (f *Finalizer) Sweep(ctx context.Context) {
	if f.reg != nil {
		f.reg.FinalizerRuns.Inc()
	}

	due, err := f.markets.ListNeedingFinalization(ctx, f.clock.Now(), sweepBatchSize)
	if err != nil {
		f.fail(ctx, "list", "", err)
		return
	}

	for _, m := range due {
		finalized, err := f.engine.Finalize(ctx, m.ID)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) || errors.Is(err, domain.ErrAlreadyFinalized) {
				continue
			}
			f.fail(ctx, "finalize", m.ID, err)
			continue
		}

		if f.archiver != nil {
			if _, err := f.archiver.ArchiveMarket(ctx, finalized); err != nil {
				f.fail(ctx, "archive", m.ID, err)
			}
		}
	}
}

func (f *Finalizer) fail(ctx context.Context, op, marketID string, err error) {
	if f.reg != nil {
		f.reg.FinalizerErrors.Inc()
	}
	f.logger.ErrorContext(ctx, "finalizer: "+op+" failed",
		slog.String("market_id", marketID),
		slog.String("error", err.Error()),
	)
}
