package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predictify/predictifyd/internal/auth"
	"github.com/predictify/predictifyd/internal/domain"
	"github.com/predictify/predictifyd/internal/market"
	"github.com/predictify/predictifyd/internal/resolution"
	"github.com/predictify/predictifyd/internal/server"
	"github.com/predictify/predictifyd/internal/server/handler"
	"github.com/predictify/predictifyd/internal/server/ws"
	"github.com/predictify/predictifyd/internal/settlement"
	"github.com/predictify/predictifyd/internal/stake"
	"github.com/predictify/predictifyd/internal/worker"
)

// services bundles the domain services shared by the HTTP server and the
// background finalizer.
type services struct {
	markets *market.Service
	stakes  *stake.Ledger
	engine  *resolution.Engine
	settle  *settlement.Calculator
	authz   domain.Authorizer
	clock   domain.Clock
}

// buildServices constructs the domain service layer on top of the wired
// dependencies.
func (a *App) buildServices(deps *Dependencies) *services {
	clock := domain.SystemClock()
	authz := auth.NewStaticAuthorizer(a.cfg.Admin.Keys)

	return &services{
		markets: market.NewService(deps.MarketStore, deps.MarketCache, deps.Events, clock, a.logger),
		stakes:  stake.NewLedger(deps.MarketStore, deps.StakeStore, deps.MarketCache, deps.Events, clock, a.logger),
		engine: resolution.NewEngine(
			deps.MarketStore, deps.WindowStore, deps.AuditStore, deps.LockManager,
			deps.Events, authz, deps.MarketCache, clock, a.logger,
		),
		settle: settlement.NewCalculator(
			deps.MarketStore, deps.StakeStore, deps.LockManager,
			deps.Events, clock, a.logger, a.cfg.Settlement.FeePercent,
		),
		authz: authz,
		clock: clock,
	}
}

// ServerMode runs the HTTP and WebSocket API without the background
// finalizer. Markets are finalized only through explicit API calls.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)
	a.startHTTPServer(ctx, g, deps, svcs)

	return g.Wait()
}

// FinalizerMode runs only the background sweep that finalizes markets whose
// dispute window has closed. Useful as a sidecar next to stateless API
// replicas.
func (a *App) FinalizerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting finalizer mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)
	a.startFinalizer(ctx, g, deps, svcs)

	return g.Wait()
}

// FullMode runs the API server and the background finalizer in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svcs)
	}
	if a.cfg.Resolution.AutoFinalize {
		a.startFinalizer(ctx, g, deps, svcs)
	}

	return g.Wait()
}

// pingerFunc adapts a plain function to the handler.Pinger interface.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// startHTTPServer builds the handler set, registers the WebSocket hub, and
// runs the server until the group context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	components := map[string]handler.Pinger{
		"postgres": deps.PG.Pool(),
		"redis":    deps.Redis,
	}
	if deps.S3 != nil {
		components["s3"] = pingerFunc(deps.S3.Health)
	}

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(components, a.logger),
		Markets:    handler.NewMarketHandler(svcs.markets, svcs.engine, svcs.clock, a.logger),
		Stakes:     handler.NewStakeHandler(svcs.stakes, a.logger),
		Resolution: handler.NewResolutionHandler(svcs.engine, a.logger),
		Settlement: handler.NewSettlementHandler(svcs.settle, svcs.markets, svcs.stakes, a.logger),
		Windows:    handler.NewWindowHandler(svcs.engine, a.logger),
		Audit:      handler.NewAuditHandler(deps.AuditStore, svcs.authz, a.logger),
		Events:     handler.NewEventsHandler(deps.SignalBus, a.logger),
		Metrics:    deps.Metrics.Handler(),
	}
	if deps.BlobReader != nil {
		handlers.Archives = handler.NewArchiveHandler(deps.BlobReader, svcs.authz, a.logger)
	}

	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	})
}

// startFinalizer runs the sweep worker. Archiving on finalize is wired only
// when object storage is configured.
func (a *App) startFinalizer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	var archiver worker.MarketArchiver
	if a.cfg.Resolution.ArchiveOnFinalize && deps.Archiver != nil {
		archiver = deps.Archiver
	}

	fin := worker.NewFinalizer(
		deps.MarketStore, svcs.engine, archiver, deps.Metrics,
		svcs.clock, a.cfg.Resolution.FinalizerInterval.Duration, a.logger,
	)
	g.Go(func() error {
		return fin.Run(ctx)
	})
}
