// Package server exposes the resolution lifecycle over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/predictify/predictifyd/internal/domain"
	"github.com/predictify/predictifyd/internal/server/handler"
	"github.com/predictify/predictifyd/internal/server/middleware"
	"github.com/predictify/predictifyd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // if empty, authentication is disabled
	RateLimit       int    // requests per second per client; 0 disables
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health     *handler.HealthHandler
	Markets    *handler.MarketHandler
	Stakes     *handler.StakeHandler
	Resolution *handler.ResolutionHandler
	Settlement *handler.SettlementHandler
	Windows    *handler.WindowHandler
	Audit      *handler.AuditHandler
	Archives   *handler.ArchiveHandler
	Events     *handler.EventsHandler
	Metrics    http.Handler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check and metrics (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	if handlers.Metrics != nil {
		mux.Handle("GET /metrics", handlers.Metrics)
	}

	// Market endpoints.
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/status", handlers.Markets.Status)
	mux.HandleFunc("GET /api/stats", handlers.Markets.Stats)

	// Stake ledger endpoints.
	mux.HandleFunc("POST /api/markets/{id}/stakes", handlers.Stakes.RecordStake)
	mux.HandleFunc("GET /api/markets/{id}/stakes", handlers.Stakes.ListStakes)
	mux.HandleFunc("GET /api/markets/{id}/stakes/{participant}", handlers.Stakes.GetStake)

	// Resolution lifecycle endpoints.
	mux.HandleFunc("POST /api/markets/{id}/resolution/propose", handlers.Resolution.Propose)
	mux.HandleFunc("POST /api/markets/{id}/resolution/finalize", handlers.Resolution.Finalize)
	mux.HandleFunc("POST /api/markets/{id}/resolution/disputes", handlers.Resolution.Dispute)
	mux.HandleFunc("GET /api/markets/{id}/resolution/window", handlers.Resolution.Window)

	// Settlement endpoints.
	mux.HandleFunc("POST /api/markets/{id}/claims", handlers.Settlement.Claim)
	mux.HandleFunc("GET /api/markets/{id}/payouts/{participant}", handlers.Settlement.PreviewPayout)

	// Window configuration.
	mux.HandleFunc("GET /api/resolution/window", handlers.Windows.GetGlobal)
	mux.HandleFunc("PUT /api/admin/resolution/window", handlers.Windows.SetGlobal)
	mux.HandleFunc("PUT /api/admin/markets/{id}/window", handlers.Windows.SetMarket)

	// Administrative overrides and dispute management.
	mux.HandleFunc("POST /api/admin/markets/{id}/force-finalize", handlers.Resolution.ForceFinalize)
	mux.HandleFunc("POST /api/admin/markets/{id}/disputes/escalate", handlers.Resolution.Escalate)
	mux.HandleFunc("POST /api/admin/markets/{id}/disputes/resolve", handlers.Resolution.ResolveDisputes)

	// Audit log and archives.
	mux.HandleFunc("GET /api/admin/audit", handlers.Audit.List)
	if handlers.Archives != nil {
		mux.HandleFunc("GET /api/admin/archives", handlers.Archives.List)
		mux.HandleFunc("GET /api/admin/archives/object", handlers.Archives.Download)
	}

	// Event stream replay.
	if handlers.Events != nil {
		mux.HandleFunc("GET /api/events", handlers.Events.List)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateLimitWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
