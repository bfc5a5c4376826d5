package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/predictify/predictifyd/internal/domain"
	"github.com/predictify/predictifyd/internal/market"
	"github.com/predictify/predictifyd/internal/resolution"
)

// MarketService defines the methods the market handler requires from the
// service layer.
type MarketService interface {
	Create(ctx context.Context, p market.CreateParams) (domain.Market, error)
	Get(ctx context.Context, id string) (domain.Market, error)
	Count(ctx context.Context) (int64, error)
}

// MarketStatusService provides the window view for the status endpoint.
type MarketStatusService interface {
	Window(ctx context.Context, marketID string) (resolution.WindowStatus, error)
	CanFinalize(ctx context.Context, marketID string) (bool, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	status  MarketStatusService
	clock   domain.Clock
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given services and logger.
func NewMarketHandler(markets MarketService, status MarketStatusService, clock domain.Clock, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		status:  status,
		clock:   clock,
		logger:  logger,
	}
}

// marketResponse wraps a market with its derived lifecycle phase.
type marketResponse struct {
	domain.Market
	Phase domain.MarketPhase `json:"phase"`
}

func (h *MarketHandler) respond(w http.ResponseWriter, status int, m domain.Market) {
	writeJSON(w, status, marketResponse{Market: m, Phase: m.Phase(h.clock.Now())})
}

// createMarketRequest is the body for market creation.
type createMarketRequest struct {
	Question    string              `json:"question"`
	Outcomes    []string            `json:"outcomes"`
	EndTime     int64               `json:"end_time"` // unix seconds
	Oracle      domain.OracleConfig `json:"oracle"`
	WindowHours int                 `json:"window_hours,omitempty"`
}

// CreateMarket creates a new market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.markets.Create(r.Context(), market.CreateParams{
		Question:    req.Question,
		Outcomes:    req.Outcomes,
		EndTime:     req.EndTime,
		Oracle:      req.Oracle,
		WindowHours: req.WindowHours,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "create market", err)
		return
	}
	h.respond(w, http.StatusCreated, m)
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	m, err := h.markets.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get market", err)
		return
	}
	h.respond(w, http.StatusOK, m)
}

// marketStatusResponse summarizes a market's lifecycle position.
type marketStatusResponse struct {
	ID           string                  `json:"id"`
	State        domain.MarketState      `json:"state"`
	Phase        domain.MarketPhase      `json:"phase"`
	TotalStaked  int64                   `json:"total_staked"`
	DisputeCount int                     `json:"dispute_count"`
	Window       resolution.WindowStatus `json:"window"`
	CanFinalize  bool                    `json:"can_finalize"`
}

// Status returns the lifecycle summary for one market.
// GET /api/markets/{id}/status
func (h *MarketHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	m, err := h.markets.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "market status", err)
		return
	}
	win, err := h.status.Window(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "market status", err)
		return
	}
	canFinalize, err := h.status.CanFinalize(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "market status", err)
		return
	}

	writeJSON(w, http.StatusOK, marketStatusResponse{
		ID:           m.ID,
		State:        m.State,
		Phase:        m.Phase(h.clock.Now()),
		TotalStaked:  m.TotalStaked,
		DisputeCount: m.Resolution.DisputeCount,
		Window:       win,
		CanFinalize:  canFinalize,
	})
}

// Stats returns service-wide totals.
// GET /api/stats
func (h *MarketHandler) Stats(w http.ResponseWriter, r *http.Request) {
	n, err := h.markets.Count(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"markets": n})
}
