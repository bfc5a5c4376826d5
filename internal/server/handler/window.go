package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/predictify/predictifyd/internal/domain"
)

// WindowService defines the window-configuration methods the handler
// requires from the resolution engine.
type WindowService interface {
	GlobalWindow(ctx context.Context) (domain.WindowConfig, error)
	SetGlobalWindow(ctx context.Context, caller string, hours int) (domain.WindowConfig, error)
	SetMarketWindow(ctx context.Context, caller, marketID string, hours int) (domain.Market, error)
}

// WindowHandler serves dispute-window configuration endpoints.
type WindowHandler struct {
	windows WindowService
	logger  *slog.Logger
}

// NewWindowHandler creates a WindowHandler.
func NewWindowHandler(windows WindowService, logger *slog.Logger) *WindowHandler {
	return &WindowHandler{windows: windows, logger: logger}
}

// GetGlobal returns the global dispute-window config.
// GET /api/resolution/window
func (h *WindowHandler) GetGlobal(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.windows.GlobalWindow(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "get window config", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// setWindowRequest is the body for window updates.
type setWindowRequest struct {
	Hours int `json:"hours"`
}

// SetGlobal updates the global dispute-window duration.
// PUT /api/admin/resolution/window
func (h *WindowHandler) SetGlobal(w http.ResponseWriter, r *http.Request) {
	var req setWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg, err := h.windows.SetGlobalWindow(r.Context(), adminCaller(r), req.Hours)
	if err != nil {
		writeServiceError(w, r, h.logger, "set window config", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// SetMarket sets or clears a per-market window override (hours=0 clears).
// PUT /api/admin/markets/{id}/window
func (h *WindowHandler) SetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req setWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.windows.SetMarketWindow(r.Context(), adminCaller(r), id, req.Hours)
	if err != nil {
		writeServiceError(w, r, h.logger, "set market window", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
