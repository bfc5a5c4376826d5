package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/predictify/predictifyd/internal/domain"
	"github.com/predictify/predictifyd/internal/resolution"
)

// ResolutionService defines the methods the resolution handler requires from
// the engine.
type ResolutionService interface {
	Propose(ctx context.Context, marketID, outcome, source string) (domain.Market, error)
	Finalize(ctx context.Context, marketID string) (domain.Market, error)
	ForceFinalize(ctx context.Context, caller, marketID, outcome string) (domain.Market, error)
	Dispute(ctx context.Context, marketID, participant, reason string) (domain.Market, error)
	Escalate(ctx context.Context, caller, marketID string) (domain.Market, error)
	ResolveDisputes(ctx context.Context, caller, marketID string) (domain.Market, error)
	Window(ctx context.Context, marketID string) (resolution.WindowStatus, error)
	CanFinalize(ctx context.Context, marketID string) (bool, error)
}

// ResolutionHandler serves lifecycle HTTP endpoints.
type ResolutionHandler struct {
	engine ResolutionService
	logger *slog.Logger
}

// NewResolutionHandler creates a ResolutionHandler.
func NewResolutionHandler(engine ResolutionService, logger *slog.Logger) *ResolutionHandler {
	return &ResolutionHandler{engine: engine, logger: logger}
}

// proposeRequest is the body for proposing a resolution.
type proposeRequest struct {
	Outcome string `json:"outcome"`
	Source  string `json:"source,omitempty"`
}

// Propose records a resolution proposal and opens the dispute window.
// POST /api/markets/{id}/resolution/propose
func (h *ResolutionHandler) Propose(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == "" {
		req.Source = "oracle"
	}

	m, err := h.engine.Propose(r.Context(), id, req.Outcome, req.Source)
	if err != nil {
		writeServiceError(w, r, h.logger, "propose resolution", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Finalize commits the proposed outcome once the window has closed.
// POST /api/markets/{id}/resolution/finalize
func (h *ResolutionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	m, err := h.engine.Finalize(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "finalize resolution", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// disputeRequest is the body for recording a dispute.
type disputeRequest struct {
	Participant string `json:"participant"`
	Reason      string `json:"reason,omitempty"`
}

// Dispute records a challenge against the proposed outcome.
// POST /api/markets/{id}/resolution/disputes
func (h *ResolutionHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req disputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.engine.Dispute(r.Context(), id, req.Participant, req.Reason)
	if err != nil {
		writeServiceError(w, r, h.logger, "record dispute", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// windowResponse reports the dispute-window status plus finalization
// eligibility.
type windowResponse struct {
	resolution.WindowStatus
	CanFinalize bool `json:"can_finalize"`
}

// Window reports the dispute-window status of a market.
// GET /api/markets/{id}/resolution/window
func (h *ResolutionHandler) Window(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	st, err := h.engine.Window(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "window status", err)
		return
	}
	can, err := h.engine.CanFinalize(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "window status", err)
		return
	}
	writeJSON(w, http.StatusOK, windowResponse{WindowStatus: st, CanFinalize: can})
}

// forceFinalizeRequest is the body for an administrative override.
type forceFinalizeRequest struct {
	Outcome string `json:"outcome"`
}

// ForceFinalize sets the final outcome directly, bypassing the window.
// POST /api/admin/markets/{id}/force-finalize
func (h *ResolutionHandler) ForceFinalize(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req forceFinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.engine.ForceFinalize(r.Context(), adminCaller(r), id, req.Outcome)
	if err != nil {
		writeServiceError(w, r, h.logger, "force finalize", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Escalate moves a disputed market into the disputed state.
// POST /api/admin/markets/{id}/disputes/escalate
func (h *ResolutionHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	m, err := h.engine.Escalate(r.Context(), adminCaller(r), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "escalate dispute", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ResolveDisputes clears the disputed state.
// POST /api/admin/markets/{id}/disputes/resolve
func (h *ResolutionHandler) ResolveDisputes(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	m, err := h.engine.ResolveDisputes(r.Context(), adminCaller(r), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "resolve disputes", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
