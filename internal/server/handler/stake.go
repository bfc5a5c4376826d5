package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/predictify/predictifyd/internal/domain"
)

// StakeService defines the methods the stake handler requires from the
// ledger.
type StakeService interface {
	Record(ctx context.Context, marketID, participant, outcome string, amount int64) (domain.StakeEntry, error)
	Get(ctx context.Context, marketID, participant string) (domain.StakeEntry, error)
	ListByMarket(ctx context.Context, marketID string) ([]domain.StakeEntry, error)
	OutcomeTotal(ctx context.Context, marketID, outcome string) (int64, error)
}

// StakeHandler serves stake-ledger HTTP endpoints.
type StakeHandler struct {
	stakes StakeService
	logger *slog.Logger
}

// NewStakeHandler creates a StakeHandler.
func NewStakeHandler(stakes StakeService, logger *slog.Logger) *StakeHandler {
	return &StakeHandler{stakes: stakes, logger: logger}
}

// recordStakeRequest is the body for recording a stake.
type recordStakeRequest struct {
	Participant string `json:"participant"`
	Outcome     string `json:"outcome"`
	Amount      int64  `json:"amount"`
}

// RecordStake records a stake on an outcome of an active market.
// POST /api/markets/{id}/stakes
func (h *StakeHandler) RecordStake(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req recordStakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.stakes.Record(r.Context(), id, req.Participant, req.Outcome, req.Amount)
	if err != nil {
		writeServiceError(w, r, h.logger, "record stake", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// GetStake returns one participant's stake entry for a market.
// GET /api/markets/{id}/stakes/{participant}
func (h *StakeHandler) GetStake(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	participant := pathParam(r, "participant")

	e, err := h.stakes.Get(r.Context(), id, participant)
	if err != nil {
		writeServiceError(w, r, h.logger, "get stake", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// listStakesResponse wraps the stake list with per-outcome totals.
type listStakesResponse struct {
	Stakes []domain.StakeEntry `json:"stakes"`
	Total  int64               `json:"total_staked"`
}

// ListStakes returns every stake entry for a market.
// GET /api/markets/{id}/stakes
func (h *StakeHandler) ListStakes(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	entries, err := h.stakes.ListByMarket(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "list stakes", err)
		return
	}

	var total int64
	for _, e := range entries {
		total += e.Amount
	}
	writeJSON(w, http.StatusOK, listStakesResponse{Stakes: entries, Total: total})
}
