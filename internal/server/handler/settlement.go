package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/predictify/predictifyd/internal/domain"
)

// SettlementService defines the methods the settlement handler requires from
// the calculator.
type SettlementService interface {
	Claim(ctx context.Context, marketID, participant string) (domain.StakeEntry, error)
	Payout(ctx context.Context, m domain.Market, e domain.StakeEntry) (int64, error)
	FeePercent() int64
}

// SettlementHandler serves payout HTTP endpoints.
type SettlementHandler struct {
	settle  SettlementService
	markets MarketService
	stakes  StakeService
	logger  *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler.
func NewSettlementHandler(settle SettlementService, markets MarketService, stakes StakeService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settle:  settle,
		markets: markets,
		stakes:  stakes,
		logger:  logger,
	}
}

// claimRequest is the body for claiming winnings.
type claimRequest struct {
	Participant string `json:"participant"`
}

// Claim settles a participant's stake in a finalized market.
// POST /api/markets/{id}/claims
func (h *SettlementHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.settle.Claim(r.Context(), id, req.Participant)
	if err != nil {
		writeServiceError(w, r, h.logger, "claim", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// payoutResponse previews a payout without settling it.
type payoutResponse struct {
	Participant string `json:"participant"`
	Outcome     string `json:"outcome"`
	Amount      int64  `json:"amount"`
	Payout      int64  `json:"payout"`
	FeePercent  int64  `json:"fee_percent"`
	Claimed     bool   `json:"claimed"`
}

// PreviewPayout computes a participant's payout without marking it claimed.
// GET /api/markets/{id}/payouts/{participant}
func (h *SettlementHandler) PreviewPayout(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	participant := pathParam(r, "participant")

	m, err := h.markets.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "preview payout", err)
		return
	}
	e, err := h.stakes.Get(r.Context(), id, participant)
	if err != nil {
		writeServiceError(w, r, h.logger, "preview payout", err)
		return
	}

	payout, err := h.settle.Payout(r.Context(), m, e)
	if err != nil {
		writeServiceError(w, r, h.logger, "preview payout", err)
		return
	}
	writeJSON(w, http.StatusOK, payoutResponse{
		Participant: participant,
		Outcome:     e.Outcome,
		Amount:      e.Amount,
		Payout:      payout,
		FeePercent:  h.settle.FeePercent(),
		Claimed:     e.Claimed,
	})
}
