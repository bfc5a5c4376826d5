package handler

import (
	"log/slog"
	"net/http"

	"github.com/predictify/predictifyd/internal/domain"
)

// AuditHandler serves the audit-log endpoints.
type AuditHandler struct {
	audit  domain.AuditStore
	auth   domain.Authorizer
	logger *slog.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(audit domain.AuditStore, auth domain.Authorizer, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, auth: auth, logger: logger}
}

// List returns audit entries newest first.
// GET /api/admin/audit
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.auth.IsAdmin(adminCaller(r)) {
		writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
		return
	}

	entries, err := h.audit.List(r.Context(), parseListOpts(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "list audit", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
