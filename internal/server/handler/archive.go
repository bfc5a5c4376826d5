package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/predictify/predictifyd/internal/domain"
)

// ArchiveHandler serves read access to archived markets in object storage.
type ArchiveHandler struct {
	blobs  domain.BlobReader
	auth   domain.Authorizer
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler.
func NewArchiveHandler(blobs domain.BlobReader, auth domain.Authorizer, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{blobs: blobs, auth: auth, logger: logger}
}

// List returns archive objects under a prefix.
// GET /api/admin/archives?prefix=archive/markets/2026-03
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.auth.IsAdmin(adminCaller(r)) {
		writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
		return
	}

	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "archive/"
	}

	infos, err := h.blobs.List(r.Context(), prefix)
	if err != nil {
		writeServiceError(w, r, h.logger, "list archives", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"objects": infos})
}

// Download streams one archive object back to the caller.
// GET /api/admin/archives/object?path=archive/markets/2026-03/{id}.jsonl
func (h *ArchiveHandler) Download(w http.ResponseWriter, r *http.Request) {
	if !h.auth.IsAdmin(adminCaller(r)) {
		writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" || strings.Contains(path, "..") {
		writeError(w, http.StatusBadRequest, "missing or invalid path")
		return
	}

	body, err := h.blobs.Get(r.Context(), path)
	if err != nil {
		writeServiceError(w, r, h.logger, "download archive", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: archive stream interrupted",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
