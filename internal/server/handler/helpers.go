package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/predictify/predictifyd/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a domain sentinel error to its HTTP status and
// writes the response. Unrecognized errors are logged and become a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "handler: "+op+" failed",
			slog.String("error", err.Error()),
		)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, rootCause(err).Error())
}

// statusFor maps domain sentinel errors to HTTP status codes. Precondition
// violations are conflicts: the request was well-formed but the market is in
// the wrong lifecycle state for it.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrOutcomeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMarketNotEnded),
		errors.Is(err, domain.ErrMarketClosed),
		errors.Is(err, domain.ErrWindowStillOpen),
		errors.Is(err, domain.ErrWindowClosed),
		errors.Is(err, domain.ErrUnresolvedDisputes),
		errors.Is(err, domain.ErrAlreadyFinalized),
		errors.Is(err, domain.ErrNotFinalized),
		errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrAlreadyStaked),
		errors.Is(err, domain.ErrNoProposal),
		errors.Is(err, domain.ErrAlreadyProposed),
		errors.Is(err, domain.ErrLockHeld):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// rootCause unwraps to the innermost error so responses carry the sentinel
// message without the internal wrap chain.
func rootCause(err error) error {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// adminCaller extracts the admin key presented with the request. The
// authorizer decides whether it grants authority.
func adminCaller(r *http.Request) string {
	return r.Header.Get("X-Admin-Key")
}
