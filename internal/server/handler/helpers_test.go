package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/predictify/predictifyd/internal/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrInvalidDuration, http.StatusBadRequest},
		{domain.ErrOutcomeMismatch, http.StatusBadRequest},
		{domain.ErrMarketNotEnded, http.StatusConflict},
		{domain.ErrMarketClosed, http.StatusConflict},
		{domain.ErrWindowStillOpen, http.StatusConflict},
		{domain.ErrWindowClosed, http.StatusConflict},
		{domain.ErrUnresolvedDisputes, http.StatusConflict},
		{domain.ErrAlreadyFinalized, http.StatusConflict},
		{domain.ErrNotFinalized, http.StatusConflict},
		{domain.ErrAlreadyClaimed, http.StatusConflict},
		{domain.ErrAlreadyStaked, http.StatusConflict},
		{domain.ErrNoProposal, http.StatusConflict},
		{domain.ErrAlreadyProposed, http.StatusConflict},
		{domain.ErrLockHeld, http.StatusConflict},
		{fmt.Errorf("database exploded"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestStatusForUnwrapsWrappedSentinels(t *testing.T) {
	err := fmt.Errorf("resolution: get market %q: %w", "m1", domain.ErrNotFound)
	if got := statusFor(err); got != http.StatusNotFound {
		t.Errorf("wrapped sentinel mapped to %d, want 404", got)
	}
}

func TestRootCause(t *testing.T) {
	inner := domain.ErrWindowClosed
	wrapped := fmt.Errorf("resolution: dispute: %w", fmt.Errorf("market %q: %w", "m1", inner))
	if got := rootCause(wrapped); got != inner {
		t.Errorf("rootCause = %v, want %v", got, inner)
	}
}

func TestParseListOpts(t *testing.T) {
	cases := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 50, 0},
		{"?limit=10", 10, 0},
		{"?limit=10&offset=20", 10, 20},
		{"?limit=9999", 500, 0},
		{"?limit=-5&offset=-1", 50, 0},
		{"?limit=abc", 50, 0},
	}

	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/api/admin/audit"+tc.query, nil)
		opts := parseListOpts(r)
		if opts.Limit != tc.wantLimit || opts.Offset != tc.wantOffset {
			t.Errorf("parseListOpts(%q) = %+v, want limit=%d offset=%d",
				tc.query, opts, tc.wantLimit, tc.wantOffset)
		}
	}
}
