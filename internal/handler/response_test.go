package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	svcErr "github.com/veiledapp/veiled-backend/internal/errors"
)

func TestStatusForCoversTheTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
		reason string
	}{
		{svcErr.ValidationFailed("field", "bad"), http.StatusBadRequest, "validation_failed"},
		{svcErr.Unauthorized("who are you"), http.StatusUnauthorized, "unauthorized"},
		{svcErr.InsufficientCredits(0), http.StatusPaymentRequired, "insufficient_credits"},
		{svcErr.NotFound("user", 9), http.StatusNotFound, "not_found"},
		{svcErr.ParticipantNotFound(3), http.StatusNotFound, "participant_not_found"},
		{svcErr.AlreadyExpressed(2), http.StatusConflict, "already_expressed"},
		{svcErr.MatchingInactive(7), http.StatusConflict, "matching_inactive"},
		{svcErr.Conflict("state moved"), http.StatusConflict, "conflict"},
		{svcErr.MeetingExpired(4), http.StatusGone, "meeting_expired"},
		{svcErr.Provisioning(errors.New("redis down")), http.StatusBadGateway, "provisioning_failed"},
		{errors.New("opaque"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		status, reason := statusFor(tc.err)
		assert.Equal(t, tc.status, status, tc.reason)
		assert.Equal(t, tc.reason, reason, tc.reason)
	}
}

func TestWriteErrorFoldsStorageErrors(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodGet, "/api/users/9", nil)
	rec := httptest.NewRecorder()

	writeError(rec, log, req, gorm.ErrRecordNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodGet, "/api/matches", nil)
	rec := httptest.NewRecorder()

	writeError(rec, log, req, errors.New("dial tcp 10.0.0.4:3306: connect: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.4")
	assert.Contains(t, rec.Body.String(), "internal")
}
