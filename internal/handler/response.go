// Package handler exposes the matching engine over HTTP. Handlers
// parse and validate transport concerns only; domain rules live in the
// service layer and domain errors are translated to status codes here.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/veiledapp/veiled-backend/internal/auth"
	svcErr "github.com/veiledapp/veiled-backend/internal/errors"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	// Encode errors past WriteHeader cannot be reported to the client.
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, log *slog.Logger, r *http.Request, err error) {
	mapped := svcErr.Map(err)
	status, reason := statusFor(mapped)

	body := errorBody{Error: reason}
	var domain *svcErr.Error
	if errors.As(mapped, &domain) {
		body.Message = domain.Message
		body.Field = domain.Field
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Message = "internal error"
		body.Field = ""
	}
	writeJSON(w, status, body)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, svcErr.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, svcErr.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, svcErr.ErrInsufficientCredits):
		return http.StatusPaymentRequired, "insufficient_credits"
	case errors.Is(err, svcErr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, svcErr.ErrParticipantNotFound):
		return http.StatusNotFound, "participant_not_found"
	case errors.Is(err, svcErr.ErrAlreadyExpressed):
		return http.StatusConflict, "already_expressed"
	case errors.Is(err, svcErr.ErrMatchingInactive):
		return http.StatusConflict, "matching_inactive"
	case errors.Is(err, svcErr.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, svcErr.ErrMeetingExpired):
		return http.StatusGone, "meeting_expired"
	case errors.Is(err, svcErr.ErrProvisioning):
		return http.StatusBadGateway, "provisioning_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decodeBody rejects malformed or oversized request bodies up front so
// handlers only see well-formed input.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return svcErr.ValidationFailed("body", "malformed request body")
	}
	return nil
}

func pathID(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.ValidationFailed(name, "must be a positive integer")
	}
	return id, nil
}

// viewer returns the authenticated user id placed on the context by the
// auth middleware.
func viewer(r *http.Request) (uint64, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return 0, svcErr.Unauthorized("authentication required")
	}
	return userID, nil
}
