// Package errors defines the domain error taxonomy for the matching engine.
// Services return these; the HTTP layer maps them to status codes and the
// machine-readable reason strings clients key their messaging on.
package errors

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sentinel reasons. errors.Is against these drives all mapping; the
// *Error carrier adds the human-readable part.
var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAlreadyExpressed    = errors.New("already expressed")
	ErrMatchingInactive    = errors.New("matching inactive")
	ErrMeetingExpired      = errors.New("meeting expired")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("conflict")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrProvisioning        = errors.New("channel provisioning failed")
)

// Error carries a sentinel plus caller-facing detail.
type Error struct {
	Err     error  // sentinel from the set above
	Message string // human-readable detail
	Field   string // optional: input field at fault
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func InsufficientCredits(balance int64) *Error {
	return &Error{
		Err:     ErrInsufficientCredits,
		Message: fmt.Sprintf("no credits remaining (balance %d); an interest costs one credit", balance),
	}
}

func AlreadyExpressed(recipientID uint64) *Error {
	return &Error{
		Err:     ErrAlreadyExpressed,
		Message: fmt.Sprintf("interest in user %d is already recorded", recipientID),
	}
}

func MatchingInactive(groupID uint64) *Error {
	return &Error{
		Err:     ErrMatchingInactive,
		Message: fmt.Sprintf("matching is not active in group %d", groupID),
	}
}

func MeetingExpired(meetingID uint64) *Error {
	return &Error{
		Err:     ErrMeetingExpired,
		Message: fmt.Sprintf("meeting %d has expired", meetingID),
	}
}

func ParticipantNotFound(meetingID uint64) *Error {
	return &Error{
		Err:     ErrParticipantNotFound,
		Message: fmt.Sprintf("no active participation in meeting %d", meetingID),
	}
}

func NotFound(resource string, id uint64) *Error {
	return &Error{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %d not found", resource, id),
	}
}

func ValidationFailed(field, message string) *Error {
	return &Error{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *Error {
	return &Error{Err: ErrConflict, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Err: ErrUnauthorized, Message: message}
}

// Provisioning wraps a collaborator failure that must be retried by the
// caller; a match is never persisted without its channel.
func Provisioning(err error) *Error {
	return &Error{
		Err:     ErrProvisioning,
		Message: fmt.Sprintf("chat channel provisioning failed: %v", err),
	}
}

// Map folds storage/context errors into the domain taxonomy. Errors that
// already carry a sentinel pass through unchanged.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var domain *Error
	if errors.As(err, &domain) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Err: ErrNotFound, Message: "record not found"}

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return err

	default:
		return err
	}
}
