// Package service holds the reservation core: availability, pricing, the
// booking lifecycle and the session token lifecycle.  Everything here is
// transport-agnostic; handlers translate the sentinel errors below into
// HTTP responses.
package service

import (
	"errors"

	"github.com/iliyamo/hotel-room-reservation/internal/repository"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrInvalidRange       = errors.New("invalid date range")
	ErrInvalidDiscount    = errors.New("invalid discount")
	ErrRoomUnavailable    = errors.New("room is not available for the selected dates")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidState       = errors.New("invalid booking state")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidStatus      = errors.New("invalid booking status")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidInput       = errors.New("invalid input")
)

// ErrorKind returns a stable label for err, used in logs and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, ErrInvalidDiscount):
		return "invalid_discount"
	case errors.Is(err, ErrRoomUnavailable):
		return "room_unavailable"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	}
	return "internal"
}

// notFound converts the repository sentinel into target, leaving other
// errors as they are.
func notFound(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}
