package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hotel-room-reservation/internal/service"
)

// statusOf maps a service error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrRoomUnavailable),
		errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidDiscount),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": msg}.  Internal errors are logged
// and answered with a generic message.
func writeError(c echo.Context, log zerolog.Logger, err error) error {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.JSON(code, echo.Map{"error": "internal error"})
	}
	if code == http.StatusUnauthorized {
		// token failures carry no detail worth echoing
		return c.JSON(code, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(code, echo.Map{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
