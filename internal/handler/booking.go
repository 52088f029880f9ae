package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hotel-room-reservation/internal/middleware"
	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/service"
)

// BookingHandler serves the reservation endpoints.  Routes that need a
// caller run behind JWTAuth; authorization beyond "is authenticated" is
// decided by the booking service.
type BookingHandler struct {
	Bookings     *service.BookingService
	Availability *service.AvailabilityChecker
	Log          zerolog.Logger
}

func NewBookingHandler(b *service.BookingService, a *service.AvailabilityChecker, log zerolog.Logger) *BookingHandler {
	if b == nil || a == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: b, Availability: a, Log: log.With().Str("handler", "booking").Logger()}
}

// CheckAvailability handles GET /bookings/checkavailability.  An unknown
// room is 404; a bad range is 400.
func (h *BookingHandler) CheckAvailability(c echo.Context) error {
	roomID := strings.TrimSpace(c.QueryParam("roomId"))
	if roomID == "" {
		return badRequest(c, "roomId is required")
	}
	start, end, ok := parseRange(c.QueryParam("startDate"), c.QueryParam("endDate"))
	if !ok {
		return badRequest(c, "startDate and endDate must be YYYY-MM-DD")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	free, err := h.Availability.IsAvailable(ctx, roomID, start, end)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"isAvailable": free,
		"roomId":      roomID,
		"startDate":   model.FormatDate(start),
		"endDate":     model.FormatDate(end),
	})
}

// Create handles POST /bookings.  The userId in the body must be the
// caller.  Returns 201 with the Pending booking.
func (h *BookingHandler) Create(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthorized)
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.RoomID) == "" {
		return badRequest(c, "roomId is required")
	}
	start, end, ok := parseRange(req.StartDate, req.EndDate)
	if !ok {
		return badRequest(c, "startDate and endDate must be YYYY-MM-DD")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Bookings.Create(ctx, p, service.CreateBookingInput{
		RoomID:    strings.TrimSpace(req.RoomID),
		UserID:    strings.TrimSpace(req.UserID),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// Cancel handles POST /bookings/:id/cancel (owner or admin).
func (h *BookingHandler) Cancel(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthorized)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Bookings.Cancel(ctx, p, c.Param("id"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled", "bookingId": b.ID})
}

// Confirm, CheckIn, CheckOut and MarkNoShow are the administrative
// status transitions.
func (h *BookingHandler) Confirm(c echo.Context) error { return h.transition(c, h.Bookings.Confirm) }

func (h *BookingHandler) CheckIn(c echo.Context) error { return h.transition(c, h.Bookings.CheckIn) }

func (h *BookingHandler) CheckOut(c echo.Context) error { return h.transition(c, h.Bookings.CheckOut) }

func (h *BookingHandler) MarkNoShow(c echo.Context) error {
	return h.transition(c, h.Bookings.MarkNoShow)
}

type transitionFunc func(context.Context, model.Principal, string) (model.Booking, error)

func (h *BookingHandler) transition(c echo.Context, fn transitionFunc) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthorized)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := fn(ctx, p, c.Param("id"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Update handles PUT /bookings/:id (admin).
func (h *BookingHandler) Update(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthorized)
	}
	var req updateBookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in := service.UpdateBookingInput{Recalculate: req.Recalculate}
	if req.StartDate != nil {
		d, err := model.ParseDate(*req.StartDate)
		if err != nil {
			return badRequest(c, "startDate must be YYYY-MM-DD")
		}
		in.StartDate = &d
	}
	if req.EndDate != nil {
		d, err := model.ParseDate(*req.EndDate)
		if err != nil {
			return badRequest(c, "endDate must be YYYY-MM-DD")
		}
		in.EndDate = &d
	}
	if req.Status != nil {
		st, err := model.ParseBookingStatus(*req.Status)
		if err != nil {
			return writeError(c, h.Log, service.ErrInvalidStatus)
		}
		in.Status = &st
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Bookings.Update(ctx, p, c.Param("id"), in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Delete handles DELETE /bookings/:id (admin).
func (h *BookingHandler) Delete(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthorized)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Bookings.Delete(ctx, p, c.Param("id")); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Get handles GET /bookings/:id (owner or admin).
func (h *BookingHandler) Get(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthorized)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Bookings.Get(ctx, p, c.Param("id"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// List handles GET /bookings (admin).
func (h *BookingHandler) List(c echo.Context) error {
	return h.list(c, func(ctx context.Context, p model.Principal) ([]model.Booking, error) {
		return h.Bookings.ListAll(ctx, p)
	})
}

// ListByUser handles GET /bookings/user/:userId (self or admin).
func (h *BookingHandler) ListByUser(c echo.Context) error {
	return h.list(c, func(ctx context.Context, p model.Principal) ([]model.Booking, error) {
		return h.Bookings.ListByUser(ctx, p, c.Param("userId"))
	})
}

// ListByRoom handles GET /bookings/room/:roomId (admin).
func (h *BookingHandler) ListByRoom(c echo.Context) error {
	return h.list(c, func(ctx context.Context, p model.Principal) ([]model.Booking, error) {
		return h.Bookings.ListByRoom(ctx, p, c.Param("roomId"))
	})
}

// ListByStatus handles GET /bookings/status/:status (admin).
func (h *BookingHandler) ListByStatus(c echo.Context) error {
	return h.list(c, func(ctx context.Context, p model.Principal) ([]model.Booking, error) {
		return h.Bookings.ListByStatus(ctx, p, c.Param("status"))
	})
}

func (h *BookingHandler) list(c echo.Context, fetch func(context.Context, model.Principal) ([]model.Booking, error)) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthorized)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := fetch(ctx, p)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toBookingList(list), "count": len(list)})
}

// History handles GET /bookings/history/:userId (self or admin).
func (h *BookingHandler) History(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthorized)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	hist, err := h.Bookings.History(ctx, p, c.Param("userId"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toHistoryResp(hist))
}

// parseRange reads two calendar dates.  Ordering is checked by the service.
func parseRange(startRaw, endRaw string) (start, end time.Time, ok bool) {
	start, err := model.ParseDate(startRaw)
	if err != nil {
		return start, end, false
	}
	end, err = model.ParseDate(endRaw)
	if err != nil {
		return start, end, false
	}
	return start, end, true
}
