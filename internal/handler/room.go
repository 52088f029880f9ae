package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/service"
)

// RoomHandler serves the public room search.
type RoomHandler struct {
	Availability *service.AvailabilityChecker
	Log          zerolog.Logger
}

func NewRoomHandler(a *service.AvailabilityChecker, log zerolog.Logger) *RoomHandler {
	return &RoomHandler{Availability: a, Log: log.With().Str("handler", "room").Logger()}
}

// Available handles GET /rooms/available?startDate&endDate&categoryId&maxPeople.
// maxPeople is the party size; rooms whose category holds fewer guests
// are skipped.
func (h *RoomHandler) Available(c echo.Context) error {
	start, end, ok := parseRange(c.QueryParam("startDate"), c.QueryParam("endDate"))
	if !ok {
		return badRequest(c, "startDate and endDate must be YYYY-MM-DD")
	}
	f := model.RoomFilter{CategoryID: strings.TrimSpace(c.QueryParam("categoryId"))}
	if v := strings.TrimSpace(c.QueryParam("maxPeople")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return badRequest(c, "maxPeople must be a non-negative integer")
		}
		f.MinCapacity = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	rooms, err := h.Availability.FindAvailable(ctx, start, end, f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	items := make([]roomResp, 0, len(rooms))
	for _, r := range rooms {
		items = append(items, toRoomResp(r))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"startDate": model.FormatDate(start),
		"endDate":   model.FormatDate(end),
		"items":     items,
		"count":     len(items),
	})
}
