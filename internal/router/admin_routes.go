package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-reservation/internal/handler"
	"github.com/iliyamo/hotel-room-reservation/internal/middleware"
)

// registerAdminBookings adds the administrative booking endpoints to the
// authenticated /bookings group.  Each route also requires the Admin role.
func registerAdminBookings(g *echo.Group, h *handler.BookingHandler) {
	admin := middleware.RequireAdmin()

	// ---- Reads ----
	g.GET("", h.List, admin)
	g.GET("/room/:roomId", h.ListByRoom, admin)
	g.GET("/status/:status", h.ListByStatus, admin)

	// ---- Edits ----
	g.PUT("/:id", h.Update, admin)
	g.DELETE("/:id", h.Delete, admin)

	// ---- Status transitions ----
	g.POST("/:id/confirm", h.Confirm, admin)
	g.POST("/:id/checkin", h.CheckIn, admin)
	g.POST("/:id/checkout", h.CheckOut, admin)
	g.POST("/:id/noshow", h.MarkNoShow, admin)
}
