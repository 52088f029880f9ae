package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-reservation/internal/handler"
	"github.com/iliyamo/hotel-room-reservation/internal/middleware"
)

// RegisterBookings registers the caller-scoped booking endpoints.  The
// availability probe is public; everything else needs a valid access
// token and ownership is checked by the booking service.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, authn middleware.Authenticator) {
	e.GET("/bookings/checkavailability", h.CheckAvailability)

	g := e.Group("/bookings", middleware.JWTAuth(authn))
	g.POST("", h.Create)
	g.POST("/:id/cancel", h.Cancel)
	g.GET("/:id", h.Get)
	g.GET("/user/:userId", h.ListByUser)
	g.GET("/history/:userId", h.History)

	registerAdminBookings(g, h)
}
