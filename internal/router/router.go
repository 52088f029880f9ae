package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hotel-room-reservation/internal/handler"
	"github.com/iliyamo/hotel-room-reservation/internal/metrics"
	"github.com/iliyamo/hotel-room-reservation/internal/middleware"
)

// Use installs the process-wide middleware chain: request ids, panic
// recovery, request logging and metrics.
func Use(e *echo.Echo, log zerolog.Logger) {
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(metrics.Middleware())
}

// RegisterRoutes registers routes that do not require authentication:
// the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", metrics.Handler())
}

// RegisterAuth registers the session endpoints.  register, login, refresh
// and logout work without an access token and share the rate limiter;
// me and logout-all need a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authn middleware.Authenticator, limit echo.MiddlewareFunc) {
	g := e.Group("/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	jwt := middleware.JWTAuth(authn)
	g.GET("/me", a.Me, jwt)
	g.POST("/logout-all", a.LogoutAll, jwt)
}

// RegisterRooms registers the public room search.  cache is applied to
// this route only.
func RegisterRooms(e *echo.Echo, r *handler.RoomHandler, cache echo.MiddlewareFunc) {
	e.GET("/rooms/available", r.Available, cache)
}
