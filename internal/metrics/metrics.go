package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	BookingsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hotel_bookings_created_total",
		Help: "Bookings persisted in Pending status",
	})
	BookingConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hotel_booking_conflicts_total",
		Help: "Booking writes rejected because the room was already held",
	})
	BookingTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_booking_transitions_total",
		Help: "Booking status transitions by target status",
	}, []string{"to"})
	RefreshOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_refresh_total",
		Help: "Refresh token redemptions by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(HttpRequestsTotal, HttpRequestDuration, BookingsCreated, BookingConflicts, BookingTransitions, RefreshOutcomes)
}

// Middleware records request counts and latency per route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo write the error so the status below is final
				c.Error(err)
			}
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			labels := prometheus.Labels{
				"method": c.Request().Method,
				"path":   path,
				"status": strconv.Itoa(c.Response().Status),
			}
			HttpRequestsTotal.With(labels).Inc()
			HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler serves the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
