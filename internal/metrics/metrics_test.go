package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/ping/:id", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	e.GET("/metrics", Handler())

	before := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues(http.MethodGet, "/ping/:id", "200"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping/7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	after := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues(http.MethodGet, "/ping/:id", "200"))
	assert.Equal(t, before+1, after)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "http_requests_total"))
}
