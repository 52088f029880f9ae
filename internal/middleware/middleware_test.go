package middleware

import (
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/hotel-room-reservation/internal/config"
    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

type stubAuth map[string]model.Principal

func (s stubAuth) Authenticate(raw string) (model.Principal, error) {
    p, ok := s[raw]
    if !ok {
        return model.Principal{}, errors.New("bad token")
    }
    return p, nil
}

func newTestServer(mw ...echo.MiddlewareFunc) *echo.Echo {
    e := echo.New()
    e.GET("/who", func(c echo.Context) error {
        p, _ := PrincipalFrom(c)
        return c.String(http.StatusOK, p.UserID+"/"+p.Role)
    }, mw...)
    return e
}

func do(e *echo.Echo, header string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(http.MethodGet, "/who", nil)
    if header != "" {
        req.Header.Set(echo.HeaderAuthorization, header)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuth(t *testing.T) {
    auth := stubAuth{
        "good":  {UserID: "u1", Role: model.RoleClient},
        "admin": {UserID: "a1", Role: model.RoleAdmin},
    }
    e := newTestServer(JWTAuth(auth))

    rec := do(e, "Bearer good")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "u1/Client", rec.Body.String())

    assert.Equal(t, http.StatusOK, do(e, "bearer admin").Code)
    assert.Equal(t, http.StatusUnauthorized, do(e, "").Code)
    assert.Equal(t, http.StatusUnauthorized, do(e, "Bearer ").Code)
    assert.Equal(t, http.StatusUnauthorized, do(e, "Basic good").Code)
    assert.Equal(t, http.StatusUnauthorized, do(e, "Bearer forged").Code)
}

func TestRequireRole(t *testing.T) {
    auth := stubAuth{
        "client": {UserID: "u1", Role: model.RoleClient},
        "admin":  {UserID: "a1", Role: model.RoleAdmin},
    }
    e := newTestServer(JWTAuth(auth), RequireAdmin())
    assert.Equal(t, http.StatusForbidden, do(e, "Bearer client").Code)
    assert.Equal(t, http.StatusOK, do(e, "Bearer admin").Code)

    // without JWTAuth in front there is no principal
    bare := newTestServer(RequireAdmin())
    assert.Equal(t, http.StatusUnauthorized, do(bare, "Bearer admin").Code)
}

func TestBearer(t *testing.T) {
    raw, ok := bearer("Bearer  abc ")
    assert.True(t, ok)
    assert.Equal(t, "abc", raw)

    _, ok = bearer("Bearer")
    assert.False(t, ok)
}

func TestTokenBucketLocalFallback(t *testing.T) {
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Minute,
        TTL:            10 * time.Minute,
        KeyStrategy:    "ip_route",
        Prefix:         "test:rl",
    }
    e := newTestServer(NewTokenBucket(cfg, nil, zerolog.Nop()))

    assert.Equal(t, http.StatusOK, do(e, "").Code)
    assert.Equal(t, http.StatusOK, do(e, "").Code)
    rec := do(e, "")
    require.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.NotEmpty(t, rec.Header().Get("Retry-After"))
    assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
}

func TestTokenBucketDisabled(t *testing.T) {
    cfg := config.RateLimitConfig{Enabled: false, Capacity: 1}
    e := newTestServer(NewTokenBucket(cfg, nil, zerolog.Nop()))
    for i := 0; i < 5; i++ {
        assert.Equal(t, http.StatusOK, do(e, "").Code)
    }
}

func TestLocalLimiterForgetsIdleKeys(t *testing.T) {
    l := newLocalLimiter(1, 1, 200*time.Millisecond)
    assert.True(t, l.take("a").allowed)
    assert.False(t, l.take("a").allowed)
    time.Sleep(300 * time.Millisecond)
    l.take("b")
    l.mu.Lock()
    _, kept := l.m["a"]
    l.mu.Unlock()
    assert.False(t, kept)
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
    req.RemoteAddr = "10.0.0.1:1234"
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/auth/login")

    cfg := config.RateLimitConfig{Prefix: "p", KeyStrategy: "ip_route"}
    assert.Equal(t, "p:ip:10.0.0.1:route:POST /auth/login", buildRateKey(cfg, c))

    cfg.KeyStrategy = "user"
    assert.Equal(t, "p:user:anon", buildRateKey(cfg, c))
    setPrincipal(c, model.Principal{UserID: "u9", Role: model.RoleClient})
    assert.Equal(t, "p:user:u9", buildRateKey(cfg, c))
}

func TestCacheKeyIgnoresQueryOrder(t *testing.T) {
    e := echo.New()
    cfg := config.CacheConfig{Prefix: "c", KeyStrategy: "route_query"}
    key := func(target string) string {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
        c.SetPath("/rooms/available")
        return cacheKeyFrom(cfg, c)
    }
    a := key("/rooms/available?startDate=2025-01-01&endDate=2025-01-03")
    b := key("/rooms/available?endDate=2025-01-03&startDate=2025-01-01")
    assert.Equal(t, a, b)
    assert.NotEqual(t, a, key("/rooms/available?startDate=2025-01-02&endDate=2025-01-03"))
}

func TestCacheWithoutRedisPassesThrough(t *testing.T) {
    e := newTestServer(NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil))
    rec := do(e, "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestCaptureWriterOverflow(t *testing.T) {
    rec := httptest.NewRecorder()
    cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
    _, _ = cw.Write([]byte("abc"))
    assert.False(t, cw.overflow)
    _, _ = cw.Write([]byte("de"))
    assert.True(t, cw.overflow)
    assert.Equal(t, "abcde", rec.Body.String())
}
