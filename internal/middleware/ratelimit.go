package middleware

import (
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"
    "golang.org/x/time/rate"

    "github.com/iliyamo/hotel-room-reservation/internal/config"
)

// limiterScript is a continuously refilled token bucket.  The hash holds
// the token count (fractional) and the time of the last update in ms.
// Returns {allowed, remaining, retry_after_ms}.
var limiterScript = redis.NewScript(`
local key      = KEYS[1]
local now      = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local per_ms   = tonumber(ARGV[3]) / tonumber(ARGV[4])
local ttl      = tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', key, 't'))
local at     = tonumber(redis.call('HGET', key, 'at'))
if tokens == nil or at == nil then
  tokens, at = capacity, now
end
if now > at then
  tokens = math.min(capacity, tokens + (now - at) * per_ms)
  at = now
end

local allowed, wait = 0, 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.ceil((1 - tokens) / per_ms)
end

redis.call('HSET', key, 't', tokens, 'at', at)
redis.call('EXPIRE', key, ttl)
return { allowed, math.floor(tokens), wait }
`)

// decision is the outcome of one rate limit check.
type decision struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

// NewTokenBucket limits requests per key.  With a Redis client the bucket
// is shared by every instance; without one, or whenever Redis errors, an
// in-process golang.org/x/time/rate limiter with the same capacity and
// refill rate takes over.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log zerolog.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    local := newLocalLimiter(rate.Limit(cfg.PerSecond()), cfg.Capacity, cfg.TTL)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)

            var (
                d   decision
                err error
            )
            if rdb != nil {
                d, err = redisTake(c, rdb, cfg, key)
                if err != nil && cfg.Debug {
                    log.Warn().Err(err).Str("key", key).Msg("redis rate limit failed; using local limiter")
                }
            }
            if rdb == nil || err != nil {
                d = local.take(key)
            }

            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))

            if !d.allowed {
                secs := int(math.Ceil(d.retry.Seconds()))
                if secs < 1 {
                    secs = 1
                }
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                if cfg.Debug {
                    log.Info().Str("key", key).Dur("retry", d.retry).Msg("rate limited")
                }
                return c.JSON(http.StatusTooManyRequests, map[string]any{
                    "error":       "too_many_requests",
                    "message":     "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            if cfg.Debug {
                c.Response().Header().Set("X-RateLimit-Key", key)
            }
            return next(c)
        }
    }
}

func redisTake(c echo.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string) (decision, error) {
    args := []interface{}{
        time.Now().UnixMilli(),
        cfg.Capacity,
        cfg.RefillTokens,
        cfg.RefillInterval.Milliseconds(),
        int64(cfg.TTL / time.Second),
    }
    vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
    if err != nil {
        return decision{}, err
    }
    arr, ok := vals.([]interface{})
    if !ok || len(arr) != 3 {
        return decision{}, fmt.Errorf("unexpected script result: %#v", vals)
    }
    return decision{
        allowed:   asInt64(arr[0]) == 1,
        remaining: asInt64(arr[1]),
        retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
    }, nil
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int32:
        return int64(t)
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil {
            return n
        }
    }
    return 0
}

// localLimiter keeps one rate.Limiter per key and forgets idle keys.
type localLimiter struct {
    mu    sync.Mutex
    m     map[string]*keyLimiter
    r     rate.Limit
    b     int
    ttl   time.Duration
    swept time.Time
}

type keyLimiter struct {
    lim *rate.Limiter
    ts  time.Time
}

func newLocalLimiter(r rate.Limit, burst int, ttl time.Duration) *localLimiter {
    if burst < 1 {
        burst = 1
    }
    return &localLimiter{m: make(map[string]*keyLimiter), r: r, b: burst, ttl: ttl}
}

func (l *localLimiter) take(key string) decision {
    now := time.Now()
    l.mu.Lock()
    if now.Sub(l.swept) > l.ttl {
        for k, v := range l.m {
            if now.Sub(v.ts) > l.ttl {
                delete(l.m, k)
            }
        }
        l.swept = now
    }
    kl, ok := l.m[key]
    if !ok {
        kl = &keyLimiter{lim: rate.NewLimiter(l.r, l.b)}
        l.m[key] = kl
    }
    kl.ts = now
    l.mu.Unlock()

    res := kl.lim.ReserveN(now, 1)
    if !res.OK() {
        return decision{allowed: false, retry: time.Second}
    }
    if delay := res.DelayFrom(now); delay > 0 {
        res.CancelAt(now)
        return decision{allowed: false, retry: delay}
    }
    return decision{allowed: true, remaining: int64(kl.lim.TokensAt(now))}
}

// keyParts lists, per strategy, which request attributes identify a
// bucket.  Unknown strategies use all three.
var keyParts = map[string][]string{
    "ip":         {"ip"},
    "user":       {"user"},
    "route":      {"route"},
    "ip_user":    {"ip", "user"},
    "ip_route":   {"ip", "route"},
    "user_route": {"user", "route"},
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts, ok := keyParts[strings.ToLower(cfg.KeyStrategy)]
    if !ok {
        parts = []string{"ip", "user", "route"}
    }
    key := []string{cfg.Prefix}
    for _, p := range parts {
        var v string
        switch p {
        case "ip":
            if v = c.RealIP(); v == "" {
                v = "unknown"
            }
        case "user":
            v = currentUserID(c)
        case "route":
            v = c.Request().Method + " " + c.Path()
        }
        key = append(key, p, v)
    }
    return strings.Join(key, ":")
}
