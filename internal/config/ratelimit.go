package config

import "time"

// RateLimitConfig drives the token bucket in front of /auth.  Capacity
// requests may burst; afterwards RefillTokens come back every
// RefillInterval.  The in-process fallback uses the same numbers.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration // idle bucket lifetime
    KeyStrategy    string        // ip | user | route | ip_user | ip_route | user_route | all
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  RATE_LIMIT_BURST and
// RATE_LIMIT_REFILL_EVERY are shorthands for capacity and a one-token
// refill period.
func LoadRateLimitConfig() RateLimitConfig {
    c := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "hotel:rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if burst := envInt("RATE_LIMIT_BURST", 0); burst > 0 {
        c.Capacity = burst
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        c.RefillTokens, c.RefillInterval = 1, every
    }
    return c.normalize()
}

// normalize clamps nonsensical values.  Buckets must outlive a few refill
// periods or an idle client would always start full.
func (c RateLimitConfig) normalize() RateLimitConfig {
    c.Capacity = max(c.Capacity, 1)
    c.RefillTokens = max(c.RefillTokens, 1)
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    c.TTL = max(c.TTL, 5*c.RefillInterval)
    return c
}

// PerSecond is the steady refill rate in tokens per second.
func (c RateLimitConfig) PerSecond() float64 {
    if c.RefillInterval <= 0 {
        return 0
    }
    return float64(c.RefillTokens) / c.RefillInterval.Seconds()
}
