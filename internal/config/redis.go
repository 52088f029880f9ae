package config

// Redis backs the distributed rate limiter and the response cache.  If the
// server cannot be reached at start-up NewRedisClient returns nil and the
// callers degrade: the cache is disabled and rate limiting falls back to
// an in-process limiter.

import (
    "context"
    "crypto/tls"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"
)

// RedisConfig describes the Redis connection.
type RedisConfig struct {
    Enabled  bool
    Addr     string
    Password string
    DB       int
    TLS      bool
}

// LoadRedisConfig reads:
//   REDIS_ENABLED – set to false to skip Redis entirely (default true)
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand (used when host/port are not both set)
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
func LoadRedisConfig() RedisConfig {
    host := envStr("REDIS_HOST", "")
    port := envStr("REDIS_PORT", "")
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    tlsEnv := envStr("REDIS_TLS", "")
    return RedisConfig{
        Enabled:  envBool("REDIS_ENABLED", true),
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
        TLS:      strings.EqualFold(tlsEnv, "true") || tlsEnv == "1",
    }
}

// NewRedisClient connects and pings with a short timeout.  The returned
// client is nil when Redis is disabled or unreachable.
func NewRedisClient(cfg RedisConfig, log zerolog.Logger) *redis.Client {
    if !cfg.Enabled {
        return nil
    }
    var tlsConf *tls.Config
    if cfg.TLS {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      cfg.Addr,
        Password:  cfg.Password,
        DB:        cfg.DB,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unavailable; cache off, in-process rate limiting")
        _ = client.Close()
        return nil
    }
    return client
}
