package config

import (
    "strings"
    "time"
)

// CacheConfig controls the Redis response cache on the room search.
// Availability changes with every booking, so entries live briefly.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool // upper-case HTTP methods eligible for caching
    TTL          time.Duration
    KeyStrategy  string // route | method_route | method_route_query | route_query
    Prefix       string
    MaxBodyBytes int // larger responses are served but not stored
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      methodSet(envStr("CACHE_METHODS", "GET")),
        TTL:          envDur("CACHE_TTL", 10*time.Second),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "hotel:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}

func methodSet(csv string) map[string]bool {
    set := make(map[string]bool)
    for _, m := range strings.Split(csv, ",") {
        if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
            set[m] = true
        }
    }
    return set
}
