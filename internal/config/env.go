package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// Optional variables.  An unset, empty or malformed value yields the
// default; required variables go through reader.must instead.

func envStr(key, def string) string {
    if v := strings.TrimSpace(os.Getenv(key)); v != "" {
        return v
    }
    return def
}

func envBool(key string, def bool) bool {
    switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return def
}

func envInt(key string, def int) int {
    if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
        return n
    }
    return def
}

func envDur(key string, def time.Duration) time.Duration {
    if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
        return d
    }
    return def
}
