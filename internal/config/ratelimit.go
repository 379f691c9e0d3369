package config

import (
    "os"
    "strconv"
    "time"
)

// RateLimitConfig drives the Redis token bucket applied to the mutating
// client endpoints (join, leave, advance). One bucket exists per derived
// key; KeyStrategy picks which request attributes form that key.
type RateLimitConfig struct {
    Enabled        bool          // master switch; disabled yields a pass-through middleware
    Capacity       int           // bucket size, i.e. the largest allowed burst
    RefillTokens   int           // tokens restored every RefillInterval
    RefillInterval time.Duration // refill period
    TTL            time.Duration // idle bucket expiry in Redis
    KeyStrategy    string        // ip | user | route | ip_user | ip_route | user_route | ip_user_route
    Prefix         string        // Redis key namespace
    Debug          bool          // verbose logging plus the X-RateLimit-Key header
}

// LoadRateLimitConfig reads RATE_LIMIT_* environment variables and
// normalizes them into a usable configuration. Every value has a sane
// default so the limiter works out of the box.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }

    // RATE_LIMIT_BURST and RATE_LIMIT_REFILL_EVERY are shorthand
    // overrides for the common "N requests, one refill every D" shape.
    if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
        cfg.Capacity = b
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        cfg.RefillTokens = 1
        cfg.RefillInterval = every
    }

    if cfg.Capacity < 1 {
        cfg.Capacity = 1
    }
    if cfg.RefillTokens < 1 {
        cfg.RefillTokens = 1
    }
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    // Buckets must outlive several refill periods or they reset mid-burst.
    if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
        cfg.TTL = minTTL
    }
    return cfg
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    switch os.Getenv(k) {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    if v := os.Getenv(k); v != "" {
        if n, err := strconv.Atoi(v); err == nil {
            return n
        }
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    if v := os.Getenv(k); v != "" {
        if dur, err := time.ParseDuration(v); err == nil {
            return dur
        }
    }
    return d
}
