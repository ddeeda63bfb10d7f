package config

import "time"

// RateLimitConfig parameterizes the Redis token bucket in front of the
// API. Buckets are keyed per client IP and route (plus user id when
// authenticated), so one shopper hammering the payment callback cannot
// starve everyone else's browsing.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int           // bucket size, also the burst allowance
	RefillTokens   int           // tokens added per interval
	RefillInterval time.Duration //
	TTL            time.Duration // idle bucket expiry in Redis
	Prefix         string
	Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
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
	// A bucket must outlive several refill intervals, otherwise idle
	// clients get a fresh bucket on every visit.
	if min := 5 * cfg.RefillInterval; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}
