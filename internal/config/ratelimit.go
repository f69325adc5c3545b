package config

import "time"

// Bucket is one token bucket: Capacity requests in a burst, topped up by
// RefillTokens every RefillInterval.
type Bucket struct {
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
}

// FillTime is how long an empty bucket takes to become full again.
func (b Bucket) FillTime() time.Duration {
	steps := (b.Capacity + b.RefillTokens - 1) / b.RefillTokens
	return time.Duration(steps) * b.RefillInterval
}

// RateLimitConfig configures the Redis token buckets.  Auth is drawn per
// client IP on the token endpoints.  Read and Write are drawn per
// authenticated user; Write covers every recipe, tag, ingredient and
// profile mutation, including image uploads.
type RateLimitConfig struct {
	Enabled bool
	Prefix  string
	Auth    Bucket
	Read    Bucket
	Write   Bucket
	TTL     time.Duration // idle bucket expiry
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  Each bucket takes
// RATE_LIMIT_<AUTH|READ|WRITE>_{CAPACITY,REFILL_TOKENS,REFILL_INTERVAL}.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Prefix:  getenv("RATE_LIMIT_PREFIX", "rl"),
		Auth:    loadBucket("RATE_LIMIT_AUTH", Bucket{Capacity: 10, RefillTokens: 1, RefillInterval: 6 * time.Second}),
		Read:    loadBucket("RATE_LIMIT_READ", Bucket{Capacity: 120, RefillTokens: 2, RefillInterval: time.Second}),
		Write:   loadBucket("RATE_LIMIT_WRITE", Bucket{Capacity: 30, RefillTokens: 1, RefillInterval: 2 * time.Second}),
		TTL:     envDur("RATE_LIMIT_TTL", 10*time.Minute),
	}
	// an expired bucket starts full, so it must outlive its own refill
	for _, b := range []Bucket{cfg.Auth, cfg.Read, cfg.Write} {
		if full := b.FillTime(); cfg.TTL < full {
			cfg.TTL = full
		}
	}
	return cfg
}

func loadBucket(prefix string, def Bucket) Bucket {
	b := Bucket{
		Capacity:       max(1, envInt(prefix+"_CAPACITY", def.Capacity)),
		RefillTokens:   max(1, envInt(prefix+"_REFILL_TOKENS", def.RefillTokens)),
		RefillInterval: envDur(prefix+"_REFILL_INTERVAL", def.RefillInterval),
	}
	if b.RefillInterval <= 0 {
		b.RefillInterval = def.RefillInterval
	}
	return b
}
