package ratelimiter

import (
	"EnterpriseAgent/backend/go/internal/config"
	"fmt"
	"time"
)

// RateLimiter is the interface for rate limiting.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// clock is embedded by every limiter so tests can drive time.
type clock struct {
	now func() time.Time
}

func (c *clock) current() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// New builds the limiter selected by cfg.Algorithm.
func New(cfg config.RateLimiterConfig) (RateLimiter, error) {
	switch cfg.Algorithm {
	case "", "tokenBucket":
		c := cfg.TokenBucket
		if c.Rate <= 0 || c.Capacity <= 0 {
			return nil, fmt.Errorf("tokenBucket needs positive rate and capacity")
		}
		return NewTokenBucket(c.Rate, c.Capacity), nil
	case "leakyBucket":
		c := cfg.LeakyBucket
		if c.Rate <= 0 || c.Capacity <= 0 {
			return nil, fmt.Errorf("leakyBucket needs positive rate and capacity")
		}
		return NewLeakyBucket(c.Rate, c.Capacity), nil
	case "fixedWindow", "slidingLog", "slidingCounter":
		var w config.FixedWindowConfig
		switch cfg.Algorithm {
		case "fixedWindow":
			w = cfg.FixedWindow
		case "slidingLog":
			w = cfg.SlidingLog
		default:
			w = cfg.SlidingCounter.FixedWindowConfig
		}
		window, err := time.ParseDuration(w.Window)
		if err != nil || window <= 0 {
			return nil, fmt.Errorf("invalid %s window %q", cfg.Algorithm, w.Window)
		}
		if w.Limit <= 0 {
			return nil, fmt.Errorf("%s needs a positive limit", cfg.Algorithm)
		}
		switch cfg.Algorithm {
		case "fixedWindow":
			return NewFixedWindowCounter(w.Limit, window), nil
		case "slidingLog":
			return NewSlidingWindowLog(w.Limit, window), nil
		default:
			return NewSlidingWindowCounter(w.Limit, window, cfg.SlidingCounter.NumBuckets), nil
		}
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", cfg.Algorithm)
	}
}
