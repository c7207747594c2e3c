package ratelimiter

import (
	"golang.org/x/time/rate"
)

// TokenBucket allows bursts up to capacity and refills at rate tokens per second.
// The bucket itself is a *rate.Limiter; the embedded clock decides which instant is charged.
type TokenBucket struct {
	clock
	limiter *rate.Limiter
}

// NewTokenBucket creates a new TokenBucket that starts full.
func NewTokenBucket(r float64, capacity int) *TokenBucket {
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(r), capacity)}
}

// Allow takes one token at the current time if available.
func (tb *TokenBucket) Allow() bool {
	return tb.limiter.AllowN(tb.current(), 1)
}
