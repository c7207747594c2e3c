package ratelimiter

import (
	"sync"
	"time"
)

// LeakyBucket smooths bursts into a steady outflow of rate requests per second.
type LeakyBucket struct {
	clock
	rate         float64   // Requests leaked per second.
	capacity     float64   // The maximum capacity of the bucket.
	waterLevel   float64   // Requests currently in the bucket.
	lastLeakTime time.Time // The last time the bucket was leaked.
	mutex        sync.Mutex
}

// NewLeakyBucket creates a new, empty LeakyBucket.
func NewLeakyBucket(rate float64, capacity int) *LeakyBucket {
	return &LeakyBucket{
		rate:     rate,
		capacity: float64(capacity),
	}
}

// Allow leaks the bucket for the elapsed time and admits the request if there is room.
func (lb *LeakyBucket) Allow() bool {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	now := lb.current()
	if lb.lastLeakTime.IsZero() {
		lb.lastLeakTime = now
	}
	if leaked := now.Sub(lb.lastLeakTime).Seconds() * lb.rate; leaked > 0 {
		lb.waterLevel -= leaked
		if lb.waterLevel < 0 {
			lb.waterLevel = 0
		}
		lb.lastLeakTime = now
	}

	if lb.waterLevel+1 <= lb.capacity {
		lb.waterLevel++
		return true
	}
	return false
}
