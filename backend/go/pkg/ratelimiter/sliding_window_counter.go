package ratelimiter

import (
	"sync"
	"time"
)

// SlidingWindowCounter splits the window into buckets and counts requests per bucket.
// It uses less memory than SlidingWindowLog and is smoother than FixedWindowCounter at window edges.
type SlidingWindowCounter struct {
	clock
	limit          int           // Maximum number of requests allowed in the window.
	numBuckets     int           // The number of buckets the window is divided into.
	bucketSize     time.Duration // The duration of a single bucket.
	buckets        []int         // Request count per bucket.
	currentBucket  int           // Index of the current bucket.
	lastUpdateTime time.Time     // Start of the current bucket.
	mutex          sync.Mutex
}

// NewSlidingWindowCounter creates a new SlidingWindowCounter. numBuckets<=0 means 10.
func NewSlidingWindowCounter(limit int, window time.Duration, numBuckets int) *SlidingWindowCounter {
	if numBuckets <= 0 {
		numBuckets = 10
	}
	bucketSize := window / time.Duration(numBuckets)
	if bucketSize <= 0 {
		bucketSize = time.Nanosecond
	}
	return &SlidingWindowCounter{
		limit:      limit,
		numBuckets: numBuckets,
		bucketSize: bucketSize,
		buckets:    make([]int, numBuckets),
	}
}

// slideWindow clears buckets that fell out of the window.
func (swc *SlidingWindowCounter) slideWindow(now time.Time) {
	if swc.lastUpdateTime.IsZero() {
		swc.lastUpdateTime = now
		return
	}
	bucketsToSlide := int(now.Sub(swc.lastUpdateTime) / swc.bucketSize)
	if bucketsToSlide <= 0 {
		return
	}
	if bucketsToSlide >= swc.numBuckets {
		for i := range swc.buckets {
			swc.buckets[i] = 0
		}
	} else {
		for i := 1; i <= bucketsToSlide; i++ {
			swc.buckets[(swc.currentBucket+i)%swc.numBuckets] = 0
		}
	}
	swc.currentBucket = (swc.currentBucket + bucketsToSlide) % swc.numBuckets
	swc.lastUpdateTime = swc.lastUpdateTime.Add(time.Duration(bucketsToSlide) * swc.bucketSize)
}

// Allow checks if a request is allowed.
func (swc *SlidingWindowCounter) Allow() bool {
	swc.mutex.Lock()
	defer swc.mutex.Unlock()

	swc.slideWindow(swc.current())

	var total int
	for _, count := range swc.buckets {
		total += count
	}
	if total < swc.limit {
		swc.buckets[swc.currentBucket]++
		return true
	}
	return false
}
