package ratelimiter

import (
	"container/list"
	"sync"
	"time"
)

// SlidingWindowLog keeps the timestamp of every admitted request inside the window.
type SlidingWindowLog struct {
	clock
	limit  int           // Maximum number of requests allowed in the window.
	window time.Duration // The duration of the time window.
	log    *list.List    // Admitted request timestamps, oldest first.
	mutex  sync.Mutex
}

// NewSlidingWindowLog creates a new SlidingWindowLog.
func NewSlidingWindowLog(limit int, window time.Duration) *SlidingWindowLog {
	return &SlidingWindowLog{
		limit:  limit,
		window: window,
		log:    list.New(),
	}
}

// Allow drops timestamps older than the window and admits the request if under the limit.
func (swl *SlidingWindowLog) Allow() bool {
	swl.mutex.Lock()
	defer swl.mutex.Unlock()

	now := swl.current()
	boundary := now.Add(-swl.window)
	for e := swl.log.Front(); e != nil && !e.Value.(time.Time).After(boundary); e = swl.log.Front() {
		swl.log.Remove(e)
	}

	if swl.log.Len() < swl.limit {
		swl.log.PushBack(now)
		return true
	}
	return false
}
