package engine

import (
	"sync"
	"time"
)

// RateLimiter is a hard operational control on scan throughput, not a
// risk signal. A fixed window keeps the bookkeeping to two counters
// under one mutex.
type RateLimiter struct {
	mu          sync.Mutex
	perMinute   int
	minuteCount int
	minuteReset time.Time
	now         func() time.Time
}

// NewRateLimiter builds a limiter allowing perMinute scans. A limit of
// 0 or less disables the limiter.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		perMinute: perMinute,
		now:       time.Now,
	}
}

// Allow reports whether another scan may proceed and counts it.
func (r *RateLimiter) Allow() bool {
	if r == nil || r.perMinute <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.After(r.minuteReset) {
		r.minuteCount = 0
		r.minuteReset = now.Add(time.Minute)
	}
	if r.minuteCount >= r.perMinute {
		return false
	}
	r.minuteCount++
	return true
}
