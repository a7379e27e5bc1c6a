package server

import (
	"sync"
	"time"
)

const pruneThreshold = 1024

// rateLimiter is a sliding-window per-client request limiter.
type rateLimiter struct {
	requests map[string][]time.Time
	now      func() time.Time
	limit    int
	window   time.Duration
	mu       sync.Mutex
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		requests: make(map[string][]time.Time),
		now:      time.Now,
		limit:    limit,
		window:   window,
	}
}

func (rl *rateLimiter) allow(client string) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	var valid []time.Time
	for _, t := range rl.requests[client] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[client] = valid
		return false
	}

	rl.requests[client] = append(valid, now)
	if len(rl.requests) > pruneThreshold {
		rl.prune(cutoff)
	}
	return true
}

// prune drops clients with no request inside the window. Caller holds mu.
func (rl *rateLimiter) prune(cutoff time.Time) {
	for client, times := range rl.requests {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(rl.requests, client)
		}
	}
}
