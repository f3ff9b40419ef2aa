package server

import (
	"sync"
	"time"
)

// submitWindow is the sliding interval Allow counts submissions over.
const submitWindow = time.Minute

// JobRateLimiter caps how many jobs one client address may submit per
// sliding minute.
type JobRateLimiter struct {
	mu     sync.Mutex
	limit  int
	recent map[string][]time.Time
}

// NewJobRateLimiter allows up to maxPerMinute submissions per address.
func NewJobRateLimiter(maxPerMinute int) *JobRateLimiter {
	return &JobRateLimiter{
		limit:  maxPerMinute,
		recent: make(map[string][]time.Time),
	}
}

// Allow records a submission from addr and reports whether it fits the
// window. A refused submission is not recorded.
func (rl *JobRateLimiter) Allow(addr string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-submitWindow)

	// Timestamps append in order, so the live entries are a suffix.
	stamps := rl.recent[addr]
	start := 0
	for start < len(stamps) && !stamps[start].After(cutoff) {
		start++
	}
	stamps = stamps[start:]

	if len(stamps) >= rl.limit {
		rl.recent[addr] = stamps
		return false
	}
	rl.recent[addr] = append(stamps, now)
	return true
}
