package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// defaultSweepChance is the per-call probability of a full-store sweep that
// drops keys with no activity inside twice the window
const defaultSweepChance = 0.01

// MemoryLimiter is a process-local sliding-window limiter. It provides
// best-effort protection for a single instance only; deployments running
// more than one instance must use RedisLimiter so all instances share one
// window.
type MemoryLimiter struct {
	mu          sync.Mutex
	hits        map[string][]int64 // accepted request times per key, epoch ms, ascending
	sweepChance float64
	now         func() time.Time
}

// NewMemoryLimiter creates a new in-memory limiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		hits:        make(map[string][]int64),
		sweepChance: defaultSweepChance,
		now:         time.Now,
	}
}

// Check prunes timestamps older than the window, rejects the request if the
// remaining count has reached maxRequests, and otherwise counts it
func (l *MemoryLimiter) Check(ctx context.Context, key string, maxRequests int, window time.Duration) error {
	nowMs := l.now().UnixMilli()
	windowMs := window.Milliseconds()
	cutoff := nowMs - windowMs

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamps := l.hits[key]
	keep := 0
	for keep < len(timestamps) && timestamps[keep] <= cutoff {
		keep++
	}
	timestamps = timestamps[keep:]

	if len(timestamps) >= maxRequests {
		l.hits[key] = timestamps
		return &LimitExceededError{ResetSeconds: resetSeconds(timestamps[0], windowMs, nowMs)}
	}

	l.hits[key] = append(timestamps, nowMs)

	// Opportunistic sweep after the decision, so abandoned keys cannot
	// grow the map without bound
	if rand.Float64() < l.sweepChance {
		l.sweepLocked(nowMs - 2*windowMs)
	}

	return nil
}

// sweepLocked drops keys whose newest timestamp is at or before the cutoff;
// the caller must hold the mutex
func (l *MemoryLimiter) sweepLocked(cutoff int64) {
	for key, timestamps := range l.hits {
		if len(timestamps) == 0 || timestamps[len(timestamps)-1] <= cutoff {
			delete(l.hits, key)
		}
	}
}

// Len reports the number of tracked keys
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}
