// Package ratelimit implements a sliding-window request throttle keyed by
// caller-chosen strings, typically "(subject, action kind)" pairs. Two
// backends exist: a process-local in-memory window for single-instance
// deployments, and a Redis-backed window that stays correct when the service
// runs with more than one instance.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter decides whether a request identified by key may proceed. A nil
// return accepts the request and counts it against the window; a
// *LimitExceededError return rejects it without counting.
type Limiter interface {
	Check(ctx context.Context, key string, maxRequests int, window time.Duration) error
}

// LimitExceededError reports how long a caller must wait before the oldest
// counted request falls out of the window.
type LimitExceededError struct {
	ResetSeconds int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %ds", e.ResetSeconds)
}

// resetSeconds converts the wait until the oldest counted request leaves the
// window into whole seconds, rounding up
func resetSeconds(oldestMs, windowMs, nowMs int64) int {
	wait := oldestMs + windowMs - nowMs
	if wait < 0 {
		wait = 0
	}
	return int((wait + 999) / 1000)
}
