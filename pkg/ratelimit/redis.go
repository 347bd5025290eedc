package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"vibe-be/pkg/redis"
)

// RedisLimiter keeps the sliding window in a Redis sorted set so every
// service instance counts against the same limit. Entries are scored by
// accept time in epoch ms; the key expires after twice the window, which
// makes a dedicated sweep unnecessary.
type RedisLimiter struct {
	client *redis.Client
	seq    uint64
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed limiter
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		now:    time.Now,
	}
}

// Check prunes entries older than the window, rejects the request if the
// remaining count has reached maxRequests, and otherwise counts it. Keys are
// namespaced per environment so staging traffic never shares a window with
// production.
func (l *RedisLimiter) Check(ctx context.Context, key string, maxRequests int, window time.Duration) error {
	key = l.client.KeyBuilder.BuildKey(key)
	nowMs := l.now().UnixMilli()
	windowMs := window.Milliseconds()
	cutoff := nowMs - windowMs

	if err := l.client.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10)); err != nil {
		return fmt.Errorf("failed to prune rate limit window: %w", err)
	}

	count, err := l.client.ZCard(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to count rate limit window: %w", err)
	}

	if count >= int64(maxRequests) {
		oldest, err := l.client.ZRangeWithScores(ctx, key, 0, 0)
		if err != nil {
			return fmt.Errorf("failed to read rate limit window: %w", err)
		}
		oldestMs := nowMs
		if len(oldest) > 0 {
			oldestMs = int64(oldest[0].Score)
		}
		return &LimitExceededError{ResetSeconds: resetSeconds(oldestMs, windowMs, nowMs)}
	}

	// Sequence suffix keeps members unique when two requests land in the
	// same millisecond
	member := fmt.Sprintf("%d-%d", nowMs, atomic.AddUint64(&l.seq, 1))
	if err := l.client.ZAdd(ctx, key, float64(nowMs), member); err != nil {
		return fmt.Errorf("failed to record rate limit hit: %w", err)
	}
	if err := l.client.Expire(ctx, key, 2*window); err != nil {
		return fmt.Errorf("failed to set rate limit key TTL: %w", err)
	}

	return nil
}
