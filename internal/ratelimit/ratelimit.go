// Package ratelimit enforces a fixed-window login attempt limit per
// client IP, backed by redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "ratelimit:login:"

// Limiter counts login attempts per IP within a rolling window.
type Limiter struct {
	client *redis.Client
	perIP  int
	window time.Duration
}

// NewLimiter creates a login rate limiter.
func NewLimiter(client *redis.Client, perIP int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		perIP:  perIP,
		window: window,
	}
}

// Allowed reports whether the IP is still under its attempt limit.
func (l *Limiter) Allowed(ctx context.Context, ip string) (bool, error) {
	count, err := l.client.Get(ctx, keyPrefix+ip).Int()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}
	return count < l.perIP, nil
}

// Record counts one login attempt against the IP. The window TTL is set
// on the first attempt and left untouched afterwards.
func (l *Limiter) Record(ctx context.Context, ip string) error {
	key := keyPrefix + ip

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return nil
}

// RemainingTime returns how long until the IP's window resets. Zero
// means no window is active.
func (l *Limiter) RemainingTime(ctx context.Context, ip string) (time.Duration, error) {
	ttl, err := l.client.TTL(ctx, keyPrefix+ip).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read rate limit TTL: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Reset clears the IP's counter.
func (l *Limiter) Reset(ctx context.Context, ip string) error {
	return l.client.Del(ctx, keyPrefix+ip).Err()
}
