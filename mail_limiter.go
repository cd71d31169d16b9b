package authcore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// mailLimiter throttles outbound auth emails with a fixed window counter
// per address. It guards the two endpoints an attacker can use to flood a
// mailbox: forgot-password and resend-verification.
type mailLimiter struct {
	redis    redis.UniversalClient
	prefix   string
	window   time.Duration
	maxSends int
}

func newMailLimiter(redisClient redis.UniversalClient, cfg ThrottleConfig) *mailLimiter {
	return &mailLimiter{
		redis:    redisClient,
		prefix:   cfg.RedisPrefix,
		window:   cfg.Window,
		maxSends: cfg.MaxSends,
	}
}

// allow counts one send attempt against the address, failed lookups
// included so the throttle itself leaks nothing.
func (l *mailLimiter) allow(ctx context.Context, kind, email string) error {
	key := l.prefix + ":" + kind + ":" + strings.ToLower(email)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("mail throttle: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("mail throttle: %w", err)
		}
	}

	if count > int64(l.maxSends) {
		return ErrRateLimited
	}
	return nil
}
