package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"footballsocial/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// ErrNoRateLimitStore is returned when the limiter has no Redis client.
var ErrNoRateLimitStore = errors.New("redis client is nil")

// RateLimiter enforces a fixed-window write budget per client in Redis.
// A nil *RateLimiter allows everything.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	policy FailPolicy
}

// NewRateLimiter returns a limiter allowing limit writes per window. A limit of
// zero disables limiting.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{rdb: rdb, limit: limit, window: window, policy: policy}
}

// Allow reports whether the client id may perform another write on resource.
func (l *RateLimiter) Allow(ctx context.Context, resource, id string) (bool, error) {
	if l == nil || l.limit <= 0 {
		return true, nil
	}

	allowed, err := l.check(ctx, resource, id)
	if err != nil {
		if l.policy == FailClosed {
			return false, err
		}
		Logger.WarnContext(ctx, "rate limit store unavailable, allowing write",
			slog.String("resource", resource),
			slog.String("error", err.Error()),
		)
		return true, nil
	}
	if !allowed {
		RateLimited.WithLabelValues(resource).Inc()
	}
	return allowed, nil
}

func (l *RateLimiter) check(ctx context.Context, resource, id string) (bool, error) {
	if l.rdb == nil {
		return false, ErrNoRateLimitStore
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	// EXPIRE NX on every hit so a key never outlives its window, even when the
	// first EXPIRE was lost.
	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= int64(l.limit), nil
}

// Middleware returns a Fiber handler enforcing the limiter on resource, keyed by remote IP.
func (l *RateLimiter) Middleware(resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, err := l.Allow(c.UserContext(), resource, "ip:"+c.IP())
		if err != nil {
			Logger.WarnContext(c.UserContext(), "rate limit fail-closed",
				slog.String("path", c.Path()),
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "rate limit unavailable",
			})
		}
		if !allowed {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewRateLimitedError("rate limit exceeded"))
		}
		return c.Next()
	}
}
