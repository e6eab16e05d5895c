package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Parallel()
	mr, rdb := newTestRedis(t)
	l := NewRateLimiter(rdb, 2, time.Minute, FailOpen)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "comment", "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "write %d should pass", i+1)
	}

	ok, err := l.Allow(ctx, "comment", "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	// other clients and resources have their own budget
	ok, err = l.Allow(ctx, "comment", "ip:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Allow(ctx, "upvote", "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, mr.Exists("rl:comment:ip:1.2.3.4"))
	assert.Greater(t, mr.TTL("rl:comment:ip:1.2.3.4"), time.Duration(0))

	mr.FastForward(2 * time.Minute)
	ok, err = l.Allow(ctx, "comment", "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok, "window expiry resets the budget")
}

func TestRateLimiter_RestoresMissingTTL(t *testing.T) {
	t.Parallel()
	mr, rdb := newTestRedis(t)
	l := NewRateLimiter(rdb, 5, time.Minute, FailClosed)

	// a counter left behind without an expiry
	require.NoError(t, mr.Set("rl:upvote:ip:9.9.9.9", "3"))

	ok, err := l.Allow(context.Background(), "upvote", "ip:9.9.9.9")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "4", mustGet(t, mr, "rl:upvote:ip:9.9.9.9"))
	assert.Equal(t, time.Minute, mr.TTL("rl:upvote:ip:9.9.9.9"))

	// later hits keep the original window
	mr.FastForward(20 * time.Second)
	_, err = l.Allow(context.Background(), "upvote", "ip:9.9.9.9")
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, mr.TTL("rl:upvote:ip:9.9.9.9"))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestRateLimiter_DisabledAndNil(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var nilLimiter *RateLimiter
	ok, err := nilLimiter.Allow(ctx, "post", "x")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewRateLimiter(nil, 0, time.Minute, FailClosed).Allow(ctx, "post", "x")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_StoreUnavailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ok, err := NewRateLimiter(nil, 5, time.Minute, FailOpen).Allow(ctx, "post", "x")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewRateLimiter(nil, 5, time.Minute, FailClosed).Allow(ctx, "post", "x")
	assert.ErrorIs(t, err, ErrNoRateLimitStore)
	assert.False(t, ok)
}

func TestRateLimiter_Middleware(t *testing.T) {
	t.Parallel()
	_, rdb := newTestRedis(t)

	app := fiber.New()
	app.Post("/create-post", NewRateLimiter(rdb, 1, time.Minute, FailOpen).Middleware("create-post"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Post("/closed", NewRateLimiter(nil, 1, time.Minute, FailClosed).Middleware("closed"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/create-post", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/create-post", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/closed", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
