package middleware

import (
	"io"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdempotentApp(t *testing.T, status int) (*fiber.App, *int32, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var calls int32
	app := fiber.New()
	app.Use(IdempotencyMiddleware(client, time.Minute, nil))
	app.Post("/v1/images", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(&calls, 1)
		return c.Status(status).JSON(fiber.Map{"call": n})
	})
	app.Get("/v1/images", func(c *fiber.Ctx) error {
		atomic.AddInt32(&calls, 1)
		return c.JSON(fiber.Map{"ok": true})
	})
	return app, &calls, mr
}

func doPost(t *testing.T, app *fiber.App, correlationID string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/v1/images", nil)
	if correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body), resp.Header.Get("X-Idempotent-Replay")
}

func TestIdempotencyMiddleware_ReplaysCachedResponse(t *testing.T) {
	app, calls, mr := newIdempotentApp(t, fiber.StatusMultiStatus)

	status, body, replay := doPost(t, app, "abc-123")
	assert.Equal(t, fiber.StatusMultiStatus, status)
	assert.JSONEq(t, `{"call":1}`, body)
	assert.Empty(t, replay)

	status, body, replay = doPost(t, app, "abc-123")
	assert.Equal(t, fiber.StatusMultiStatus, status)
	assert.JSONEq(t, `{"call":1}`, body)
	assert.Equal(t, "true", replay)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	assert.True(t, mr.Exists("idempotency:/v1/images:abc-123"))
	assert.Greater(t, mr.TTL("idempotency:/v1/images:abc-123"), time.Duration(0))
}

func TestIdempotencyMiddleware_NoCorrelationID(t *testing.T) {
	app, calls, _ := newIdempotentApp(t, fiber.StatusOK)

	doPost(t, app, "")
	doPost(t, app, "")
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestIdempotencyMiddleware_ErrorsAreNotCached(t *testing.T) {
	app, calls, mr := newIdempotentApp(t, fiber.StatusUnprocessableEntity)

	doPost(t, app, "same")
	status, _, replay := doPost(t, app, "same")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Empty(t, replay)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	assert.False(t, mr.Exists("idempotency:/v1/images:same"))
}

func TestIdempotencyMiddleware_IgnoresGet(t *testing.T) {
	app, calls, _ := newIdempotentApp(t, fiber.StatusOK)

	for range 2 {
		req := httptest.NewRequest(fiber.MethodGet, "/v1/images", nil)
		req.Header.Set("X-Correlation-ID", "get-1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestIdempotencyMiddleware_RedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	var calls int32
	app := fiber.New()
	app.Use(IdempotencyMiddleware(client, time.Minute, nil))
	app.Post("/v1/images", func(c *fiber.Ctx) error {
		atomic.AddInt32(&calls, 1)
		return c.JSON(fiber.Map{"ok": true})
	})

	status, _, _ := doPost(t, app, "x")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_ScopedToUser(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var calls int32
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(UserIDKey, c.Get("X-User"))
		return c.Next()
	})
	app.Use(IdempotencyMiddleware(client, time.Minute, nil))
	app.Post("/v1/images", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(&calls, 1)
		return c.JSON(fiber.Map{"call": n, "user": c.Locals(UserIDKey)})
	})

	post := func(user string) (string, string) {
		req := httptest.NewRequest(fiber.MethodPost, "/v1/images", nil)
		req.Header.Set("X-Correlation-ID", "paste-1")
		req.Header.Set("X-User", user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body), resp.Header.Get("X-Idempotent-Replay")
	}

	body, replay := post("alice")
	assert.JSONEq(t, `{"call":1,"user":"alice"}`, body)
	assert.Empty(t, replay)

	body, replay = post("bob")
	assert.JSONEq(t, `{"call":2,"user":"bob"}`, body)
	assert.Empty(t, replay)

	body, replay = post("alice")
	assert.JSONEq(t, `{"call":1,"user":"alice"}`, body)
	assert.Equal(t, "true", replay)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.True(t, mr.Exists("idempotency:alice:/v1/images:paste-1"))
	assert.True(t, mr.Exists("idempotency:bob:/v1/images:paste-1"))
}
