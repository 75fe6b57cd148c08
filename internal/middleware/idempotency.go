package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// cachedResponse is what a replay needs: 207 must stay 207
type cachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// idempotencyKey scopes a correlation ID to the route and, when authenticated, to the caller
func idempotencyKey(c *fiber.Ctx, correlationID string) string {
	if userID, ok := c.Locals(UserIDKey).(string); ok && userID != "" {
		return fmt.Sprintf("idempotency:%s:%s:%s", userID, c.Path(), correlationID)
	}
	return fmt.Sprintf("idempotency:%s:%s", c.Path(), correlationID)
}

// IdempotencyMiddleware provides idempotency for POST/PATCH/PUT requests using X-Correlation-ID
// If the same correlation ID is received within the TTL, it returns the cached response
func IdempotencyMiddleware(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPatch && c.Method() != fiber.MethodPut {
			return c.Next()
		}

		correlationID := c.Get("X-Correlation-ID")
		if correlationID == "" {
			return c.Next()
		}

		key := idempotencyKey(c, correlationID)

		cached, err := redisClient.Get(c.UserContext(), key).Bytes()
		if err == nil && len(cached) > 0 {
			var resp cachedResponse
			if json.Unmarshal(cached, &resp) == nil {
				c.Set("X-Idempotent-Replay", "true")
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				return c.Status(resp.Status).Send(resp.Body)
			}
		} else if err != nil && err != redis.Nil {
			logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
		}

		if err := c.Next(); err != nil {
			return err
		}

		// Cache successful responses (2xx status codes)
		statusCode := c.Response().StatusCode()
		if statusCode < 200 || statusCode >= 300 {
			return nil
		}
		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		payload, err := json.Marshal(cachedResponse{Status: statusCode, Body: body})
		if err != nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := redisClient.Set(ctx, key, payload, ttl).Err(); err != nil {
			logger.Warn("idempotency store failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
}
