package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	CorrelationIDHeader    = "X-Correlation-ID"
	IdempotentReplayHeader = "X-Idempotent-Replay"
)

type storedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// Idempotency replays the stored response of a mutating request that repeats an
// X-Correlation-ID seen within ttl. The key is scoped to method and path so one
// correlation id cannot replay another endpoint's answer.
func Idempotency(redisClient *redis.Client, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPatch, fiber.MethodPut, fiber.MethodDelete:
		default:
			return c.Next()
		}

		correlationID := c.Get(CorrelationIDHeader)
		if correlationID == "" {
			return c.Next()
		}

		key := fmt.Sprintf("idempotency:%s:%s:%s", c.Method(), c.Path(), correlationID)
		ctx := c.UserContext()

		if cached, err := redisClient.Get(ctx, key).Bytes(); err == nil {
			var stored storedResponse
			if err := json.Unmarshal(cached, &stored); err == nil {
				c.Set(IdempotentReplayHeader, "true")
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				return c.Status(stored.Status).Send(stored.Body)
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status < 200 || status >= 300 {
			return nil
		}

		// the response buffer is reused by fasthttp after the handler returns
		body := append([]byte(nil), c.Response().Body()...)
		data, err := json.Marshal(storedResponse{Status: status, Body: body})
		if err != nil {
			return nil
		}

		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := redisClient.Set(bgCtx, key, data, ttl).Err(); err != nil {
				log.Printf("Warning: failed to store idempotent response: %v", err)
			}
		}()
		return nil
	}
}
