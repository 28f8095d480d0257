package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/example/vitrina/internal/config"
	"github.com/example/vitrina/internal/kv"
)

// RateLimit counts requests per client IP in redis and rejects over-limit
// callers with 429. Redis failures fail open: limiting is advisory, not a
// correctness requirement.
func RateLimit(rdb *redis.Client, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		ip := c.Get("X-Forwarded-For")
		if ip == "" {
			ip = c.IP()
		}

		key := kv.RateLimitKey(ip)
		n, err := rdb.Incr(c.Context(), key).Result()
		if err != nil {
			return c.Next()
		}
		if n == 1 {
			rdb.Expire(c.Context(), key, cfg.RateLimitTTL)
		}
		if n > int64(cfg.RateLimitMax) {
			return fiber.NewError(fiber.StatusTooManyRequests, "rate_limited")
		}

		return c.Next()
	}
}
