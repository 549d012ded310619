package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stockpilot/inventory-api/utils/ratelimit"
	"github.com/stockpilot/inventory-api/utils/response"
)

// RateLimitConfig tunes the per-client API rate limit
type RateLimitConfig struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// RateLimit applies sliding-window rate limiting keyed by client IP. Every
// response carries X-RateLimit headers; a rejected request gets a 429 with
// a Retry-After hint derived from the oldest request in the window.
func RateLimit(limiter *ratelimit.Limiter, config RateLimitConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := c.IP()

		if penalized, retryAfter := limiter.CheckBurst(c.Context(), identifier); penalized {
			return response.TooManyRequests(c, "Request burst detected. Please slow down.",
				int64(retryAfter.Seconds())+1)
		}

		result := limiter.CheckAndIncrement(c.Context(), config.Scope, identifier,
			config.Limit, config.Window, true)

		c.Set("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int64(time.Until(result.ResetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			return response.TooManyRequests(c, "", retryAfter)
		}

		return c.Next()
	}
}
