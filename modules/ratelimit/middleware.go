package ratelimit

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// CodeRateLimited is the error code sent with 429 responses.
const CodeRateLimited = "rate_limited"

// KeyFunc extracts the rate limit key of a request. An empty key falls back
// to the client IP.
type KeyFunc func(c *fiber.Ctx) string

// Middleware applies a Limiter to Fiber requests.
type Middleware struct {
	limiter Limiter
	logger  *slog.Logger
}

// NewMiddleware creates rate limiting middleware around limiter.
func NewMiddleware(limiter Limiter, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{limiter: limiter, logger: logger}
}

// Handler returns a handler limiting requests by the key from keyFn. Limiter
// failures let the request through.
func (m *Middleware) Handler(keyFn KeyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := ""
		if keyFn != nil {
			key = keyFn(c)
		}
		if key == "" {
			key = "ip:" + c.IP()
		}

		result, err := m.limiter.Allow(c.UserContext(), key)
		if err != nil {
			m.logger.Warn("rate limiter unavailable", "key", key, "error", err)
			return c.Next()
		}

		setRateLimitHeaders(c, result, m.limiter.Limit())
		if !result.Allowed {
			return sendRateLimitExceeded(c, result)
		}
		return c.Next()
	}
}

func setRateLimitHeaders(c *fiber.Ctx, result *Result, limit int) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func sendRateLimitExceeded(c *fiber.Ctx, result *Result) error {
	retryAfter := int(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": fiber.Map{
			"message": fmt.Sprintf("Rate limit exceeded. Please retry after %d seconds.", retryAfter),
			"code":    CodeRateLimited,
			"details": fiber.Map{"retry_after": retryAfter},
		},
	})
}
