package api

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	domain "github.com/Aftab-Fury/Task-Manager/domain/task"
	"github.com/Aftab-Fury/Task-Manager/domain/user"
	"github.com/Aftab-Fury/Task-Manager/modules/auth"
	"github.com/Aftab-Fury/Task-Manager/modules/ratelimit"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

const (
	// UserContextKey is the key used to store user claims in the Fiber context.
	UserContextKey = "user"
)

// AuthMiddleware validates the bearer token and stores its claims under
// UserContextKey.
func AuthMiddleware(authPort auth.AuthPort) fiber.Handler {
	unauthenticated := func(c *fiber.Ctx, message string) error {
		return sendError(c, fiber.StatusUnauthorized, string(domain.CodeUnauthenticated), message, nil)
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthenticated(c, domain.ErrUnauthenticated.Message)
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthenticated(c, "Invalid authorization header format. Use: Bearer <token>")
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return unauthenticated(c, "Token is required")
		}

		claims, err := authPort.ValidateToken(c.UserContext(), token)
		if err != nil {
			return unauthenticated(c, "Invalid or expired token")
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

// actorID returns the authenticated user id, or zero.
func actorID(c *fiber.Ctx) uint {
	claims, ok := c.Locals(UserContextKey).(*user.Claims)
	if !ok || claims == nil {
		return 0
	}
	return claims.UserID
}

// clientKey identifies the caller for rate limiting: the user once
// authenticated, the client IP before.
func clientKey(c *fiber.Ctx) string {
	if id := actorID(c); id != 0 {
		return "user:" + strconv.FormatUint(uint64(id), 10)
	}
	return "ip:" + c.IP()
}

// RateLimitConfig configures request throttling.
type RateLimitConfig struct {
	// Limiter is the shared limiter. When nil, an in-process sliding window
	// of Max requests per Window is used.
	Limiter ratelimit.Limiter
	Max     int
	Window  time.Duration
}

// RateLimitMiddleware returns the throttling handler for cfg. A zero Max
// without a Limiter disables throttling.
func RateLimitMiddleware(cfg RateLimitConfig, logger *slog.Logger) fiber.Handler {
	if cfg.Limiter != nil {
		return ratelimit.NewMiddleware(cfg.Limiter, logger).Handler(clientKey)
	}
	if cfg.Max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:               cfg.Max,
		Expiration:        window,
		KeyGenerator:      clientKey,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			return sendError(c, fiber.StatusTooManyRequests, ratelimit.CodeRateLimited,
				"Rate limit exceeded. Please retry later.", nil)
		},
	})
}
