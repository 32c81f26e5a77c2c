package middleware

import (
	"log/slog"

	"taskmanager/internal/cache"
	"taskmanager/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// ThrottleRecorder counts rejected requests.
type ThrottleRecorder interface {
	Throttled(route string)
}

// RateLimit rejects requests with 429 once the client IP has used up its
// budget in limiter. If the limiter itself fails the request is let through.
func RateLimit(limiter cache.Limiter, rec ThrottleRecorder, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, err := limiter.Allow(c.UserContext(), c.IP())
		if err != nil {
			log.Error("rate limiter unavailable", logger.Err(err))
			return c.Next()
		}
		if !allowed {
			route := c.Route().Path
			if rec != nil {
				rec.Throttled(route)
			}
			log.Warn("too many requests", slog.String("ip", c.IP()), slog.String("route", route))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later",
			})
		}
		return c.Next()
	}
}
