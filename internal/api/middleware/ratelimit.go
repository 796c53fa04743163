package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// WidgetRateLimit limits requests per widget instance and client IP
// (max per minute). A non-positive max disables the limit.
func WidgetRateLimit(max int) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id := WidgetID(c); id != "" {
				return fmt.Sprintf("widget:%s:%s", id, c.IP())
			}
			return fmt.Sprintf("ip:%s", c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please slow down your requests.",
			})
		},
		SkipFailedRequests: true,
	})
}

// WidgetID extracts the instance id from a /widgets/:id path. Route params
// are not available to middleware mounted with Use.
func WidgetID(c *fiber.Ctx) string {
	parts := strings.Split(strings.Trim(c.Path(), "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "widgets" {
			return parts[i+1]
		}
	}
	return ""
}
