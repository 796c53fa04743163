package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// RequestLogConfig holds request logging configuration
type RequestLogConfig struct {
	Logger    *logrus.Entry
	SkipPaths []string // Paths to skip, e.g. health probes
}

// RequestLogger logs one structured line per request
func RequestLogger(config RequestLogConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, skipPath := range config.SkipPaths {
			if strings.HasPrefix(path, skipPath) {
				return c.Next()
			}
		}

		startTime := time.Now()
		err := c.Next()
		duration := time.Since(startTime)

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		entry := config.Logger.WithFields(logrus.Fields{
			"method":      c.Method(),
			"path":        path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"ip":          c.IP(),
		})
		if id := WidgetID(c); id != "" {
			entry = entry.WithField("instance_id", id)
		}

		switch {
		case err != nil || status >= fiber.StatusInternalServerError:
			entry.WithError(err).Error("Request failed")
		case status >= fiber.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Debug("Request handled")
		}
		return err
	}
}
