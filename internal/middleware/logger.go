package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/briefwire/curator/internal/logger"
)

// RequestLogger logs every request through the global zerolog logger.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		event := logger.Get().Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Str("ip", c.IP()).
			Dur("latency", time.Since(start))
		if err != nil {
			event = event.Err(err)
		}
		event.Msg("request")

		return err
	}
}

// ErrorHandler is the Fiber app-level error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	logger.Get().Error().
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", code).
		Msg("Request failed")

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
