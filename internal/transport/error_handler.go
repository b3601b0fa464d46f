package transport

import (
	"github.com/gofiber/fiber/v2"
	"github.com/talentgrid/interview-engine/internal/observability"
	"go.uber.org/zap"
)

// ErrorHandler is the fiber-level fallback: handlers map domain errors to
// fiber errors themselves, so anything else arriving here is a 500.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		requestLogger := observability.WithContextLogger(logger, c.UserContext())
		requestLogger.Error("request error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
