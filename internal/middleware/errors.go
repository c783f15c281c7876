package middleware

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/logger"
)

// ErrorHandler renders every error as {"success": false, "error": msg}.
// Internal causes are logged and never shown to the client.
func ErrorHandler(base *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		msg := "internal server error"

		var fe *fiber.Error
		var ae *apperr.Error
		switch {
		case errors.As(err, &ae):
			status = ae.Kind.Status()
			msg = ae.Public()
			if ae.Kind == apperr.KindRateLimited && ae.RetryAfter > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ae.RetryAfter.Seconds())))
			}
		case errors.As(err, &fe):
			status = fe.Code
			msg = fe.Message
		}

		if status >= fiber.StatusInternalServerError {
			logger.FromCtx(c, base).Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   msg,
		})
	}
}
