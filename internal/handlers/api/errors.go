package api

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"sharebox/internal/sharing"
)

// statusFor maps a lifecycle error kind to an HTTP status. Ownership
// mismatches are reported as 401 to match what existing clients expect.
func statusFor(kind sharing.Kind) int {
	switch kind {
	case sharing.KindValidation, sharing.KindLimitExceeded:
		return fiber.StatusBadRequest
	case sharing.KindNotFound:
		return fiber.StatusNotFound
	case sharing.KindGone:
		return fiber.StatusGone
	case sharing.KindUnauthorized, sharing.KindForbidden:
		return fiber.StatusUnauthorized
	case sharing.KindRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as a JSON error. Only the client-safe message of a
// lifecycle error is exposed; anything else becomes a generic 500.
func writeError(c fiber.Ctx, log *zap.Logger, err error) error {
	status := statusFor(sharing.KindOf(err))

	message := sharing.ErrUpstream.Message
	var e *sharing.Error
	if errors.As(err, &e) && status < fiber.StatusInternalServerError {
		message = e.Message
	}

	if status >= fiber.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return jsonError(c, status, message)
}
