package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/pkg/store"
)

const newSessionInstruction = "The session does not exist or has expired. Create a new session with POST /api/session/v1."

// ErrorHandlerMiddleware turns errors returned by handlers into the response
// envelope. Internal error text is logged, never sent.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err, log)
	}
}

func WriteError(ctx *fiber.Ctx, err error, log logger.ILogger) error {
	var (
		verr  *ValidationError
		fiErr *fiber.Error
	)
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(DetailedErrorResponse(fiber.StatusNotFound, "Session not found", ErrorDetail{
			Type:        "session_not_found",
			Instruction: newSessionInstruction,
		}))

	case errors.Is(err, store.ErrSessionBusy):
		return ctx.Status(fiber.StatusConflict).JSON(DetailedErrorResponse(fiber.StatusConflict, "The session is busy with another message, try again shortly", ErrorDetail{
			Type: "session_busy",
		}))

	case errors.As(err, &verr):
		return ctx.Status(fiber.StatusBadRequest).JSON(DetailedErrorResponse(fiber.StatusBadRequest, "Validation failed", ErrorDetail{
			Type:   "validation_error",
			Fields: verr.Fields,
		}))

	case errors.As(err, &fiErr):
		return ctx.Status(fiErr.Code).JSON(ErrorResponse(fiErr.Code, fiErr.Message))
	}

	log.Error("HTTP", "Unhandled request error", map[string]interface{}{
		"method": ctx.Method(),
		"path":   ctx.Path(),
		"error":  err.Error(),
	})
	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
}
