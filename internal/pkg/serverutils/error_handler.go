package serverutils

import (
	"errors"

	"ai-assistant-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// genericFailure is what callers see for internal failures. Detail
// stays in the logs, never in the response body.
const genericFailure = "The service could not complete your request. Please try again."

// ErrorHandlerMiddleware converts taxonomy errors into stable,
// non-leaking HTTP responses.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		switch {
		case errors.Is(err, apperror.ErrValidation):
			// Validation messages are written for the caller; pass them.
			return ctx.Status(fiber.StatusBadRequest).JSON(Response{Message: err.Error()})

		case errors.Is(err, apperror.ErrNotInitialized):
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(Response{
				Message: "The knowledge base is still loading. Please retry shortly.",
			})

		case errors.Is(err, apperror.ErrDependencyTimeout),
			errors.Is(err, apperror.ErrDependencyUnavailable),
			errors.Is(err, apperror.ErrCorruptState):
			return ctx.Status(fiber.StatusBadGateway).JSON(Response{Message: genericFailure})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(Response{Message: fiberErr.Message})
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(Response{Message: genericFailure})
	}
}
