package serverutils

import (
	"errors"

	"avatar-engine-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error returned from a handler to its HTTP status.
func StatusFor(err error) int {
	var (
		validationErr *apperror.ValidationError
		retrievalErr  *apperror.RetrievalError
		generationErr *apperror.GenerationError
		indexingErr   *apperror.IndexingError
		fiberErr      *fiber.Error
	)

	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest
	case errors.As(err, &retrievalErr), errors.As(err, &generationErr), errors.As(err, &indexingErr):
		return fiber.StatusBadGateway
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware renders errors returned further down the chain
// using the standard response envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}
