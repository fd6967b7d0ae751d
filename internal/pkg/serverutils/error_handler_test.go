package serverutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"avatar-engine-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandlerMiddleware(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", apperror.NewValidationError("Id", "required"), fiber.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("respond: %w", apperror.NewValidationError("", "bad")), fiber.StatusBadRequest},
		{"retrieval", apperror.NewRetrievalError("recency", errors.New("down")), fiber.StatusBadGateway},
		{"generation", apperror.NewGenerationError("answer", errors.New("empty")), fiber.StatusBadGateway},
		{"indexing", &apperror.IndexingError{DocumentIds: []string{"msg_1"}, Err: errors.New("db")}, fiber.StatusBadGateway},
		{"fiber", fiber.ErrNotFound, fiber.StatusNotFound},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware())
			app.Get("/", func(ctx *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			var body BaseResponse[any]
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.err.Error(), body.Message)
		})
	}
}

func TestErrorHandlerMiddlewarePassesSuccess(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(SuccessResponse("ok", map[string]int{"n": 1}))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body BaseResponse[map[string]int]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Data["n"])
}
