package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsUnwrapToCause(t *testing.T) {
	cause := errors.New("connection refused")

	var retrievalErr *RetrievalError
	wrapped := fmt.Errorf("retrieve: %w", NewRetrievalError("recency", cause))
	assert.True(t, errors.As(wrapped, &retrievalErr))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "recency", retrievalErr.Op)

	assert.ErrorIs(t, NewGenerationError("answer", cause), cause)
	assert.ErrorIs(t, &IndexingError{DocumentIds: []string{"msg_1"}, Err: cause}, cause)
	assert.ErrorIs(t, &PersonaParseError{UserId: 1, Err: cause}, cause)
}

func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "validation failed on sender: display name is required",
		NewValidationError("sender", "display name is required").Error())
	assert.Equal(t, "validation failed: bad", NewValidationError("", "bad").Error())
}
