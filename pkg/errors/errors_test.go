package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("load catalog: %w", Clone(ErrInvalidCatalog, "teacher missing"))
	got := FromError(wrapped)
	assert.Equal(t, ErrInvalidCatalog.Code, got.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, got.Status)
	assert.Equal(t, "teacher missing", got.Message)

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.EqualError(t, plain, "internal server error: boom")
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("solve: %w", Wrap(context.Canceled, ErrUnavailable.Code, ErrUnavailable.Status, "cancelled"))
	assert.True(t, Is(err, ErrUnavailable))
	assert.False(t, Is(err, ErrInternal))
	assert.False(t, Is(errors.New("x"), ErrInternal))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCloneKeepsOriginal(t *testing.T) {
	clone := Clone(ErrValidation, "bad seed")
	assert.Equal(t, "bad seed", clone.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.Nil(t, Clone(nil, "x"))
}
