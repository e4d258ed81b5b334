package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrUnauthorized, "session expired")

	assert.Equal(t, "session expired", cloned.Message)
	assert.True(t, errors.Is(cloned, ErrUnauthorized))
	assert.False(t, errors.Is(cloned, ErrValidation))
	assert.Equal(t, "unauthorized", ErrUnauthorized.Message)
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	wrapped := Wrap(cause, ErrBackendUnavailable.Code, ErrBackendUnavailable.Status, "fetch activities")

	assert.True(t, errors.Is(wrapped, cause))
	assert.True(t, errors.Is(wrapped, ErrBackendUnavailable))
	assert.Equal(t, "fetch activities: dial tcp: refused", wrapped.Error())
}

func TestFromErrorNormalises(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)

	typed := FromError(fmt.Errorf("ctx: %w", ErrNotFound))
	assert.Equal(t, ErrNotFound.Code, typed.Code)
}
