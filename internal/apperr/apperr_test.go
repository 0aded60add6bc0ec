package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_WrappedError(t *testing.T) {
	err := fmt.Errorf("service: verify: %w", DuplicateAction("already verified"))

	assert.Equal(t, KindDuplicateAction, KindOf(err))
	assert.True(t, errors.Is(err, ErrDuplicateAction))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, "already verified", MessageOf(err))
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	err := errors.New("connection refused")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", MessageOf(err))
}

func TestInternal_HidesMessage(t *testing.T) {
	cause := errors.New("pool closed")
	err := Internal(cause, "could not load incident")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error", MessageOf(err))
}

func TestForbiddenIsNotNotFound(t *testing.T) {
	err := Forbidden("not your contact")

	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "forbidden", KindOf(err).String())
}
