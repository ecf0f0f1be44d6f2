package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsChain(t *testing.T) {
	err := Wrapf(Wrap(ErrNotFound, "load review"), "resolve %d", 7)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "resolve 7: load review: not found", err.Error())
	assert.Nil(t, Wrap(nil, "noop"))
	assert.Nil(t, Wrapf(nil, "noop %d", 1))
}

func TestValidationError(t *testing.T) {
	err := Wrap(Invalid("rating", "must be between %d and %d", 1, 5), "submit review")

	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "rating", Field(err))
	assert.Equal(t, "", Field(ErrInvalidState))
}
