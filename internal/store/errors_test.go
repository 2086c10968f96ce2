package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartbundles/bundles-server/internal/store"
)

func TestError_Error(t *testing.T) {
	err := &store.Error{Code: http.StatusNotFound, Message: "not found"}
	assert.Equal(t, "not found", err.Error())

	wrapped := err.WithCause(errors.New("no rows"))
	assert.Equal(t, "not found: no rows", wrapped.Error())
	assert.Equal(t, http.StatusNotFound, wrapped.HTTPCode())
}

func TestError_IsMatchesDerivedErrors(t *testing.T) {
	derived := store.ErrNotFound.WithMessage("bundle bnd-1 not found")

	assert.ErrorIs(t, derived, store.ErrNotFound)
	assert.ErrorIs(t, fmt.Errorf("get: %w", derived), store.ErrNotFound)
	assert.NotErrorIs(t, derived, store.ErrAlreadyExists)
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := store.ErrInvalidInput.WithCause(cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}
