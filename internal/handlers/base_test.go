package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"coursesearch/internal/errs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbortWithErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err    error
		status int
	}{
		{errs.Wrap(errs.ErrNotFound, "review 1"), http.StatusNotFound},
		{errs.Wrap(errs.ErrInvalidReference, "course"), http.StatusUnprocessableEntity},
		{errs.Invalid("reason", "unknown"), http.StatusUnprocessableEntity},
		{errs.ErrDuplicateFlag, http.StatusConflict},
		{errs.ErrAlreadyRemoved, http.StatusConflict},
		{errs.Wrapf(errs.ErrInvalidState, "review %d", 3), http.StatusConflict},
		{errs.ErrForbidden, http.StatusForbidden},
		{errs.ErrQuotaExceeded, http.StatusTooManyRequests},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			abortWithError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.True(t, c.IsAborted())
		})
	}
}

func TestAbortWithErrorBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	abortWithError(c, errs.Invalid("rating", "must be between %d and %d", 1, 5))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rating", body["field"])
	assert.Equal(t, "rating: must be between 1 and 5", body["error"])

	// internal details never leak
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	abortWithError(c, errors.New("pq: password authentication failed"))
	assert.NotContains(t, w.Body.String(), "password")
}
