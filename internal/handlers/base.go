package handlers

import (
	"errors"
	"net/http"

	"coursesearch/internal/errs"
	"coursesearch/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// abortWithError maps service errors onto HTTP status codes.
func abortWithError(c *gin.Context, err error) {
	status, body := http.StatusInternalServerError, gin.H{"error": "internal error"}

	switch {
	case errors.Is(err, errs.ErrNotFound):
		status, body = http.StatusNotFound, gin.H{"error": "not found"}
	case errors.Is(err, errs.ErrInvalidReference):
		status, body = http.StatusUnprocessableEntity, gin.H{"error": "unknown course"}
	case errors.Is(err, errs.ErrValidation):
		status, body = http.StatusUnprocessableEntity, gin.H{"error": err.Error()}
		if f := errs.Field(err); f != "" {
			body["field"] = f
		}
	case errors.Is(err, errs.ErrDuplicateFlag):
		status, body = http.StatusConflict, gin.H{"error": "you already flagged this review"}
	case errors.Is(err, errs.ErrAlreadyRemoved):
		status, body = http.StatusConflict, gin.H{"error": "this review has been removed"}
	case errors.Is(err, errs.ErrInvalidState):
		status, body = http.StatusConflict, gin.H{"error": "this review was already resolved"}
	case errors.Is(err, errs.ErrForbidden):
		status, body = http.StatusForbidden, gin.H{"error": "forbidden"}
	case errors.Is(err, errs.ErrQuotaExceeded):
		status, body = http.StatusTooManyRequests, gin.H{"error": "daily flag limit reached"}
	}

	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	if id, ok := c.Get(middleware.RequestIDKey); ok {
		body["request_id"] = id
	}
	c.AbortWithStatusJSON(status, body)
}

// bindError reports a malformed request body as a validation failure.
func bindError(c *gin.Context, err error) {
	abortWithError(c, errs.Invalid("body", "%v", err))
}
