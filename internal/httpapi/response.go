package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matheus3301/rolechat/internal/chat"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorInfo{Code: code, Message: msg}})
}

func badRequest(c *gin.Context, msg string) {
	abort(c, http.StatusBadRequest, "BAD_REQUEST", msg)
}

func unauthenticated(c *gin.Context, msg string) {
	abort(c, http.StatusUnauthorized, "UNAUTHENTICATED", msg)
}

// fail maps a service error onto its HTTP status.
func fail(c *gin.Context, err error) {
	var verr *chat.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: ErrorInfo{
			Code: "VALIDATION_FAILED", Message: verr.Error(), Field: verr.Field,
		}})
	case errors.Is(err, chat.ErrPermissionDenied):
		abort(c, http.StatusForbidden, "PERMISSION_DENIED", err.Error())
	case errors.Is(err, chat.ErrUnknownUser):
		abort(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, chat.ErrDuplicateEmail):
		abort(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, chat.ErrRateLimited):
		abort(c, http.StatusTooManyRequests, "RATE_LIMITED", err.Error())
	default:
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}
