package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/domain"
	"github.com/smarttransit/seat-reservation-backend/internal/middleware"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
)

// Error codes returned in the "error" field
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInvalidState = "INVALID_STATE"
	CodeRateLimited  = "RATE_LIMITED"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// RespondError maps err onto a status code and error body.
// Unexpected errors are logged and their message is masked.
func RespondError(c *gin.Context, logger *logrus.Logger, err error) {
	resp := ErrorResponse{RequestID: middleware.GetRequestID(c)}
	status := http.StatusInternalServerError

	var (
		validation domain.ValidationError
		notFound   domain.NotFoundError
		conflict   domain.ConflictError
		state      domain.StateError
		rateLimit  *services.RateLimitError
	)

	switch {
	case errors.As(err, &validation):
		status, resp.Error, resp.Message = http.StatusBadRequest, CodeValidation, validation.Error()
		if validation.Field != "" {
			resp.Details = map[string]string{"field": validation.Field}
		}
	case errors.As(err, &notFound):
		status, resp.Error, resp.Message = http.StatusNotFound, CodeNotFound, notFound.Error()
	case errors.As(err, &conflict):
		status, resp.Error, resp.Message = http.StatusConflict, CodeConflict, conflict.Error()
	case errors.As(err, &state):
		status, resp.Error, resp.Message = http.StatusConflict, CodeInvalidState, state.Error()
		if state.State != "" {
			resp.Details = map[string]string{"state": state.State}
		}
	case errors.As(err, &rateLimit):
		status, resp.Error, resp.Message = http.StatusTooManyRequests, CodeRateLimited, rateLimit.Message
		resp.Details = map[string]string{"limit": rateLimit.Type}
		if wait := time.Until(rateLimit.RetryAfter); wait > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
	case errors.Is(err, services.ErrInvalidRefreshToken):
		status, resp.Error, resp.Message = http.StatusUnauthorized, CodeUnauthorized, err.Error()
	default:
		resp.Error, resp.Message = CodeInternal, "An internal error occurred"
		logger.WithError(err).WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"request_id": resp.RequestID,
		}).Error("Request failed")
	}

	c.AbortWithStatusJSON(status, resp)
}

// respondBadRequest reports a malformed body or parameter
func respondBadRequest(c *gin.Context, field, message string) {
	resp := ErrorResponse{
		Error:     CodeValidation,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	}
	if field != "" {
		resp.Details = map[string]string{"field": field}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

// parseIDParam reads a positive integer path parameter
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, name, "invalid "+name)
		return 0, false
	}
	return id, true
}
