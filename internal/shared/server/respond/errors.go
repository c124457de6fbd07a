package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"internship-matcher/internal/shared/apperr"
	"internship-matcher/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorDetails carries the offending field and entity id of a domain error.
type ErrorDetails struct {
	Field  string            `json:"field,omitempty"`
	ID     string            `json:"id,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// FromError maps a service error onto the HTTP error envelope. Errors that are
// not *apperr.Error become 500 without leaking their text.
func FromError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		telemetry.Error("http.unhandled_error", map[string]any{
			"error":      err.Error(),
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("requestId"),
		})
		Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		return
	}
	var details interface{}
	if appErr.Field != "" || appErr.ID != "" || len(appErr.Fields) > 0 {
		details = ErrorDetails{Field: appErr.Field, ID: appErr.ID, Fields: appErr.Fields}
	}
	Error(c, StatusFor(appErr.Kind), string(appErr.Kind), appErr.Message, details)
}

// StatusFor returns the HTTP status used for an error kind.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindDuplicateApplication, apperr.KindIllegalTransition:
		return http.StatusConflict
	case apperr.KindInvalidOpportunity:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
