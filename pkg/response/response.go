package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumicast/core/internal/apperror"
)

// Response represents a standard API response.
type Response struct {
	Success     bool           `json:"success"`
	Data        interface{}    `json:"data,omitempty"`
	Error       *ErrorInfo     `json:"error,omitempty"`
	ErrorParams map[string]any `json:"error_params,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success sends a successful response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// Created sends a 201 created response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// Error sends an error response.
func Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

// NoContent sends a 204 response with no body, used where the spec's
// success contract is "200 resource | 204" and the mutation found nothing
// to act on (not-found and not-owned both collapse to this, not a 404).
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// InternalError sends a 500 error response.
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

// WriteError renders err at the status its kind maps to. A
// *apperror.Error renders as a single error object with its code/message/
// params; an apperror.ValidationErrors renders as a bare JSON array per the
// spec's validation contract; anything else falls back to a generic 500.
func WriteError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status(), Response{
			Success: false,
			Error: &ErrorInfo{
				Code:    appErr.Code,
				Message: appErr.Message,
			},
			ErrorParams: appErr.Params,
		})
		return
	}

	var validationErr apperror.ValidationErrors
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusExpectationFailed, validationErr)
		return
	}

	InternalError(c, err.Error())
}
