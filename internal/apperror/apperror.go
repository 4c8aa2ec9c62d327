// Package apperror defines errors that carry an HTTP status class.
package apperror

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/artifactlab/review-scoring/internal/artifact"
)

// Error is a domain error with a status code and a user-facing message.
type Error struct {
	Code    int
	Message string
	Err     error
}

// Error returns the message, followed by the cause when there is one.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error.
func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func BadRequest(message string, err error) *Error {
	return New(http.StatusBadRequest, message, err)
}

func Unauthorized(message string, err error) *Error {
	return New(http.StatusUnauthorized, message, err)
}

func Forbidden(message string, err error) *Error {
	return New(http.StatusForbidden, message, err)
}

func NotFound(message string, err error) *Error {
	return New(http.StatusNotFound, message, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// From classifies any error. Unknown errors become 500.
func From(err error) *Error {
	var appErr *Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, artifact.ErrInvalidKind):
		return BadRequest("Invalid artifact type", err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound("Resource not found", err)
	default:
		return Internal(err)
	}
}

// Status returns the status code From would assign to err.
func Status(err error) int {
	return From(err).Code
}
