// Package errors defines the service error taxonomy shared by every procedure.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an error class on the wire.
type ErrorCode string

const (
	CodeBadRequest      ErrorCode = "BAD_REQUEST"
	CodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	CodeForbidden       ErrorCode = "FORBIDDEN"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	CodeInternal        ErrorCode = "INTERNAL_SERVER_ERROR"
)

// ServiceError is an error with a wire code, an HTTP status and a message that
// is safe to show to end users. Err holds the internal cause, if any.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error with an extra detail attached.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	out := *e
	out.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details[key] = value
	return &out
}

// New builds a ServiceError.
func New(code ErrorCode, status int, message string, cause error) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Err:        cause,
	}
}

// Validation reports schema rejection. fieldErrors maps a JSON field name to
// the user-facing messages for that field.
func Validation(message string, fieldErrors map[string][]string) *ServiceError {
	if message == "" {
		message = "Invalid input"
	}
	err := New(CodeBadRequest, http.StatusBadRequest, message, nil)
	if len(fieldErrors) > 0 {
		err.Details = map[string]interface{}{"fieldErrors": fieldErrors}
	}
	return err
}

// BadRequest reports malformed input that is not tied to a field.
func BadRequest(message string) *ServiceError {
	return New(CodeBadRequest, http.StatusBadRequest, message, nil)
}

// Unauthorized reports a missing or unusable session.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "Not authenticated"
	}
	return New(CodeUnauthorized, http.StatusUnauthorized, message, nil)
}

// InvalidToken reports a session token that failed verification.
func InvalidToken(cause error) *ServiceError {
	return New(CodeUnauthorized, http.StatusUnauthorized, "Invalid session token", cause)
}

// Forbidden reports an authenticated caller acting on content it does not own.
func Forbidden(message string) *ServiceError {
	if message == "" {
		message = "Forbidden"
	}
	return New(CodeForbidden, http.StatusForbidden, message, nil)
}

// NotFound reports a missing record.
func NotFound(resource, id string) *ServiceError {
	msg := fmt.Sprintf("%s not found", resource)
	if id != "" {
		msg = fmt.Sprintf("%s with id %s not found", resource, id)
	}
	return New(CodeNotFound, http.StatusNotFound, msg, nil).WithDetails("resource", resource)
}

// RateLimitExceeded reports a rejected request from the sliding window limiter.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return New(CodeTooManyRequests, http.StatusTooManyRequests, "Too many requests", nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Internal wraps an unexpected failure. The cause is never sent to clients.
func Internal(message string, cause error) *ServiceError {
	if message == "" {
		message = "Internal server error"
	}
	return New(CodeInternal, http.StatusInternalServerError, message, cause)
}

// GetServiceError extracts a ServiceError from an error chain.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if stderrors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

// Is reports whether err carries a ServiceError with the given code.
func Is(err error, code ErrorCode) bool {
	serviceErr := GetServiceError(err)
	return serviceErr != nil && serviceErr.Code == code
}

// As is errors.As, re-exported so callers importing this package need not
// also import the standard library package under another name.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
