package apperror

import "net/http"

// AppError carries the HTTP status a domain error should be reported with.
type AppError struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying cause, never exposed to clients
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NotFound(message string) *AppError     { return New(http.StatusNotFound, message) }
func BadRequest(message string) *AppError   { return New(http.StatusBadRequest, message) }
func Conflict(message string) *AppError     { return New(http.StatusConflict, message) }
func Forbidden(message string) *AppError    { return New(http.StatusForbidden, message) }
func Unauthorized(message string) *AppError { return New(http.StatusUnauthorized, message) }
func TooManyRequests(message string) *AppError {
	return New(http.StatusTooManyRequests, message)
}
