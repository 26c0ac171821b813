package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
)

// AppError represents an application-specific error
type AppError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Cause     error  `json:"-"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(code, message string, cause error) *AppError {
	return newAppError(code, message, cause, 2)
}

// newAppError records the file and line skip frames above itself
func newAppError(code, message string, cause error, skip int) *AppError {
	_, file, line, _ := runtime.Caller(skip)
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
		File:    file,
		Line:    line,
	}
}

// WithOperation adds operation context to the error
func (e *AppError) WithOperation(operation string) *AppError {
	e.Operation = operation
	return e
}

// WithDetails adds additional details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// Common error codes
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeValidationError  = "VALIDATION_ERROR"
	ErrCodeConflict         = "CONFLICT"
)

// Common error constructors
func InvalidInput(message string, cause error) *AppError {
	return newAppError(ErrCodeInvalidInput, message, cause, 2)
}

func Unauthorized(message string, cause error) *AppError {
	return newAppError(ErrCodeUnauthorized, message, cause, 2)
}

func InternalError(message string, cause error) *AppError {
	return newAppError(ErrCodeInternalError, message, cause, 2)
}

// StoreUnavailable marks a failed read or write against the backing store
func StoreUnavailable(message string, cause error) *AppError {
	return newAppError(ErrCodeStoreUnavailable, message, cause, 2)
}

// Code returns the AppError code in err's chain, or ErrCodeInternalError
func Code(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// Is reports whether err carries the given AppError code
func Is(err error, code string) bool {
	return err != nil && Code(err) == code
}

// HTTPStatus maps an error to the status code a handler should answer with
func HTTPStatus(err error) int {
	switch Code(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput, ErrCodeValidationError:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
