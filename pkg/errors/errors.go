package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrMissingField       = New("MISSING_FIELD", http.StatusBadRequest, "required field missing")
	ErrInvalidDateFormat  = New("INVALID_DATE_FORMAT", http.StatusBadRequest, "invalid date format, expected DD-MM-YYYY or YYYY-MM-DD")
	ErrInvalidDateValue   = New("INVALID_DATE_VALUE", http.StatusBadRequest, "invalid date value")
	ErrInvalidRange       = New("INVALID_RANGE", http.StatusBadRequest, "end date must not be before start date")
	ErrOutOfRange         = New("OUT_OF_RANGE", http.StatusBadRequest, "value out of allowed range")
	ErrDuplicateRecord    = New("DUPLICATE_RECORD", http.StatusConflict, "record already exists")
	ErrNoStudentsInClass  = New("NO_STUDENTS_IN_CLASS", http.StatusNotFound, "no students found in class")
	ErrNoStudentsFound    = New("NO_STUDENTS_FOUND", http.StatusBadRequest, "no students found for the provided roll numbers")
	ErrStudentsNotFound   = New("STUDENTS_NOT_FOUND", http.StatusBadRequest, "some students not found")
	ErrNoDataFound        = New("NO_DATA_FOUND", http.StatusNotFound, "no data found")
	ErrStoreUnavailable   = New("STORE_UNAVAILABLE", http.StatusInternalServerError, "record store unavailable")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache entry not found")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == target.Code
	}
	return false
}
