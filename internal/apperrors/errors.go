// Package apperrors defines the error taxonomy shared by every business
// handler. Use errors.Is with the Kind sentinels to branch on error class;
// the gateway maps each kind to an HTTP status code.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind sentinels. Every Error wraps exactly one of these.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrForbidden         = errors.New("forbidden")
	ErrInternal          = errors.New("internal error")
)

type Error struct {
	kind    error
	message string
}

func (e *Error) Error() string { return e.message }

func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newError(ErrValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(ErrNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(ErrConflict, format, args...)
}

func InsufficientStock(format string, args ...interface{}) *Error {
	return newError(ErrInsufficientStock, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newError(ErrForbidden, format, args...)
}

func Internal(format string, args ...interface{}) *Error {
	return newError(ErrInternal, format, args...)
}

// HTTPStatus maps an error to the status code the gateway should return.
// Unrecognized errors fall through to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
