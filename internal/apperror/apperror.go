package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindUnavailable
)

// Error carries a client-safe message plus the kind used to pick the HTTP status.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// NotFound names the missing entity, e.g. NotFound("resource") -> "resource not found".
func NotFound(entity string) *Error {
	return New(KindNotFound, entity+" not found")
}

func Conflict(msg string) *Error {
	return New(KindConflict, msg)
}

func Unauthorized(msg string) *Error {
	return New(KindUnauthorized, msg)
}

func Forbidden(msg string) *Error {
	return New(KindForbidden, msg)
}

// Unavailable marks a retryable failure such as a timeout or lock contention.
func Unavailable(msg string, err error) *Error {
	return Wrap(KindUnavailable, msg, err)
}

func Unexpected(msg string, err error) *Error {
	return Wrap(KindUnexpected, msg, err)
}

func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnexpected
}

func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

func IsRetryable(err error) bool {
	return Is(err, KindUnavailable)
}

func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage hides the details of unexpected errors from clients.
func PublicMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != KindUnexpected {
		return ae.Message
	}
	return "Internal Server Error"
}
