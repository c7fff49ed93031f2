package service

import (
	"fmt"
	"net/http"
)

// Kind tags every failure a service operation can produce. The transport
// layer maps kinds to HTTP status codes; nothing below it retries.
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindConflict
	KindNotFound
	KindUnauthorized
	KindUploadFailed
	KindInternal
)

// Error is the tagged failure returned by every service operation. Message
// is human-readable; Err, when set, is the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode satisfies response.StatusCoder.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func invalidInput(format string, args ...interface{}) *Error {
	return newError(KindInvalidInput, nil, format, args...)
}

func conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, nil, format, args...)
}

func notFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, nil, format, args...)
}

func unauthorized(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, nil, format, args...)
}

func uploadFailed(err error, format string, args ...interface{}) *Error {
	return newError(KindUploadFailed, err, format, args...)
}

func internal(err error, format string, args ...interface{}) *Error {
	return newError(KindInternal, err, format, args...)
}

// IsKind reports whether err is a service error with the given kind.
func IsKind(err error, kind Kind) bool {
	se, ok := err.(*Error)
	return ok && se.Kind == kind
}
