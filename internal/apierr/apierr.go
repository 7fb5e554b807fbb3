// Package apierr defines the error taxonomy shared by the service boundary.
//
// Every failure that can cross the HTTP boundary is classified into exactly
// one kind. Handlers never switch on concrete error types from other
// packages; they classify with KindOf and render with the api package.
//
// Execution faults raised by submitted code are intentionally NOT part of
// this taxonomy: they are carried as data inside a successful execution
// response, never as a transport failure.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a boundary error.
type Kind int

const (
	// KindInternal is the fallback for unclassified errors.
	KindInternal Kind = iota
	// KindValidation covers missing or malformed request fields.
	KindValidation
	// KindConfiguration covers absent or invalid process configuration,
	// e.g. missing storage credentials.
	KindConfiguration
	// KindNotFound covers references to blobs that do not exist.
	KindNotFound
	// KindStorage covers failures of the remote object store.
	KindStorage
)

// Error is a classified boundary error. Msg is safe to return to callers;
// Err carries the underlying cause for logging and error_details.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Configuration builds a KindConfiguration error.
func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps a store failure as a KindStorage error.
func Storage(err error, format string, args ...any) *Error {
	return &Error{Kind: KindStorage, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from anywhere in the error chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a classified error onto the status code the original
// service used for that failure class.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConfiguration, KindStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
