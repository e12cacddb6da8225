// Package apperr classifies the failures an order or dispense action can end in.
//
// Validation and capacity errors are detected locally before any mutation is
// issued. Boundary errors carry the message of the service of record. None of
// them are fatal to the process; each is scoped to the action that raised it.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindCapacity
	KindBoundary
	KindAvailability
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCapacity:
		return "capacity"
	case KindBoundary:
		return "boundary"
	case KindAvailability:
		return "availability"
	case KindNotFound:
		return "not-found"
	default:
		return "internal"
	}
}

// Error is a categorized failure. Message is what the caller sees.
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

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Capacity(message string) *Error {
	return &Error{Kind: KindCapacity, Message: message}
}

func Capacityf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindCapacity, Message: fmt.Sprintf(format, args...)}
}

// Boundary wraps a failed call to the service of record. The message of err
// is kept verbatim so callers see what the service said.
func Boundary(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) && (ae.Kind == KindBoundary || ae.Kind == KindNotFound) {
		return ae
	}
	return &Error{Kind: KindBoundary, Message: err.Error(), Err: err}
}

// Boundaryf wraps err with a prefix describing the step that failed.
func Boundaryf(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindBoundary, Message: fmt.Sprintf(format, args...) + ": " + err.Error(), Err: err}
}

func Availability(err error) *Error {
	return &Error{Kind: KindAvailability, Message: err.Error(), Err: err}
}

func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

// KindOf reports the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// HTTPStatus maps err onto the status code handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindCapacity:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindBoundary, KindAvailability:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
