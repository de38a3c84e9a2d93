// Package apperr defines the error taxonomy shared by the screening, queue
// and lifecycle services. Handlers map an error's Kind to an HTTP status.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation covers malformed or missing input. Never partially applied.
	KindValidation
	// KindUnauthorized covers missing or invalid credentials.
	KindUnauthorized
	// KindForbidden covers authorization failures (non-owner extend,
	// self-confirmation, acting on another moderator's claim).
	KindForbidden
	// KindNotFound covers missing hazards, reports, confirmations and items.
	KindNotFound
	// KindConflict covers recoverable state conflicts (duplicate report,
	// duplicate same-type vote, acting on an already-resolved hazard).
	KindConflict
)

// Error carries a Kind alongside the message so callers can distinguish
// validation from authorization from state-conflict failures.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

// Is lets errors.Is match two apperr errors by kind, so sentinel-style
// comparisons like errors.Is(err, apperr.NotFound("")) work.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.kind == t.kind
	}
	return false
}

func newError(kind Kind, format string, args ...any) *Error {
	var wrapped error
	for _, a := range args {
		if err, ok := a.(error); ok {
			wrapped = err
		}
	}
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: wrapped}
}

func Validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

// KindOf extracts the Kind from err, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// HTTPStatus maps an error to the HTTP status code handlers should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
