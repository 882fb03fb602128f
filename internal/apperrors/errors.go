// Package apperrors defines the billing domain's error taxonomy. Every
// gateway-facing failure is translated into one of these kinds before it
// is surfaced, so callers can tell which step failed and map it to an
// HTTP status.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalid
	KindGateway
	KindStateTransition
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func Invalid(code, message string) *Error {
	return &Error{Kind: KindInvalid, Code: code, Message: message}
}

func Gateway(code, message string, err error) *Error {
	return &Error{Kind: KindGateway, Code: code, Message: message, Err: err}
}

func StateTransition(code, message string, err error) *Error {
	return &Error{Kind: KindStateTransition, Code: code, Message: message, Err: err}
}

func Internal(code, message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: code, Message: message, Err: err}
}

// KindOf returns the taxonomy kind of err, or KindInternal for errors
// outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the domain code of err, or "" if it has none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HTTPStatus maps an error's kind to the status the handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	case KindInvalid:
		return fiber.StatusBadRequest
	case KindGateway:
		return fiber.StatusBadGateway
	case KindStateTransition:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}
