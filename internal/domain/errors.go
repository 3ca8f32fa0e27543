package domain

import (
	"errors"
	"net/http"
)

// ErrTaskNotFound is returned by the storage layer when no task has the
// requested id.
var ErrTaskNotFound = errors.New("task not found")

// User-facing messages. They are part of the HTTP contract.
const (
	MsgTitleRequired  = "Title is required"
	MsgInvalidDueDate = "Invalid dueDate"
	MsgInvalidID      = "Invalid id"
	MsgNoValidFields  = "No valid fields"
	MsgTaskNotFound   = "Task not found"
	MsgServerError    = "Server error"
	MsgRateLimited    = "Too many requests"
)

// Kind classifies an error for the API boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind to a response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind and a message that is safe to show to callers.
// Err holds the cause, which is never shown.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Internal(err error) error {
	return &Error{Kind: KindInternal, Message: MsgServerError, Err: err}
}

// KindOf returns the kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return MsgServerError
}
