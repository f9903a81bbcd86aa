package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for callers. The string values are part of the
// response envelope and must stay stable.
type Kind string

const (
	KindValidation      Kind = "VALIDATION_ERROR"
	KindNotFound        Kind = "NOT_FOUND"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindConflict        Kind = "CONFLICT"
	KindExternalService Kind = "EXTERNAL_SERVICE_ERROR"
	KindPersistence     Kind = "PERSISTENCE_ERROR"
	KindInternal        Kind = "INTERNAL_ERROR"
)

const genericMessage = "an unexpected error occurred"

// Error is the domain error returned by the orchestration services. Err keeps
// the underlying cause so errors.Is still reaches store sentinels.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func Validation(message string) *Error { return New(KindValidation, message, nil) }

func NotFound(message string, cause error) *Error { return New(KindNotFound, message, cause) }

func Unauthorized(message string, cause error) *Error {
	return New(KindUnauthorized, message, cause)
}

func Conflict(message string, cause error) *Error { return New(KindConflict, message, cause) }

func External(message string, cause error) *Error {
	return New(KindExternalService, message, cause)
}

func Persistence(cause error) *Error {
	return New(KindPersistence, "storage failure", cause)
}

// Internal hides the cause behind a generic message.
func Internal(cause error) *Error { return New(KindInternal, genericMessage, cause) }

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Status maps a kind onto an HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Result is the uniform response envelope.
type Result struct {
	Success   bool   `json:"success"`
	ErrorKind Kind   `json:"errorKind,omitempty"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// OK wraps a successful payload.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Failure converts any error into an envelope. Persistence and internal
// failures never expose the underlying cause.
func Failure(err error) Result {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return Result{Success: false, ErrorKind: KindInternal, Message: genericMessage}
	}
	msg := appErr.Message
	switch appErr.Kind {
	case KindInternal:
		msg = genericMessage
	case KindPersistence:
		msg = "storage failure"
	}
	return Result{Success: false, ErrorKind: appErr.Kind, Message: msg}
}
