package application

import (
	"errors"
	"fmt"
)

// ErrorKind identifies a known application fault category.
type ErrorKind string

// Known fault kinds. Anything outside this taxonomy is treated as an
// internal error by the pipeline and never leaks to the caller.
const (
	KindValidation       ErrorKind = "validation_error"
	KindNotFound         ErrorKind = "not_found"
	KindConflict         ErrorKind = "conflict"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindForbidden        ErrorKind = "forbidden"
	KindAuthentication   ErrorKind = "unauthorized"
	KindConcurrency      ErrorKind = "concurrency"
	KindService          ErrorKind = "service_error"
	KindExternalService  ErrorKind = "external_service"
	KindRollback         ErrorKind = "rollback"
)

// Error is a known application fault. It carries its own status
// classification so the pipeline can convert it to a failure Result
// without inspecting the message.
type Error struct {
	Kind    ErrorKind
	Code    StatusCode
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// WithDetails attaches structured detail to the fault.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithCause attaches an underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// ToResult converts the fault to a failure Result using its own status
// code and message.
func (e *Error) ToResult() Result {
	payload := map[string]any{"code": string(e.Kind)}
	if e.Details != nil {
		payload["details"] = e.Details
	}
	return Fail(e.Message, e.Code, payload)
}

// AsAppError reports whether err is (or wraps) a known application fault.
func AsAppError(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func newError(kind ErrorKind, code StatusCode, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// NewValidation creates a bad-input fault.
func NewValidation(message string) *Error {
	return newError(KindValidation, StatusBadRequest, message)
}

// NewNotFound creates a missing-resource fault.
func NewNotFound(message string) *Error {
	return newError(KindNotFound, StatusNotFound, message)
}

// NewConflict creates a state-conflict fault.
func NewConflict(message string) *Error {
	return newError(KindConflict, StatusConflict, message)
}

// NewPermissionDenied creates a permission fault.
func NewPermissionDenied(message string) *Error {
	if message == "" {
		message = "Permission denied"
	}
	return newError(KindPermissionDenied, StatusForbidden, message)
}

// NewForbidden creates a forbidden fault raised by the authorization gate.
func NewForbidden(message string) *Error {
	if message == "" {
		message = "Forbidden"
	}
	return newError(KindForbidden, StatusForbidden, message)
}

// NewAuthentication creates an unauthenticated fault.
func NewAuthentication(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return newError(KindAuthentication, StatusUnauthorized, message)
}

// NewConcurrency creates an optimistic-concurrency fault.
func NewConcurrency(message string) *Error {
	if message == "" {
		message = "Concurrency conflict"
	}
	return newError(KindConcurrency, StatusConflict, message)
}

// NewService creates an internal service fault.
func NewService(message string) *Error {
	if message == "" {
		message = "Internal service error"
	}
	return newError(KindService, StatusInternalError, message)
}

// NewExternalService creates an upstream service fault.
func NewExternalService(message string) *Error {
	if message == "" {
		message = "Upstream service error"
	}
	return newError(KindExternalService, StatusBadGateway, message)
}

// NewRollback creates an explicit abort marker.
func NewRollback(message string) *Error {
	return newError(KindRollback, StatusInternalError, message)
}

// Ensure raises a validation fault when the condition does not hold.
func Ensure(condition bool, message string) error {
	if !condition {
		return NewValidation(message)
	}
	return nil
}

// RequireFound raises a not-found fault when value is nil.
func RequireFound[T any](value *T, message string) (*T, error) {
	if value == nil {
		if message == "" {
			message = "Resource not found"
		}
		return nil, NewNotFound(message)
	}
	return value, nil
}
