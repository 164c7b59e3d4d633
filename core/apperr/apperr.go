// Package apperr defines the error taxonomy shared by the core and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for retry decisions and HTTP mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindPermission
	KindUnauthorized
	KindUpstreamAuth
	KindUpstreamProtocol
	KindProcessingTimeout
	KindStorage
)

// Code is the stable machine-readable identifier sent to clients.
type Code string

const (
	CodeValidation       Code = "validation_failed"
	CodeNotFound         Code = "not_found"
	CodeForbidden        Code = "forbidden"
	CodeUnauthorized     Code = "unauthorized"
	CodeNotConnected     Code = "platform_not_connected"
	CodeAuthRejected     Code = "upstream_auth_failed"
	CodeUpstreamProtocol Code = "upstream_protocol_error"
	CodeTimeout          Code = "processing_timeout"
	CodeStorage          Code = "storage_error"
	CodeInternal         Code = "internal_error"
)

// Error is a classified error with a client-facing message.
type Error struct {
	Kind    Kind
	Code    Code
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

// Status returns the HTTP status for the error.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermission:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstreamAuth:
		if e.Code == CodeNotConnected {
			return http.StatusFailedDependency
		}
		return http.StatusBadGateway
	case KindUpstreamProtocol:
		return http.StatusBadGateway
	case KindProcessingTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the same request may succeed later.
func (e *Error) Retryable() bool {
	return e.Status() >= 500
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPermission, Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: msg}
}

// NotConnected reports that the owner has no credential for platform.
func NotConnected(platform string) *Error {
	return &Error{
		Kind:    KindUpstreamAuth,
		Code:    CodeNotConnected,
		Message: fmt.Sprintf("%s account is not connected", platform),
	}
}

// AuthRejected reports that the platform refused to issue a token.
func AuthRejected(platform string, err error) *Error {
	return &Error{
		Kind:    KindUpstreamAuth,
		Code:    CodeAuthRejected,
		Message: fmt.Sprintf("%s token refresh failed", platform),
		Err:     err,
	}
}

func Protocol(msg string, err error) *Error {
	return &Error{Kind: KindUpstreamProtocol, Code: CodeUpstreamProtocol, Message: msg, Err: err}
}

func Timeout(format string, args ...interface{}) *Error {
	return &Error{Kind: KindProcessingTimeout, Code: CodeTimeout, Message: fmt.Sprintf(format, args...)}
}

func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Code: CodeStorage, Message: "storage " + op + " failed", Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: msg, Err: err}
}

// From returns the classified error in err's chain, or wraps err as internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal error", err)
}

// Is reports whether err carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
