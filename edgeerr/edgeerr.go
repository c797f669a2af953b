// Package edgeerr defines the error taxonomy shared by every component of
// the edge client core. Every error that crosses a component boundary is an
// *Error carrying one of the fixed Kind values below.
package edgeerr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind is a closed set of error categories. The set is process-wide and
// read-only; it is never extended at runtime.
type Kind string

const (
	OK                     Kind = "OK"
	NotFound               Kind = "NOT_FOUND"
	ControllerUnavailable  Kind = "CONTROLLER_UNAVAILABLE"
	GatewayUnavailable     Kind = "GATEWAY_UNAVAILABLE"
	AuthFailed             Kind = "AUTH_FAILED"
	InvalidPosture         Kind = "INVALID_POSTURE"
	MFAInvalidToken        Kind = "MFA_INVALID_TOKEN"
	MFAExists              Kind = "MFA_EXISTS"
	MFANotEnrolled         Kind = "MFA_NOT_ENROLLED"
	JWTInvalid             Kind = "JWT_INVALID"
	NotAuthorized          Kind = "NOT_AUTHORIZED"
	InvalidState           Kind = "INVALID_STATE"
	InvalidConfig          Kind = "INVALID_CONFIG"
	Disabled               Kind = "DISABLED"
	Unspecified            Kind = "UNSPECIFIED"
	InvalidControllerReply Kind = "INVALID_CONTROLLER_RESPONSE"
)

// Error is the concrete error type returned by every component. ServerCode
// is the raw string the controller sent (empty for locally-synthesized
// errors); HTTPStatus is 0 when no HTTP exchange occurred at all (e.g. the
// synchronous AUTH_FAILED rejection issued before any request is sent).
type Error struct {
	Kind       Kind
	ServerCode string
	HTTPStatus int
	Message    string
	cause      error
}

func (e *Error) Error() string {
	if e.ServerCode != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.ServerCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind/message to an underlying cause, preserving it for
// errors.Unwrap/errors.Cause chains across component boundaries.
func Wrap(cause error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: pkgerrors.Wrap(cause, message)}
}

// WithHTTP sets the HTTP status and server code observed alongside this
// error and returns the receiver for chaining.
func (e *Error) WithHTTP(status int, serverCode string) *Error {
	e.HTTPStatus = status
	e.ServerCode = serverCode
	return e
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
