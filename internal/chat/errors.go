package chat

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies adapter failures.
type ErrorKind string

// Error kinds.
const (
	KindUnauthorized           ErrorKind = "unauthorized"
	KindUnsupportedProvider    ErrorKind = "unsupported_provider"
	KindInvalidRequest         ErrorKind = "invalid_request"
	KindTransportFailure       ErrorKind = "transport_failure"
	KindUpstreamRejected       ErrorKind = "upstream_rejected"
	KindUpstreamStreamError    ErrorKind = "upstream_stream_error"
	KindMalformedUpstreamFrame ErrorKind = "malformed_upstream_frame"
)

// Sentinel errors for errors.Is matching by kind.
var (
	ErrUnauthorized           = &Error{Kind: KindUnauthorized}
	ErrUnsupportedProvider    = &Error{Kind: KindUnsupportedProvider}
	ErrInvalidRequest         = &Error{Kind: KindInvalidRequest}
	ErrTransportFailure       = &Error{Kind: KindTransportFailure}
	ErrUpstreamRejected       = &Error{Kind: KindUpstreamRejected}
	ErrUpstreamStreamError    = &Error{Kind: KindUpstreamStreamError}
	ErrMalformedUpstreamFrame = &Error{Kind: KindMalformedUpstreamFrame}
)

// Error is the uniform adapter error.
type Error struct {
	Err        error
	Kind       ErrorKind
	Message    string
	HTTPStatus int
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewErrorf creates an Error with a formatted message.
func NewErrorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error of the given kind wrapping cause.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("chat: %s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("chat: %s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// StatusCode returns the HTTP status the boundary should answer with when the
// error happens before streaming starts.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnsupportedProvider, KindInvalidRequest:
		return http.StatusBadRequest
	case KindUpstreamRejected:
		if e.HTTPStatus >= 400 {
			return e.HTTPStatus
		}
		return http.StatusBadGateway
	default:
		if e.HTTPStatus >= 400 {
			return e.HTTPStatus
		}
		return http.StatusInternalServerError
	}
}

// AsError converts any error to *Error. Errors that are not adapter errors are
// reported as transport failures.
func AsError(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return WrapError(KindTransportFailure, "unexpected failure", err)
}
