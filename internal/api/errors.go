package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies request failures for status mapping.
type ErrorKind string

const (
	ErrUnauthenticated  ErrorKind = "unauthenticated"
	ErrInvalidRequest   ErrorKind = "invalid_request"
	ErrPermissionDenied ErrorKind = "permission_denied"
	ErrNotFound         ErrorKind = "not_found"
	ErrConflict         ErrorKind = "conflict"
	ErrUpstreamAgent    ErrorKind = "upstream_agent"
	ErrInternal         ErrorKind = "internal"
)

// Error is a request failure with a kind and an optional wrapped cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Unauthenticatedf(format string, args ...any) *Error {
	return &Error{Kind: ErrUnauthenticated, Message: fmt.Sprintf(format, args...)}
}

func InvalidRequestf(format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func PermissionDeniedf(format string, args ...any) *Error {
	return &Error{Kind: ErrPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func Internalf(format string, args ...any) *Error {
	return &Error{Kind: ErrInternal, Message: fmt.Sprintf(format, args...)}
}

// UpstreamAgentError wraps a failed periphery call with the server's name.
func UpstreamAgentError(serverName string, cause error) *Error {
	return &Error{
		Kind:    ErrUpstreamAgent,
		Message: fmt.Sprintf("periphery call to server %q failed", serverName),
		Cause:   cause,
	}
}

// Wrap prepends context to an error while preserving its kind.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOf(err), Message: fmt.Sprintf(format, args...), Cause: err}
}

// KindOf walks the chain for the outermost *Error kind, defaulting to internal.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ErrInternal
}

// HTTPStatus maps an error kind to its response status code.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case ErrUnauthenticated:
		return http.StatusUnauthorized
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrPermissionDenied:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrUpstreamAgent:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON error envelope returned by the gateway.
type ErrorBody struct {
	Error string   `json:"error"`
	Trace []string `json:"trace,omitempty"`
}

// Trace returns the per-layer messages of an error chain, outermost first.
// Each entry is one layer's own context with the wrapped tail stripped.
func Trace(err error) []string {
	var trace []string
	for err != nil {
		msg := err.Error()
		next := errors.Unwrap(err)
		if next != nil {
			if stripped, ok := strings.CutSuffix(msg, ": "+next.Error()); ok {
				msg = stripped
			}
		}
		trace = append(trace, msg)
		err = next
	}
	return trace
}

// ErrorBodyOf builds the wire envelope for an error.
func ErrorBodyOf(err error) ErrorBody {
	trace := Trace(err)
	top := ""
	if len(trace) > 0 {
		top = trace[0]
	}
	return ErrorBody{Error: top, Trace: trace}
}
