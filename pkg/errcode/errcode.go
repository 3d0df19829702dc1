// Package errcode defines the stable machine-readable codes every error
// surfaced by the analytics core maps to.
package errcode

import (
	"context"
	"errors"
	"net/http"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	MalformedRecord    Code = "MALFORMED_RECORD"
	GraphConstruction  Code = "GRAPH_CONSTRUCTION"
	ComputationTimeout Code = "COMPUTATION_TIMEOUT"
	DegenerateAxis     Code = "DEGENERATE_AXIS"
	ModuleUnavailable  Code = "MODULE_UNAVAILABLE"
	ApproximateResult  Code = "APPROXIMATE_RESULT"
	CappedRelations    Code = "CAPPED_RELATIONS"

	InvalidRequest    Code = "INVALID_REQUEST"
	NotFound          Code = "NOT_FOUND"
	SourceUnavailable Code = "SOURCE_UNAVAILABLE"
	Unauthorized      Code = "UNAUTHORIZED"
	RateLimited       Code = "RATE_LIMITED"
	Internal          Code = "INTERNAL"
)

// Coder is implemented by every error type that carries a stable code.
type Coder interface {
	Code() Code
}

// Of returns the code of the first error in err's chain that implements
// Coder. Context cancellation maps to ComputationTimeout; anything else is
// Internal.
func Of(err error) Code {
	if err == nil {
		return ""
	}
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ComputationTimeout
	}
	return Internal
}

// HTTPStatus maps a code to the HTTP status used by the API layer.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidRequest, MalformedRecord:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	case RateLimited:
		return http.StatusTooManyRequests
	case SourceUnavailable, ModuleUnavailable:
		return http.StatusServiceUnavailable
	case ComputationTimeout:
		return http.StatusGatewayTimeout
	case GraphConstruction:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a generic coded error used at service boundaries.
type Error struct {
	code    Code
	Message string
	Cause   error
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{code: code, Message: message}
}

// Wrap creates a coded error around cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Code implements Coder.
func (e *Error) Code() Code { return e.code }

// Warning is the wire form of a non-fatal condition attached to a response.
type Warning struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// AsWarning converts a coded error into its wire form.
func AsWarning(err error) Warning {
	return Warning{Code: Of(err), Message: err.Error()}
}
