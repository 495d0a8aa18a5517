package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind buckets an error into the client's handling taxonomy.
type Kind string

const (
	// KindValidation is a local precondition failure. It never reaches
	// the network layer.
	KindValidation Kind = "validation"
	// KindAuth is a 401: credentials are cleared and the user is
	// redirected exactly once regardless of concurrent failures.
	KindAuth Kind = "auth"
	// KindTransient covers timeouts, no-response network errors and
	// gateway-class statuses (502/503/504) — the cold-start signature.
	KindTransient Kind = "transient_infra"
	// KindRejection is any other server-side refusal (4xx/5xx). Surfaced
	// to the user, never retried automatically.
	KindRejection Kind = "server_rejection"
)

// ErrCode is a typed error code for consistent error identification.
type ErrCode string

const (
	ErrEmptySubmission ErrCode = "EMPTY_SUBMISSION"
	ErrScoreTooLow     ErrCode = "SCORE_TOO_LOW"
	ErrTokenInvalid    ErrCode = "TOKEN_INVALID"
	ErrTokenExpired    ErrCode = "TOKEN_EXPIRED"
	ErrColdStart       ErrCode = "BACKEND_UNAVAILABLE"
	ErrWakeExhausted   ErrCode = "WAKE_BUDGET_EXHAUSTED"
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrValidation      ErrCode = "VALIDATION_ERROR"
	ErrInternal        ErrCode = "INTERNAL_ERROR"
)

// Error is the transport layer's classified error.
type Error struct {
	Kind       Kind
	Code       ErrCode
	StatusCode int
	// Message is the user-facing text, taken from the server's message
	// field when one exists.
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%s)", e.Kind, e.Code)
}

func (e *Error) Unwrap() error { return e.cause }

// NewValidation builds a local validation error. No network involved.
func NewValidation(code ErrCode, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// classifyStatus maps an HTTP status plus the server's error body into a
// transport Error.
func classifyStatus(status int, code ErrCode, message string) *Error {
	switch {
	case status == http.StatusUnauthorized:
		if code == "" {
			code = ErrTokenInvalid
		}
		return &Error{Kind: KindAuth, Code: code, StatusCode: status, Message: message}
	case status == http.StatusBadGateway,
		status == http.StatusServiceUnavailable,
		status == http.StatusGatewayTimeout:
		return &Error{Kind: KindTransient, Code: ErrColdStart, StatusCode: status, Message: message}
	default:
		if code == "" {
			code = ErrInternal
		}
		return &Error{Kind: KindRejection, Code: code, StatusCode: status, Message: message}
	}
}

// classifyNetErr maps a round-trip failure (no HTTP response at all) into
// a transport Error. Timeouts and connection refusals look identical to a
// sleeping backend, so they share the cold-start classification.
func classifyNetErr(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTransient, Code: ErrColdStart, Message: "request timed out", cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindRejection, Code: ErrInternal, Message: "request canceled", cause: err}
	}
	return &Error{Kind: KindTransient, Code: ErrColdStart, Message: "backend unreachable", cause: err}
}

// IsKind reports whether err is a transport Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}

// IsTransient reports whether err warrants the wake/retry path.
func IsTransient(err error) bool { return IsKind(err, KindTransient) }

// IsValidation reports whether err is a local precondition failure.
func IsValidation(err error) bool { return IsKind(err, KindValidation) }

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool { return IsKind(err, KindAuth) }
