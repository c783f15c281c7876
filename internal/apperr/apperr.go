package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindInvalidOperation
	KindExpired
	KindInvalidCode
	KindDeliveryFailure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindExpired:
		return "expired"
	case KindInvalidCode:
		return "invalid_code"
	case KindDeliveryFailure:
		return "delivery_failure"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindInvalidOperation, KindExpired, KindInvalidCode:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified application error. Message is safe to show to clients
// unless the kind maps to a 5xx status.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Public returns the client-facing message.
func (e *Error) Public() string {
	if e.Kind.Status() >= http.StatusInternalServerError {
		return "internal server error"
	}
	return e.Message
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Validation(msg string) *Error       { return New(KindValidation, msg) }
func Unauthenticated(msg string) *Error  { return New(KindUnauthenticated, msg) }
func Forbidden(msg string) *Error        { return New(KindForbidden, msg) }
func NotFound(msg string) *Error         { return New(KindNotFound, msg) }
func Conflict(msg string) *Error         { return New(KindConflict, msg) }
func InvalidOperation(msg string) *Error { return New(KindInvalidOperation, msg) }
func Expired(msg string) *Error          { return New(KindExpired, msg) }
func InvalidCode(msg string) *Error      { return New(KindInvalidCode, msg) }

// RateLimited carries the suggested wait before the caller may retry.
func RateLimited(msg string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Message: msg, RetryAfter: retryAfter}
}

// DeliveryFailure wraps a failed outbound delivery (SMS, email).
func DeliveryFailure(msg string, err error) *Error {
	return &Error{Kind: KindDeliveryFailure, Message: msg, Err: err}
}

// Internal wraps an unexpected store or provider failure.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf reports the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
