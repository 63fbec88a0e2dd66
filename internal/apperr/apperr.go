// Package apperr is the error taxonomy every engine in this module
// returns. Each package's HTTP handler (its writeErr) translates an
// *Error into the api.Envelope response using Status(); engines never
// format HTTP themselves.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindPermission Kind = "permission"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindCapacity   Kind = "capacity"
	KindState      Kind = "state"
	KindPayment    Kind = "payment"
	KindRateLimit  Kind = "rate_limit"
	KindTransient  Kind = "transient"
)

var statusByKind = map[Kind]int{
	KindValidation: http.StatusBadRequest,
	KindAuth:       http.StatusUnauthorized,
	KindPermission: http.StatusForbidden,
	KindNotFound:   http.StatusNotFound,
	KindConflict:   http.StatusConflict,
	KindCapacity:   http.StatusBadRequest,
	KindState:      http.StatusBadRequest,
	KindPayment:    http.StatusPaymentRequired,
	KindRateLimit:  http.StatusTooManyRequests,
	KindTransient:  http.StatusServiceUnavailable,
}

// Error is a taxonomy-tagged error carrying a user-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code this error maps to.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func Auth(message string) *Error       { return New(KindAuth, message) }
func Permission(message string) *Error { return New(KindPermission, message) }
func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func Capacity(message string) *Error   { return New(KindCapacity, message) }
func State(message string) *Error      { return New(KindState, message) }
func Payment(message string) *Error    { return New(KindPayment, message) }
func RateLimit(message string) *Error  { return New(KindRateLimit, message) }
func Transient(message string, err error) *Error {
	return Wrap(KindTransient, message, err)
}

// As is a thin wrapper over errors.As for *Error, for readability at
// call sites that need to branch on Kind.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Writing an *Error as an HTTP response is done by each handler
// package's writeErr, so this package never imports gin.
