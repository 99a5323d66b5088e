// Package domainerrors defines the typed failure taxonomy shared by the core
// components. Every operation aborts with exactly one of these codes; the
// transport layer owns the translation into HTTP status codes and prose.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the kind of failure. Codes are stable identifiers, not
// messages; callers branch on the code, never on the text.
type Code string

const (
	CodeInvalidArgument   Code = "invalid_argument"
	CodeUnauthorized      Code = "unauthorized"
	CodeNotCompliant      Code = "not_compliant"
	CodeTooEarly          Code = "too_early"
	CodePriceUnavailable  Code = "price_unavailable"
	CodeInvalidPriceScale Code = "invalid_price_scale"
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeOutOfSchedule     Code = "out_of_schedule"
	CodeAmountTooSmall    Code = "amount_too_small"
	CodeExpired           Code = "expired"
)

// Error carries a failure code plus a short operator-facing message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is match two domain errors by code alone, so callers can
// compare against a bare New(code, "") sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New builds a domain error with the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from err, or "" when err is not a domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
