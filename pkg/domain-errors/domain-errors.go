package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business terms, not HTTP terms.
type Code string

const (
	CodeNetwork             Code = "network"
	CodeUnauthenticated     Code = "unauthenticated"
	CodeValidation          Code = "validation_failed"
	CodeInsufficientCredits Code = "insufficient_credits"
	CodeInvalidState        Code = "invalid_state"
	CodeOperationInProgress Code = "operation_in_progress"
	CodeGateway             Code = "gateway_error"
	CodeNotFound            Code = "not_found"
	CodeUnavailable         Code = "unavailable"
	CodeInternal            Code = "internal_error"
)

// fallbackMessages provide the generic user-visible text per code when the
// authority did not supply a message of its own.
var fallbackMessages = map[Code]string{
	CodeNetwork:             "network error, please try again",
	CodeUnauthenticated:     "session expired, please sign in again",
	CodeValidation:          "the request was rejected as invalid",
	CodeInsufficientCredits: "not enough credits for this operation",
	CodeInvalidState:        "the number does not allow this operation",
	CodeOperationInProgress: "another operation on this number is still running",
	CodeGateway:             "the payment provider rejected the request",
	CodeNotFound:            "not found",
	CodeUnavailable:         "this feature is currently unavailable",
	CodeInternal:            "internal error",
}

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and shared by every store and service layer.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if msg, ok := fallbackMessages[e.Code]; ok {
		return msg
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
// An empty message falls back to the generic text for the code.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// UserMessage returns the human-readable text for err: the authority-sourced
// message when one was attached, else the generic fallback for its code.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return fallbackMessages[CodeInternal]
}
