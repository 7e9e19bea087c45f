package browser

import (
	"context"
	"errors"
	"fmt"
)

// Code classifies an engine failure.
type Code string

// Error codes carried by Error.
const (
	CodeTimeout     Code = "TIMEOUT"
	CodeNavigation  Code = "NAVIGATION_FAILED"
	CodeLaunch      Code = "LAUNCH_FAILED"
	CodeNotFound    Code = "ELEMENT_NOT_FOUND"
	CodeScript      Code = "SCRIPT_FAILED"
	CodeScreenshot  Code = "SCREENSHOT_FAILED"
	CodeUnsupported Code = "UNSUPPORTED"
)

// Error is the error type returned by page engines.
// It carries a code and supports error wrapping via Unwrap.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error.
func NewError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsCode reports whether err is an Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// errUnsupported is returned by engines for operations they cannot perform.
func errUnsupported(op string) *Error {
	return NewError(CodeUnsupported, op+" is not supported by this engine", nil)
}

// categorizeError wraps a raw engine error: context expiry becomes a
// timeout, anything else keeps the code given by the caller.
func categorizeError(err error, code Code, msg string) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(CodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return NewError(CodeTimeout, "canceled", err)
	default:
		return NewError(code, msg, err)
	}
}
