package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gatherchat/internal/pkg/logx"
)

// CustomError is the error type used throughout the application.
// It carries a business code, a client-facing message, the HTTP status that
// represents it, and optionally the underlying cause for logs.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code corresponding to this error.
	Status int

	cause error
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("Error Code %d (HTTP %d): %s: %v", e.Code, e.Status, e.Message, e.cause)
	}
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As.
func (e *CustomError) Unwrap() error {
	return e.cause
}

// NewError builds a *CustomError from a predefined code.
// details are printf arguments for messages with placeholders. Unknown codes fall back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
				"code", code,
			)
		}
	}

	return &customErr
}

// Wrap builds a *CustomError for code and attaches err as its cause.
func Wrap(code int, err error) *CustomError {
	customErr := NewError(code)
	customErr.cause = err
	return customErr
}

// HasCode reports whether err, or any error it wraps, is a *CustomError with the given code.
func HasCode(err error, code int) bool {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code == code
	}
	return false
}

// From converts any error into a *CustomError, wrapping unknown errors as ErrUnknown.
func From(err error) *CustomError {
	if err == nil {
		return nil
	}

	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}
	return Wrap(ErrUnknown, err)
}
