package api

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strconv"
)

// Well-known codes produced on the client side.
const (
	CodeNetwork      = "network_error"
	CodeUnknown      = "unknown_error"
	CodeUnauthorized = "401"
)

// Default user-facing messages.
const (
	DefaultNetworkMessage = "Unable to reach the server. Check your connection and try again."
	DefaultErrorMessage   = "Something went wrong. Please try again."
	SessionExpiredMessage = "Your session has expired. Please log in again."
)

// ErrCanceled marks a request abandoned by its caller. It is not a failure
// and must never be shown to the user.
var ErrCanceled = errors.New("request canceled")

// Error is the uniform error record for failed API calls. It is immutable:
// all fields are set by the constructors and exposed through accessors.
type Error struct {
	statusCode  int
	code        string
	message     string
	validation  bool
	fieldErrors map[string]string
	cause       error
}

// NewError builds a generic API error.
func NewError(statusCode int, code, message string) *Error {
	return &Error{statusCode: statusCode, code: code, message: message}
}

// NewValidationError builds an error carrying per-field messages. The map is
// copied.
func NewValidationError(statusCode int, code, message string, fields map[string]string) *Error {
	if fields == nil {
		fields = map[string]string{}
	}
	return &Error{
		statusCode:  statusCode,
		code:        code,
		message:     message,
		validation:  true,
		fieldErrors: maps.Clone(fields),
	}
}

// NetworkError synthesizes an error for failures that produced no envelope.
func NetworkError(cause error) *Error {
	msg := DefaultNetworkMessage
	if errors.Is(cause, context.DeadlineExceeded) {
		msg = "The server took too long to respond. Please try again."
	}
	return &Error{code: CodeNetwork, message: msg, cause: cause}
}

func (e *Error) Error() string {
	if e.statusCode != 0 {
		return fmt.Sprintf("api error %d (%s): %s", e.statusCode, e.code, e.message)
	}
	return fmt.Sprintf("api error (%s): %s", e.code, e.message)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) StatusCode() int    { return e.statusCode }
func (e *Error) Code() string       { return e.code }
func (e *Error) Message() string    { return e.message }
func (e *Error) IsValidation() bool { return e.validation }
func (e *Error) IsNetwork() bool    { return e.code == CodeNetwork }
func (e *Error) HasField(f string) bool {
	_, ok := e.fieldErrors[f]
	return ok
}

// FieldErrors returns a copy of the per-field validation messages.
func (e *Error) FieldErrors() map[string]string {
	return maps.Clone(e.fieldErrors)
}

// IsUnauthorized reports whether the server rejected the credentials.
func (e *Error) IsUnauthorized() bool {
	return e.code == CodeUnauthorized || e.statusCode == http.StatusUnauthorized
}

// IsNotFound reports a missing resource.
func (e *Error) IsNotFound() bool {
	return e.statusCode == http.StatusNotFound || e.code == "404" || e.code == "not_found"
}

// IsForbidden reports a permission error.
func (e *Error) IsForbidden() bool {
	return e.statusCode == http.StatusForbidden || e.code == "403" || e.code == "forbidden"
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether err carries an unauthorized *Error.
func IsUnauthorized(err error) bool {
	apiErr, ok := As(err)
	return ok && apiErr.IsUnauthorized()
}

type canceledError struct {
	cause error
}

func (c *canceledError) Error() string {
	if c.cause == nil {
		return ErrCanceled.Error()
	}
	return ErrCanceled.Error() + ": " + c.cause.Error()
}

func (c *canceledError) Is(target error) bool { return target == ErrCanceled }
func (c *canceledError) Unwrap() error        { return c.cause }

// Canceled wraps cause so that it matches ErrCanceled.
func Canceled(cause error) error {
	return &canceledError{cause: cause}
}

// IsCanceled reports whether err means "the caller gave up", in which case
// the result must be dropped silently.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

func codeFromStatus(status int) string {
	if status < 400 {
		return CodeUnknown
	}
	return strconv.Itoa(status)
}
