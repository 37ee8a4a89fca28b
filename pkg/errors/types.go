package errors

import (
	"fmt"
	"maps"
	"net/http"
)

// Error is a coded error with an optional cause and structured details.
// Values are treated as immutable; the With* helpers return copies.
type Error struct {
	// Code is the machine-readable error code.
	Code Code

	// Message is safe to show to clients.
	Message string

	// Cause is the wrapped error, if any.
	Cause error

	// Details holds extra context for logs (username, key, attempt).
	Details map[string]any
}

var categoryStatus = map[string]int{
	CategoryValidation:     http.StatusBadRequest,
	CategoryAuthentication: http.StatusUnauthorized,
	CategoryAuthorization:  http.StatusForbidden,
	CategoryNotFound:       http.StatusNotFound,
	CategoryConflict:       http.StatusConflict,
	CategoryRateLimit:      http.StatusTooManyRequests,
	CategoryInternal:       http.StatusInternalServerError,
	CategoryUnavailable:    http.StatusServiceUnavailable,
	CategoryTimeout:        http.StatusGatewayTimeout,
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause so errors.Is and errors.As see through e.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the code category to an HTTP status. Unknown
// categories map to 500.
func (e *Error) HTTPStatus() int {
	if status, ok := categoryStatus[e.Code.Category()]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithDetails returns a copy of e with details merged in.
func (e *Error) WithDetails(details map[string]any) *Error {
	merged := make(map[string]any, len(e.Details)+len(details))
	maps.Copy(merged, e.Details)
	maps.Copy(merged, details)
	return &Error{Code: e.Code, Message: e.Message, Cause: e.Cause, Details: merged}
}

// WithDetail returns a copy of e with one detail added.
func (e *Error) WithDetail(key string, value any) *Error {
	return e.WithDetails(map[string]any{key: value})
}

// LogAttrs returns the code, message and details as slog key/value pairs.
func (e *Error) LogAttrs() []any {
	attrs := []any{"code", string(e.Code), "message", e.Message}
	for k, v := range e.Details {
		attrs = append(attrs, k, v)
	}
	return attrs
}

// Format implements fmt.Formatter. %+v prints details and the cause chain.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "Error{Code: %q, Message: %q", e.Code, e.Message)
			if len(e.Details) > 0 {
				fmt.Fprintf(s, ", Details: %v", e.Details)
			}
			if e.Cause != nil {
				fmt.Fprintf(s, ", Cause: %+v", e.Cause)
			}
			fmt.Fprint(s, "}")
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
