package errors

import (
	"errors"
	"fmt"
)

// New creates an Error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
//
//	err := errors.Newf(errors.CodeNotFoundUser, "user %q not found", username)
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a code and message. Wrap returns nil when err is nil.
//
//	row := client.QueryRow(ctx, sql, username)
//	if err := row.Scan(&disabled); err != nil {
//	    return errors.Wrap(err, errors.CodeInternalDatabase, "directory: lookup failed")
//	}
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Validation creates a VAL_001 error.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Validationf creates a VAL_001 error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

// NotFound creates an NF_001 error.
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// UserNotFoundf creates an NF_002 error for a user missing from the
// directory.
func UserNotFoundf(format string, args ...any) *Error {
	return Newf(CodeNotFoundUser, format, args...)
}

// Unauthorized creates an AUTH_001 error.
func Unauthorized(message string) *Error {
	return New(CodeAuthentication, message)
}

// Forbidden creates an AUTHZ_001 error.
func Forbidden(message string) *Error {
	return New(CodeAuthorization, message)
}

// UserDisabled creates an AUTHZ_004 error for username.
func UserDisabled(username string) *Error {
	return Newf(CodeUserDisabled, "user %q is disabled", username).
		WithDetail("username", username)
}

// RateLimited creates a LIMIT_001 error.
func RateLimited(message string) *Error {
	return New(CodeRateLimited, message)
}

// Internal creates an INT_001 error.
func Internal(message string) *Error {
	return New(CodeInternal, message)
}

// Internalf creates an INT_001 error with a formatted message.
func Internalf(format string, args ...any) *Error {
	return Newf(CodeInternal, format, args...)
}

// Unavailable creates an UNAVAIL_001 error.
func Unavailable(message string) *Error {
	return New(CodeUnavailable, message)
}

// Timeout creates a TIMEOUT_001 error.
func Timeout(message string) *Error {
	return New(CodeTimeout, message)
}

// FromError returns the *Error in err's chain, or wraps err as INT_001.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, CodeInternal, "an unexpected error occurred")
}
