package errors

import (
	"errors"
)

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetCode returns the code of the first *Error in err's chain, or "".
func GetCode(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries code.
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

func hasCategory(err error, categories ...string) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	cat := e.Code.Category()
	for _, c := range categories {
		if cat == c {
			return true
		}
	}
	return false
}

// IsValidation reports whether err is a VAL_xxx error.
func IsValidation(err error) bool { return hasCategory(err, CategoryValidation) }

// IsAuthentication reports whether err is an AUTH_xxx error.
func IsAuthentication(err error) bool { return hasCategory(err, CategoryAuthentication) }

// IsAuthorization reports whether err is an AUTHZ_xxx error.
func IsAuthorization(err error) bool { return hasCategory(err, CategoryAuthorization) }

// IsNotFound reports whether err is an NF_xxx error.
func IsNotFound(err error) bool { return hasCategory(err, CategoryNotFound) }

// IsConflict reports whether err is a CONF_xxx error.
func IsConflict(err error) bool { return hasCategory(err, CategoryConflict) }

// IsRateLimited reports whether err is a LIMIT_xxx error.
func IsRateLimited(err error) bool { return hasCategory(err, CategoryRateLimit) }

// IsInternal reports whether err is an INT_xxx error.
func IsInternal(err error) bool { return hasCategory(err, CategoryInternal) }

// IsUnavailable reports whether err is an UNAVAIL_xxx error.
func IsUnavailable(err error) bool { return hasCategory(err, CategoryUnavailable) }

// IsTimeout reports whether err is a TIMEOUT_xxx error.
func IsTimeout(err error) bool { return hasCategory(err, CategoryTimeout) }

// IsRetryable reports whether retrying may succeed. Only timeouts and
// unavailability qualify; a disabled or unknown user stays that way until
// the directory changes.
func IsRetryable(err error) bool {
	return hasCategory(err, CategoryTimeout, CategoryUnavailable)
}

// IsClientError reports whether err maps to a 4xx status.
func IsClientError(err error) bool {
	return hasCategory(err, CategoryValidation, CategoryAuthentication,
		CategoryAuthorization, CategoryNotFound, CategoryConflict, CategoryRateLimit)
}

// IsServerError reports whether err maps to a 5xx status.
func IsServerError(err error) bool {
	return hasCategory(err, CategoryInternal, CategoryUnavailable, CategoryTimeout)
}
