package errors

// Code is a machine-readable error code of the form CATEGORY_NNN.
// Codes are stable once assigned.
type Code string

// Categories recognised by [Code.Category].
const (
	CategoryValidation     = "VAL"
	CategoryAuthentication = "AUTH"
	CategoryAuthorization  = "AUTHZ"
	CategoryNotFound       = "NF"
	CategoryConflict       = "CONF"
	CategoryRateLimit      = "LIMIT"
	CategoryInternal       = "INT"
	CategoryUnavailable    = "UNAVAIL"
	CategoryTimeout        = "TIMEOUT"
)

const (
	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"
	// CodeValidationRequired indicates a required value is missing.
	CodeValidationRequired Code = "VAL_002"
	// CodeValidationFormat indicates a value has an invalid format.
	CodeValidationFormat Code = "VAL_003"

	// CodeAuthentication indicates a general authentication failure.
	CodeAuthentication Code = "AUTH_001"
	// CodeAuthenticationExpired indicates a credential has expired.
	CodeAuthenticationExpired Code = "AUTH_002"
	// CodeAuthenticationInvalid indicates a credential is malformed or
	// carries a bad signature.
	CodeAuthenticationInvalid Code = "AUTH_003"

	// CodeAuthorization indicates a general authorization failure.
	CodeAuthorization Code = "AUTHZ_001"
	// CodeAuthorizationDenied indicates access is denied.
	CodeAuthorizationDenied Code = "AUTHZ_002"
	// CodeUserDisabled indicates the directory marks the user as disabled.
	CodeUserDisabled Code = "AUTHZ_004"
	// CodeProtectedIdentity indicates an identity that may never pass
	// through the gateway, such as the system account.
	CodeProtectedIdentity Code = "AUTHZ_005"

	// CodeNotFound indicates a general not found error.
	CodeNotFound Code = "NF_001"
	// CodeNotFoundUser indicates the directory has no record of the user.
	CodeNotFoundUser Code = "NF_002"

	// CodeConflict indicates a general conflict error.
	CodeConflict Code = "CONF_001"
	// CodeConflictAlreadyExists indicates the record already exists.
	CodeConflictAlreadyExists Code = "CONF_002"

	// CodeRateLimited indicates the caller's admission budget is exhausted.
	CodeRateLimited Code = "LIMIT_001"

	// CodeInternal indicates a general internal error.
	CodeInternal Code = "INT_001"
	// CodeInternalDatabase indicates a storage operation failed.
	CodeInternalDatabase Code = "INT_002"
	// CodeInternalConfiguration indicates invalid configuration.
	CodeInternalConfiguration Code = "INT_003"

	// CodeUnavailable indicates a general unavailability.
	CodeUnavailable Code = "UNAVAIL_001"
	// CodeUnavailableDependency indicates a backing service, usually the
	// user directory, stayed unreachable.
	CodeUnavailableDependency Code = "UNAVAIL_002"

	// CodeTimeout indicates a general timeout.
	CodeTimeout Code = "TIMEOUT_001"
	// CodeTimeoutDatabase indicates a storage operation timed out.
	CodeTimeoutDatabase Code = "TIMEOUT_002"
)

// String returns the code as a string.
func (c Code) String() string {
	return string(c)
}

// Category returns the prefix before the first underscore, or the whole
// code when it has none.
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
