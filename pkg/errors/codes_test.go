package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_Category(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code Code
		want string
	}{
		{CodeValidation, CategoryValidation},
		{CodeAuthenticationExpired, CategoryAuthentication},
		{CodeUserDisabled, CategoryAuthorization},
		{CodeProtectedIdentity, CategoryAuthorization},
		{CodeNotFoundUser, CategoryNotFound},
		{CodeRateLimited, CategoryRateLimit},
		{CodeInternalDatabase, CategoryInternal},
		{CodeUnavailableDependency, CategoryUnavailable},
		{CodeTimeoutDatabase, CategoryTimeout},
		{Code("NOUNDERSCORE"), "NOUNDERSCORE"},
		{Code(""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.code.Category())
		})
	}
}

func TestCode_Unique(t *testing.T) {
	t.Parallel()

	codes := []Code{
		CodeValidation, CodeValidationRequired, CodeValidationFormat,
		CodeAuthentication, CodeAuthenticationExpired, CodeAuthenticationInvalid,
		CodeAuthorization, CodeAuthorizationDenied, CodeUserDisabled, CodeProtectedIdentity,
		CodeNotFound, CodeNotFoundUser,
		CodeConflict, CodeConflictAlreadyExists,
		CodeRateLimited,
		CodeInternal, CodeInternalDatabase, CodeInternalConfiguration,
		CodeUnavailable, CodeUnavailableDependency,
		CodeTimeout, CodeTimeoutDatabase,
	}

	seen := make(map[Code]bool, len(codes))
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate code %s", c)
		seen[c] = true
	}
}
