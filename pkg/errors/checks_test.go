package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsError_TraversesChain(t *testing.T) {
	t.Parallel()

	inner := New(CodeNotFoundUser, "missing")
	wrapped := fmt.Errorf("resolve: %w", inner)

	e, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Same(t, inner, e)
	assert.Equal(t, CodeNotFoundUser, GetCode(wrapped))
	assert.True(t, HasCode(wrapped, CodeNotFoundUser))

	_, ok = AsError(stderrors.New("plain"))
	assert.False(t, ok)
	assert.Equal(t, Code(""), GetCode(nil))
}

func TestCategoryChecks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", Validation("bad"), IsValidation},
		{"authentication", Unauthorized("bad token"), IsAuthentication},
		{"authorization", UserDisabled("alice"), IsAuthorization},
		{"not found", UserNotFoundf("user %q not found", "bob"), IsNotFound},
		{"conflict", New(CodeConflictAlreadyExists, "exists"), IsConflict},
		{"rate limited", RateLimited("API rate limit exceeded"), IsRateLimited},
		{"internal", Internal("boom"), IsInternal},
		{"unavailable", Unavailable("down"), IsUnavailable},
		{"timeout", Timeout("slow"), IsTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(stderrors.New("plain")))
			assert.False(t, tt.check(nil))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRetryable(New(CodeUnavailableDependency, "down")))
	assert.True(t, IsRetryable(New(CodeTimeoutDatabase, "slow")))
	assert.False(t, IsRetryable(UserDisabled("alice")))
	assert.False(t, IsRetryable(UserNotFoundf("missing")))
	assert.False(t, IsRetryable(stderrors.New("plain")))
}

func TestIsClientAndServerError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsClientError(RateLimited("x")))
	assert.True(t, IsClientError(UserDisabled("x")))
	assert.False(t, IsClientError(Unavailable("x")))

	assert.True(t, IsServerError(Unavailable("x")))
	assert.True(t, IsServerError(New(CodeInternalDatabase, "x")))
	assert.False(t, IsServerError(Validation("x")))
}
