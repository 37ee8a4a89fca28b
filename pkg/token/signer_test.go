package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/StricklySoft/stricklysoft-gateway/internal/testutil"
	"github.com/StricklySoft/stricklysoft-gateway/internal/testutil/fixtures"
	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SigningKey = fixtures.TokenSecret
	cfg.Issuer = fixtures.TestIssuer
	return cfg
}

func newTestSigner(t *testing.T, clock *testutil.ManualClock) *HMACSigner {
	t.Helper()
	s, err := NewHMACSigner(testConfig())
	require.NoError(t, err)
	if clock != nil {
		s.WithClock(clock.Now)
	}
	return s
}

func TestHMACSigner_SignAndParse(t *testing.T) {
	t.Parallel()

	clock := testutil.NewManualClock(t0)
	s := newTestSigner(t, clock)

	tok, err := s.Sign(context.Background(), Identity{
		Username:    fixtures.Alice,
		Authorities: []string{fixtures.GroupEveryone, fixtures.RoleUser},
	})
	require.NoError(t, err)

	claims, err := s.Parse(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, fixtures.Alice, claims.Subject)
	assert.Equal(t, fixtures.TestIssuer, claims.Issuer)
	assert.Equal(t, []string{fixtures.GroupEveryone, fixtures.RoleUser}, claims.Authorities)
	assert.Equal(t, t0, claims.IssuedAt.Time.UTC())
	assert.Equal(t, t0.Add(DefaultTTL), claims.ExpiresAt.Time.UTC())
	assert.NotEmpty(t, claims.ID)

	assert.NoError(t, s.Validate(context.Background(), tok))
}

func TestHMACSigner_UniqueTokenIDs(t *testing.T) {
	t.Parallel()

	s := newTestSigner(t, testutil.NewManualClock(t0))
	id := Identity{Username: fixtures.Bob}

	a, err := s.Sign(context.Background(), id)
	require.NoError(t, err)
	b, err := s.Sign(context.Background(), id)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHMACSigner_BlankSubject(t *testing.T) {
	t.Parallel()

	_, err := newTestSigner(t, nil).Sign(context.Background(), Identity{})
	testutil.AssertErrorCode(t, err, sserr.CodeValidationRequired)
}

func TestHMACSigner_Expired(t *testing.T) {
	t.Parallel()

	clock := testutil.NewManualClock(t0)
	s := newTestSigner(t, clock)
	tok, err := s.Sign(context.Background(), Identity{Username: fixtures.Alice})
	require.NoError(t, err)

	clock.Advance(DefaultTTL + DefaultLeeway - time.Second)
	require.NoError(t, s.Validate(context.Background(), tok), "still inside leeway")

	clock.Advance(2 * time.Second)
	err = s.Validate(context.Background(), tok)
	testutil.AssertErrorCode(t, err, sserr.CodeAuthenticationExpired)
	assert.Equal(t, 401, sserr.FromError(err).HTTPStatus())
}

func TestHMACSigner_Rejects(t *testing.T) {
	t.Parallel()

	clock := testutil.NewManualClock(t0)
	s := newTestSigner(t, clock)

	other := testConfig()
	other.SigningKey = "another-secret-0123456789abcdefghijklmn"
	foreignKey, err := NewHMACSigner(other)
	require.NoError(t, err)
	foreignKey.WithClock(clock.Now)

	other = testConfig()
	other.Issuer = "someone-else"
	foreignIssuer, err := NewHMACSigner(other)
	require.NoError(t, err)
	foreignIssuer.WithClock(clock.Now)

	sign := func(s *HMACSigner) string {
		tok, err := s.Sign(context.Background(), Identity{Username: fixtures.Alice})
		require.NoError(t, err)
		return tok
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": fixtures.Alice,
		"iss": fixtures.TestIssuer,
		"exp": t0.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": fixtures.Alice,
		"iss": fixtures.TestIssuer,
	}).SignedString([]byte(fixtures.TokenSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		code  sserr.Code
	}{
		{"empty", "", sserr.CodeAuthentication},
		{"garbage", "not-a-jwt", sserr.CodeAuthenticationInvalid},
		{"wrong key", sign(foreignKey), sserr.CodeAuthenticationInvalid},
		{"wrong issuer", sign(foreignIssuer), sserr.CodeAuthenticationInvalid},
		{"alg none", unsigned, sserr.CodeAuthenticationInvalid},
		{"missing exp", noExpiry, sserr.CodeAuthenticationInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			testutil.AssertErrorCode(t, s.Validate(context.Background(), tc.token), tc.code)
		})
	}
}

func TestNewHMACSigner_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SigningKey = "short"
	_, err := NewHMACSigner(cfg)
	testutil.AssertErrorCode(t, err, sserr.CodeValidation)
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, classifyError(nil))

	own := sserr.New(sserr.CodeInternal, "x")
	assert.Same(t, own, classifyError(own))

	assert.Equal(t, sserr.CodeAuthenticationExpired, classifyError(jwt.ErrTokenExpired).Code)
	assert.Equal(t, sserr.CodeAuthenticationInvalid, classifyError(jwt.ErrTokenNotValidYet).Code)
	assert.Equal(t, sserr.CodeAuthenticationInvalid, classifyError(errors.New("boom")).Code)
}

func TestHMACSigner_CreatesSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	s := newTestSigner(t, nil)
	tok, err := s.Sign(context.Background(), Identity{Username: fixtures.Alice})
	require.NoError(t, err)
	require.NoError(t, s.Validate(context.Background(), tok))
	require.Error(t, s.Validate(context.Background(), "bad"))

	_ = tp.ForceFlush(context.Background())
	var names []string
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}
	assert.Equal(t, []string{"token.Sign", "token.Validate", "token.Validate"}, names)
}

func TestSecret_Redacted(t *testing.T) {
	t.Parallel()

	s := Secret(fixtures.TokenSecret)
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", s.GoString())
	assert.Equal(t, fixtures.TokenSecret, s.Value())
	text, err := s.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]", string(text))
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := Config{SigningKey: fixtures.TokenSecret}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultConfig().Issuer, cfg.Issuer)
	assert.Equal(t, DefaultTTL, cfg.TTL)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing key", func(c *Config) { c.SigningKey = "" }},
		{"short ttl", func(c *Config) { c.TTL = time.Millisecond }},
		{"negative leeway", func(c *Config) { c.Leeway = -time.Second }},
		{"cache outlives token", func(c *Config) { c.CacheTTL = c.TTL }},
		{"negative cache size", func(c *Config) { c.CacheSize = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
