// Package token mints the credentials the gateway attaches to forwarded
// requests. A [Signer] produces and checks signed tokens; an [Issuer]
// caches them per identity so a burst of requests from one user signs
// once.
//
//	signer, err := token.NewHMACSigner(cfg)
//	if err != nil {
//	    return err
//	}
//	issuer := token.NewIssuer(signer, cfg)
//	bearer, err := issuer.Credential(ctx, token.Identity{Username: "alice", Authorities: auth})
package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
)

const tracerName = "github.com/StricklySoft/stricklysoft-gateway/pkg/token"

// Identity is the subject a token is minted for.
type Identity struct {
	Username    string
	Authorities []string
}

// Signer mints and checks tokens. Implementations must be safe for
// concurrent use.
type Signer interface {
	Sign(ctx context.Context, id Identity) (string, error)
	Validate(ctx context.Context, token string) error
}

// Claims is the payload of a gateway token.
type Claims struct {
	Authorities []string `json:"auth"`
	jwt.RegisteredClaims
}

// HMACSigner signs HS256 JWTs with a shared key.
type HMACSigner struct {
	key    []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
	tracer trace.Tracer
}

var _ Signer = (*HMACSigner)(nil)

// NewHMACSigner returns a signer for cfg.
//
// Errors: VAL_001 when cfg is invalid.
func NewHMACSigner(cfg Config) (*HMACSigner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, sserr.Wrap(err, sserr.CodeValidation, "token: invalid configuration")
	}
	return &HMACSigner{
		key:    []byte(cfg.SigningKey.Value()),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		leeway: cfg.Leeway,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// WithClock replaces time.Now for issue and expiry times.
func (s *HMACSigner) WithClock(now func() time.Time) *HMACSigner {
	s.now = now
	return s
}

// Sign mints a token for id valid for the configured TTL.
//
// Errors: VAL_002 for a blank username, INT_001 when signing fails.
func (s *HMACSigner) Sign(ctx context.Context, id Identity) (string, error) {
	_, span := startSpan(ctx, s.tracer, "token.Sign")
	span.SetAttributes(attribute.String("token.subject", id.Username))

	if id.Username == "" {
		err := sserr.New(sserr.CodeValidationRequired, "token: subject is required")
		finishSpan(span, err)
		return "", err
	}

	now := s.now()
	claims := Claims{
		Authorities: append([]string{}, id.Authorities...),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		serr := sserr.Wrap(err, sserr.CodeInternal, "token: signing failed")
		finishSpan(span, serr)
		return "", serr
	}
	finishSpan(span, nil)
	return signed, nil
}

// Validate checks the signature, issuer and expiry of token.
//
// Errors: AUTH_001 for an empty token, AUTH_002 when expired, AUTH_003 for
// anything else wrong with it.
func (s *HMACSigner) Validate(ctx context.Context, token string) error {
	_, err := s.Parse(ctx, token)
	return err
}

// Parse validates token and returns its claims.
func (s *HMACSigner) Parse(ctx context.Context, token string) (*Claims, error) {
	_, span := startSpan(ctx, s.tracer, "token.Validate")

	if token == "" {
		err := sserr.Unauthorized("token: token is empty")
		finishSpan(span, err)
		return nil, err
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		serr := classifyError(err)
		finishSpan(span, serr)
		return nil, serr
	}
	span.SetAttributes(attribute.String("token.subject", claims.Subject))
	finishSpan(span, nil)
	return claims, nil
}

func classifyError(err error) *sserr.Error {
	if err == nil {
		return nil
	}
	var ssErr *sserr.Error
	if errors.As(err, &ssErr) {
		return ssErr
	}
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return sserr.Wrap(err, sserr.CodeAuthenticationExpired, "token: token has expired")
	case errors.Is(err, jwt.ErrTokenMalformed):
		return sserr.Wrap(err, sserr.CodeAuthenticationInvalid, "token: token is malformed")
	case errors.Is(err, jwt.ErrSignatureInvalid):
		return sserr.Wrap(err, sserr.CodeAuthenticationInvalid, "token: token signature is invalid")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return sserr.Wrap(err, sserr.CodeAuthenticationInvalid, "token: token is unverifiable")
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return sserr.Wrap(err, sserr.CodeAuthenticationInvalid, "token: token is not yet valid")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return sserr.Wrap(err, sserr.CodeAuthenticationInvalid, "token: token issuer is invalid")
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing), errors.Is(err, jwt.ErrTokenInvalidClaims):
		return sserr.Wrap(err, sserr.CodeAuthenticationInvalid, "token: token claims are invalid")
	}
	return sserr.Wrap(err, sserr.CodeAuthenticationInvalid, "token: token validation failed")
}

func startSpan(ctx context.Context, tracer trace.Tracer, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
