package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/StricklySoft/stricklysoft-gateway/internal/testutil/fixtures"
)

func TestRequestContext_RoundTrip(t *testing.T) {
	t.Parallel()

	rc := RequestContext{
		Username:       fixtures.Alice,
		Authorities:    []string{fixtures.GroupEveryone, fixtures.RoleUser},
		TimezoneOffset: 180,
		Locale:         "ru",
		RealIP:         "10.0.0.7",
	}
	ctx := WithRequestContext(context.Background(), rc)

	got, ok := RequestContextFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, rc, got)
	assert.Equal(t, rc, MustRequestContext(ctx))
}

func TestRequestContext_Absent(t *testing.T) {
	t.Parallel()

	_, ok := RequestContextFromContext(context.Background())
	assert.False(t, ok)
	assert.Panics(t, func() { MustRequestContext(context.Background()) })
}

func TestRequestContext_SurvivesGoroutineHandOff(t *testing.T) {
	t.Parallel()

	ctx := WithRequestContext(context.Background(), RequestContext{Username: fixtures.Bob})
	got := make(chan string, 1)
	go func(ctx context.Context) {
		got <- MustRequestContext(ctx).Username
	}(ctx)
	assert.Equal(t, fixtures.Bob, <-got)
}

func TestRequestContext_Helpers(t *testing.T) {
	t.Parallel()

	assert.True(t, RequestContext{}.Anonymous())

	rc := RequestContext{Username: fixtures.Alice, Authorities: []string{fixtures.GroupAdmins, fixtures.RoleAdmin}}
	assert.False(t, rc.Anonymous())
	assert.True(t, rc.HasAuthority(fixtures.RoleAdmin))
	assert.False(t, rc.HasAuthority(fixtures.GroupSales))
}

func TestTraceIDFromContext(t *testing.T) {
	t.Parallel()

	_, ok := TraceIDFromContext(context.Background())
	assert.False(t, ok)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	id, ok := TraceIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, span.SpanContext().TraceID().String(), id)
	assert.Len(t, id, 32)
}
