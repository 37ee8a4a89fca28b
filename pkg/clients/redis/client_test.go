package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
)

// mockCmdable implements Cmdable with testify/mock.
type mockCmdable struct {
	mock.Mock
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	return m.Called(ctx, key).Get(0).(*redis.StringCmd)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	return m.Called(ctx, key, value, expiration).Get(0).(*redis.StatusCmd)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return m.Called(ctx, keys).Get(0).(*redis.IntCmd)
}

func (m *mockCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	return m.Called(ctx).Get(0).(*redis.StatusCmd)
}

func (m *mockCmdable) Close() error {
	return m.Called().Error(0)
}

func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return m.Called(ctx, script, keys, args).Get(0).(*redis.Cmd)
}

func (m *mockCmdable) EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	return m.Called(ctx, sha1, keys, args).Get(0).(*redis.Cmd)
}

func (m *mockCmdable) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return m.Called(ctx, script, keys, args).Get(0).(*redis.Cmd)
}

func (m *mockCmdable) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	return m.Called(ctx, sha1, keys, args).Get(0).(*redis.Cmd)
}

func (m *mockCmdable) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return m.Called(ctx, hashes).Get(0).(*redis.BoolSliceCmd)
}

func (m *mockCmdable) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	return m.Called(ctx, script).Get(0).(*redis.StringCmd)
}

func newStatusCmd(val string, err error) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

func newStringCmd(val string, err error) *redis.StringCmd {
	cmd := redis.NewStringCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

func newIntCmd(val int64, err error) *redis.IntCmd {
	cmd := redis.NewIntCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

func TestNewFromClient_NilConfig(t *testing.T) {
	t.Parallel()

	client := NewFromClient(&mockCmdable{}, nil)
	require.NotNil(t, client.config)
	assert.Equal(t, 0, client.dbIndex)
	assert.NotNil(t, client.tracer)
}

func TestClient_Get(t *testing.T) {
	t.Parallel()

	m := &mockCmdable{}
	m.On("Get", mock.Anything, "bucket:a").Return(newStringCmd("42", nil))
	m.On("Get", mock.Anything, "bucket:missing").Return(newStringCmd("", redis.Nil))
	m.On("Get", mock.Anything, "bucket:broken").Return(newStringCmd("", errors.New("conn reset")))
	client := NewFromClient(m, nil)

	val, err := client.Get(context.Background(), "bucket:a")
	require.NoError(t, err)
	assert.Equal(t, "42", val)

	_, err = client.Get(context.Background(), "bucket:missing")
	assert.True(t, sserr.IsNotFound(err))
	assert.ErrorIs(t, err, Nil)

	_, err = client.Get(context.Background(), "bucket:broken")
	assert.True(t, sserr.HasCode(err, sserr.CodeInternalDatabase))
	m.AssertExpectations(t)
}

func TestClient_SetAndDel(t *testing.T) {
	t.Parallel()

	m := &mockCmdable{}
	m.On("Set", mock.Anything, "k", "v", time.Minute).Return(newStatusCmd("OK", nil))
	m.On("Del", mock.Anything, []string{"k", "j"}).Return(newIntCmd(1, nil))
	client := NewFromClient(m, nil)

	require.NoError(t, client.Set(context.Background(), "k", "v", time.Minute))
	n, err := client.Del(context.Background(), "k", "j")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	m.AssertExpectations(t)
}

func TestClient_Set_Timeout(t *testing.T) {
	t.Parallel()

	m := &mockCmdable{}
	m.On("Set", mock.Anything, "k", "v", time.Duration(0)).
		Return(newStatusCmd("", context.DeadlineExceeded))
	client := NewFromClient(m, nil)

	err := client.Set(context.Background(), "k", "v", 0)
	assert.True(t, sserr.IsTimeout(err))
	assert.True(t, sserr.IsRetryable(err))
}

func TestClient_RunScript(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client := NewFromClient(rdb, nil)
	t.Cleanup(func() { _ = client.Close() })

	script := redis.NewScript(`return redis.call('INCRBY', KEYS[1], ARGV[1])`)

	val, err := client.RunScript(context.Background(), script, []string{"counter"}, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), val)

	val, err = client.RunScript(context.Background(), script, []string{"counter"}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(7), val)
}

func TestClient_RunScript_Error(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	t.Cleanup(func() { _ = client.Close() })

	script := redis.NewScript(`return redis.error_reply('boom')`)
	_, err := client.RunScript(context.Background(), script, []string{"k"})
	assert.True(t, sserr.HasCode(err, sserr.CodeInternalDatabase))
}

func TestClient_Health(t *testing.T) {
	t.Parallel()

	ok := &mockCmdable{}
	ok.On("Ping", mock.Anything).Return(newStatusCmd("PONG", nil))
	assert.NoError(t, NewFromClient(ok, nil).Health(context.Background()))

	down := &mockCmdable{}
	down.On("Ping", mock.Anything).Return(newStatusCmd("", errors.New("refused")))
	err := NewFromClient(down, nil).Health(context.Background())
	assert.True(t, sserr.HasCode(err, sserr.CodeUnavailableDependency))
}

func TestClient_Health_AppliesDefaultTimeout(t *testing.T) {
	t.Parallel()

	m := &mockCmdable{}
	m.On("Ping", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})).Return(newStatusCmd("PONG", nil))

	require.NoError(t, NewFromClient(m, nil).Health(context.Background()))
	m.AssertExpectations(t)
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, wrapError(nil, "x"))
	assert.Equal(t, sserr.CodeTimeoutDatabase, wrapError(context.DeadlineExceeded, "x").Code)
	assert.Equal(t, sserr.CodeInternalDatabase, wrapError(context.Canceled, "x").Code)
	assert.Equal(t, sserr.CodeInternalDatabase, wrapError(errors.New("x"), "x").Code)
}
