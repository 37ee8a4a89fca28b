package directory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StricklySoft/stricklysoft-gateway/internal/testutil/fixtures"
	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
)

func TestMemory_UserAttributes(t *testing.T) {
	t.Parallel()

	m := NewMemory(
		MemoryUser{Username: fixtures.Alice, Authorities: []string{fixtures.GroupEveryone}},
		MemoryUser{Username: fixtures.Suspended, Disabled: true},
	)
	ctx := context.Background()

	attrs, err := m.UserAttributes(ctx, fixtures.Alice)
	require.NoError(t, err)
	assert.Equal(t, []string{fixtures.GroupEveryone}, attrs.Authorities)
	assert.False(t, attrs.IsDisabled())
	assert.False(t, attrs.IsNotExists())

	attrs, err = m.UserAttributes(ctx, fixtures.Suspended)
	require.NoError(t, err)
	assert.True(t, attrs.IsDisabled())

	attrs, err = m.UserAttributes(ctx, "nobody")
	require.NoError(t, err)
	assert.True(t, attrs.IsNotExists())
	assert.Empty(t, attrs.Authorities)

	assert.Equal(t, int64(3), m.Lookups())
}

func TestMemory_ReturnsCopies(t *testing.T) {
	t.Parallel()

	m := NewMemory(MemoryUser{Username: fixtures.Alice, Authorities: []string{"A"}})
	attrs, err := m.UserAttributes(context.Background(), fixtures.Alice)
	require.NoError(t, err)
	attrs.Authorities[0] = "MUTATED"

	attrs, err = m.UserAttributes(context.Background(), fixtures.Alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, attrs.Authorities)
}

func TestMemory_Offline(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.SetAvailable(false)

	assert.False(t, m.Available(context.Background()))
	_, err := m.UserAttributes(context.Background(), fixtures.Alice)
	assert.True(t, sserr.IsUnavailable(err))
	assert.True(t, sserr.IsUnavailable(m.CreateUser(context.Background(), fixtures.Alice)))

	m.SetAvailable(true)
	assert.True(t, m.Available(context.Background()))
	assert.Equal(t, int64(2), m.Probes())
}

func TestMemory_FailLookups(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	boom := errors.New("query failed")
	m.FailLookups(boom)

	_, err := m.UserAttributes(context.Background(), fixtures.Alice)
	assert.ErrorIs(t, err, boom)

	m.FailLookups(nil)
	_, err = m.UserAttributes(context.Background(), fixtures.Alice)
	assert.NoError(t, err)
}

func TestMemory_CreateUser(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.DefaultAuthorities = []string{fixtures.GroupEveryone}
	ctx := context.Background()

	require.NoError(t, m.CreateUser(ctx, fixtures.NewHire))
	require.NoError(t, m.CreateUser(ctx, fixtures.NewHire))

	attrs, err := m.UserAttributes(ctx, fixtures.NewHire)
	require.NoError(t, err)
	assert.False(t, attrs.IsNotExists())
	assert.Equal(t, []string{fixtures.GroupEveryone}, attrs.Authorities)
	assert.Equal(t, int64(2), m.Creates())
}

func TestMemory_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().UserAttributes(ctx, fixtures.Alice)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadMemory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "users.yaml")
	content := `users:
  - username: alice
    authorities: [GROUP_EVERYONE, GROUP_SALES]
  - username: bob
    disabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	m, err := LoadMemory(path)
	require.NoError(t, err)

	attrs, err := m.UserAttributes(context.Background(), fixtures.Alice)
	require.NoError(t, err)
	assert.Equal(t, []string{fixtures.GroupEveryone, fixtures.GroupSales}, attrs.Authorities)

	attrs, err = m.UserAttributes(context.Background(), fixtures.Bob)
	require.NoError(t, err)
	assert.True(t, attrs.IsDisabled())

	_, err = LoadMemory(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, sserr.HasCode(err, sserr.CodeInternalConfiguration))
}

func TestAttributes_Absent(t *testing.T) {
	t.Parallel()

	var attrs Attributes
	assert.False(t, attrs.IsDisabled())
	assert.False(t, attrs.IsNotExists())
	assert.Nil(t, attrs.Authorities)

	assert.NotNil(t, Found(false).Authorities)
}
