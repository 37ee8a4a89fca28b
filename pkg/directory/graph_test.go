package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/StricklySoft/stricklysoft-gateway/internal/testutil/fixtures"
	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
)

type mockGraph struct {
	mock.Mock
}

func (m *mockGraph) ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	args := m.Called(ctx, cypher, params)
	records, _ := args.Get(0).([]*neo4j.Record)
	return records, args.Error(1)
}

func (m *mockGraph) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	args := m.Called(ctx, cypher, params)
	records, _ := args.Get(0).([]*neo4j.Record)
	return records, args.Error(1)
}

func (m *mockGraph) Health(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func userRecord(disabled any, authorities any) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{"disabled", "authorities"},
		Values: []any{disabled, authorities},
	}
}

func TestGraph_UserAttributes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		records    []*neo4j.Record
		wantAuth   []string
		wantNil    bool
		disabled   bool
		notExists  bool
		flagAbsent bool
	}{
		{
			name:     "member of nested groups",
			records:  []*neo4j.Record{userRecord(false, []any{fixtures.GroupEveryone, fixtures.GroupAdmins})},
			wantAuth: []string{fixtures.GroupEveryone, fixtures.GroupAdmins},
		},
		{
			name:     "disabled",
			records:  []*neo4j.Record{userRecord(true, []any{})},
			wantAuth: []string{},
			disabled: true,
		},
		{
			name:       "disabled flag absent",
			records:    []*neo4j.Record{userRecord(nil, []any{"G"})},
			wantAuth:   []string{"G"},
			flagAbsent: true,
		},
		{
			name:       "no authorities column value",
			records:    []*neo4j.Record{userRecord(false, nil)},
			wantNil:    true,
			flagAbsent: false,
		},
		{
			name:      "missing user",
			records:   nil,
			wantAuth:  []string{},
			notExists: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := &mockGraph{}
			g.On("ExecuteRead", mock.Anything, userAttributesCypher, map[string]any{"username": fixtures.Alice}).
				Return(tt.records, nil)

			attrs, err := NewGraph(g).UserAttributes(context.Background(), fixtures.Alice)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, attrs.Authorities)
			} else {
				assert.Equal(t, tt.wantAuth, attrs.Authorities)
			}
			assert.Equal(t, tt.disabled, attrs.IsDisabled())
			assert.Equal(t, tt.notExists, attrs.IsNotExists())
			if tt.flagAbsent {
				assert.Nil(t, attrs.Disabled)
			}
		})
	}
}

func TestGraph_UserAttributes_BadTypes(t *testing.T) {
	t.Parallel()

	g := &mockGraph{}
	g.On("ExecuteRead", mock.Anything, mock.Anything, map[string]any{"username": "x"}).
		Return([]*neo4j.Record{userRecord("yes", []any{})}, nil)
	g.On("ExecuteRead", mock.Anything, mock.Anything, map[string]any{"username": "y"}).
		Return([]*neo4j.Record{userRecord(false, "GROUP")}, nil)

	_, err := NewGraph(g).UserAttributes(context.Background(), "x")
	assert.True(t, sserr.IsInternal(err))
	_, err = NewGraph(g).UserAttributes(context.Background(), "y")
	assert.True(t, sserr.IsInternal(err))
}

func TestGraph_UserAttributes_Error(t *testing.T) {
	t.Parallel()

	g := &mockGraph{}
	boom := sserr.Wrap(errors.New("session expired"), sserr.CodeInternalDatabase, "neo4j: transaction failed")
	g.On("ExecuteRead", mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)

	_, err := NewGraph(g).UserAttributes(context.Background(), fixtures.Alice)
	assert.ErrorIs(t, err, boom)
}

func TestGraph_CreateUserAndAvailable(t *testing.T) {
	t.Parallel()

	g := &mockGraph{}
	g.On("ExecuteWrite", mock.Anything, createUserCypher, map[string]any{"username": fixtures.NewHire}).
		Return(nil, nil)
	g.On("Health", mock.Anything).Return(nil).Once()
	g.On("Health", mock.Anything).Return(errors.New("down")).Once()

	dir := NewGraph(g)
	require.NoError(t, dir.CreateUser(context.Background(), fixtures.NewHire))
	assert.True(t, dir.Available(context.Background()))
	assert.False(t, dir.Available(context.Background()))
	g.AssertExpectations(t)
}
