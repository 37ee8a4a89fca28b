//go:build integration

// Run with:
//
//	go test -v -race -tags=integration ./pkg/directory/...
package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/StricklySoft/stricklysoft-gateway/internal/testutil/containers"
	"github.com/StricklySoft/stricklysoft-gateway/internal/testutil/fixtures"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/clients/neo4j"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/clients/postgres"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/directory"
)

// PostgresDirectorySuite shares one PostgreSQL container across its
// tests. Each test gets freshly migrated, truncated tables.
type PostgresDirectorySuite struct {
	suite.Suite

	ctx    context.Context
	pg     *containers.PostgresResult
	client *postgres.Client
	dir    *directory.Postgres
}

func TestPostgresDirectorySuite(t *testing.T) {
	suite.Run(t, new(PostgresDirectorySuite))
}

func (s *PostgresDirectorySuite) SetupSuite() {
	s.ctx = context.Background()

	pg, err := containers.StartPostgres(s.ctx)
	s.Require().NoError(err, "failed to start postgres container")
	s.pg = pg

	s.client, err = postgres.NewClient(s.ctx, postgres.Config{URI: pg.ConnString, MaxConns: 5, MinConns: 1})
	s.Require().NoError(err)

	s.dir = directory.NewPostgres(s.client)
	s.Require().NoError(s.dir.Migrate(s.ctx))
}

func (s *PostgresDirectorySuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
	if s.pg != nil {
		if err := s.pg.Container.Terminate(s.ctx); err != nil {
			s.T().Logf("failed to terminate postgres container: %v", err)
		}
	}
}

func (s *PostgresDirectorySuite) SetupTest() {
	// Migrate is idempotent; running it again must not fail.
	s.Require().NoError(s.dir.Migrate(s.ctx))
	_, err := s.client.Exec(s.ctx, `TRUNCATE user_authorities, users`)
	s.Require().NoError(err)

	_, err = s.client.Exec(s.ctx, `INSERT INTO users (username, disabled) VALUES ($1, false), ($2, true)`,
		fixtures.Alice, fixtures.Suspended)
	s.Require().NoError(err)
	_, err = s.client.Exec(s.ctx, `INSERT INTO user_authorities (username, authority) VALUES ($1, $2), ($1, $3)`,
		fixtures.Alice, fixtures.GroupSales, fixtures.GroupEveryone)
	s.Require().NoError(err)
}

func (s *PostgresDirectorySuite) TestExistingUser() {
	attrs, err := s.dir.UserAttributes(s.ctx, fixtures.Alice)
	s.Require().NoError(err)
	s.Equal([]string{fixtures.GroupEveryone, fixtures.GroupSales}, attrs.Authorities)
	s.False(attrs.IsDisabled())
}

func (s *PostgresDirectorySuite) TestDisabledUser() {
	attrs, err := s.dir.UserAttributes(s.ctx, fixtures.Suspended)
	s.Require().NoError(err)
	s.True(attrs.IsDisabled())
	s.Empty(attrs.Authorities)
}

func (s *PostgresDirectorySuite) TestCreateIsIdempotent() {
	attrs, err := s.dir.UserAttributes(s.ctx, fixtures.NewHire)
	s.Require().NoError(err)
	s.True(attrs.IsNotExists())

	s.Require().NoError(s.dir.CreateUser(s.ctx, fixtures.NewHire))
	s.Require().NoError(s.dir.CreateUser(s.ctx, fixtures.NewHire))

	attrs, err = s.dir.UserAttributes(s.ctx, fixtures.NewHire)
	s.Require().NoError(err)
	s.False(attrs.IsNotExists())
}

func (s *PostgresDirectorySuite) TestAvailable() {
	s.True(s.dir.Available(s.ctx))
}

func TestGraphDirectory_Integration(t *testing.T) {
	ctx := context.Background()

	n4j, err := containers.StartNeo4j(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		if termErr := n4j.Container.Terminate(ctx); termErr != nil {
			t.Logf("failed to terminate neo4j container: %v", termErr)
		}
	})

	client, err := neo4j.NewClient(ctx, neo4j.Config{
		URI:      n4j.BoltURL,
		Username: n4j.Username,
		Password: neo4j.Secret(n4j.Password),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(ctx) })

	_, err = client.ExecuteWrite(ctx, `
CREATE (a:User {username: $alice, disabled: false})
CREATE (s:User {username: $suspended, disabled: true})
CREATE (sales:Group {name: $sales})
CREATE (everyone:Group {name: $everyone})
CREATE (a)-[:MEMBER_OF]->(sales)-[:MEMBER_OF]->(everyone)`, map[string]any{
		"alice":     fixtures.Alice,
		"suspended": fixtures.Suspended,
		"sales":     fixtures.GroupSales,
		"everyone":  fixtures.GroupEveryone,
	})
	require.NoError(t, err)

	dir := directory.NewGraph(client)

	attrs, err := dir.UserAttributes(ctx, fixtures.Alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{fixtures.GroupSales, fixtures.GroupEveryone}, attrs.Authorities)

	attrs, err = dir.UserAttributes(ctx, fixtures.Suspended)
	require.NoError(t, err)
	assert.True(t, attrs.IsDisabled())

	attrs, err = dir.UserAttributes(ctx, fixtures.NewHire)
	require.NoError(t, err)
	assert.True(t, attrs.IsNotExists())

	require.NoError(t, dir.CreateUser(ctx, fixtures.NewHire))
	attrs, err = dir.UserAttributes(ctx, fixtures.NewHire)
	require.NoError(t, err)
	assert.False(t, attrs.IsNotExists())
	assert.Empty(t, attrs.Authorities)

	assert.True(t, dir.Available(ctx))
}
