package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
)

// Schema creates the tables the PostgreSQL directory reads.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    username TEXT PRIMARY KEY,
    disabled BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS user_authorities (
    username  TEXT NOT NULL REFERENCES users (username) ON DELETE CASCADE,
    authority TEXT NOT NULL,
    PRIMARY KEY (username, authority)
);`

const (
	selectUserSQL        = `SELECT disabled FROM users WHERE username = $1`
	selectAuthoritiesSQL = `SELECT authority FROM user_authorities WHERE username = $1 ORDER BY authority`
	insertUserSQL        = `INSERT INTO users (username) VALUES ($1) ON CONFLICT (username) DO NOTHING`
)

// SQLClient is the part of the postgres client the directory needs.
type SQLClient interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Health(ctx context.Context) error
}

// Postgres reads users and their authority grants from two tables; see
// [Schema].
type Postgres struct {
	client SQLClient
}

var _ Directory = (*Postgres)(nil)

// NewPostgres returns a directory over client.
func NewPostgres(client SQLClient) *Postgres {
	return &Postgres{client: client}
}

// Migrate creates the directory tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.client.Exec(ctx, Schema)
	return err
}

// UserAttributes implements Directory.
func (p *Postgres) UserAttributes(ctx context.Context, username string) (Attributes, error) {
	var disabled bool
	err := p.client.QueryRow(ctx, selectUserSQL, username).Scan(&disabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return Missing(), nil
	}
	if err != nil {
		return Attributes{}, sserr.Wrapf(err, sserr.CodeInternalDatabase, "directory: failed to load user %q", username)
	}

	rows, err := p.client.Query(ctx, selectAuthoritiesSQL, username)
	if err != nil {
		return Attributes{}, err
	}
	authorities, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return Attributes{}, sserr.Wrapf(err, sserr.CodeInternalDatabase, "directory: failed to load authorities of %q", username)
	}
	return Found(disabled, authorities...), nil
}

// CreateUser implements Directory.
func (p *Postgres) CreateUser(ctx context.Context, username string) error {
	_, err := p.client.Exec(ctx, insertUserSQL, username)
	return err
}

// Available implements Directory.
func (p *Postgres) Available(ctx context.Context) bool {
	return p.client.Health(ctx) == nil
}
