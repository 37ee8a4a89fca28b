// Package directory defines the user directory the gateway resolves
// identities against, with in-memory, PostgreSQL and Neo4j backends.
//
// A directory answers three questions: what does it know about a user,
// can it create one, and is it reachable right now. Lookups may fail or
// hang while the backend is down; retry policy belongs to the caller.
package directory

import (
	"context"
)

// Attributes is the raw answer for one username. Every field may be
// absent: a nil Authorities slice means the directory returned nothing,
// a nil flag means the directory did not say.
type Attributes struct {
	Authorities []string
	Disabled    *bool
	NotExists   *bool
}

// IsDisabled reports the Disabled flag, treating absence as false.
func (a Attributes) IsDisabled() bool {
	return a.Disabled != nil && *a.Disabled
}

// IsNotExists reports the NotExists flag, treating absence as false.
func (a Attributes) IsNotExists() bool {
	return a.NotExists != nil && *a.NotExists
}

// Directory is the backing user store.
type Directory interface {
	// UserAttributes looks username up. A missing user is reported through
	// NotExists, not through an error.
	UserAttributes(ctx context.Context, username string) (Attributes, error)

	// CreateUser provisions username. Creating an existing user is not an
	// error.
	CreateUser(ctx context.Context, username string) error

	// Available probes the backend without touching user data.
	Available(ctx context.Context) bool
}

// Found builds Attributes for an existing user.
func Found(disabled bool, authorities ...string) Attributes {
	if authorities == nil {
		authorities = []string{}
	}
	return Attributes{Authorities: authorities, Disabled: &disabled, NotExists: ptr(false)}
}

// Missing builds Attributes for an unknown user.
func Missing() Attributes {
	return Attributes{Authorities: []string{}, Disabled: ptr(false), NotExists: ptr(true)}
}

func ptr[T any](v T) *T { return &v }
