package directory

import (
	"context"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
)

// MemoryUser is one seeded record.
type MemoryUser struct {
	Username    string   `yaml:"username"`
	Disabled    bool     `yaml:"disabled"`
	Authorities []string `yaml:"authorities"`
}

// Memory is a process-local directory. It backs development setups and
// tests: availability can be toggled and every call is counted.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]MemoryUser
	available atomic.Bool
	lookupErr error

	lookups atomic.Int64
	creates atomic.Int64
	probes  atomic.Int64

	// DefaultAuthorities are granted to users created via CreateUser.
	DefaultAuthorities []string
}

var _ Directory = (*Memory)(nil)

// NewMemory returns an available directory seeded with users.
func NewMemory(users ...MemoryUser) *Memory {
	m := &Memory{users: make(map[string]MemoryUser, len(users))}
	m.available.Store(true)
	for _, u := range users {
		m.users[u.Username] = u
	}
	return m
}

// LoadMemory reads a YAML list of users:
//
//	users:
//	  - username: alice
//	    authorities: [GROUP_EVERYONE]
//	  - username: bob
//	    disabled: true
func LoadMemory(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeInternalConfiguration, "directory: failed to read %q", path)
	}
	var doc struct {
		Users []MemoryUser `yaml:"users"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeInternalConfiguration, "directory: failed to parse %q", path)
	}
	return NewMemory(doc.Users...), nil
}

// UserAttributes implements Directory.
func (m *Memory) UserAttributes(ctx context.Context, username string) (Attributes, error) {
	m.lookups.Add(1)
	if err := ctx.Err(); err != nil {
		return Attributes{}, err
	}
	if !m.available.Load() {
		return Attributes{}, sserr.Unavailable("directory: memory backend is offline")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lookupErr != nil {
		return Attributes{}, m.lookupErr
	}
	u, ok := m.users[username]
	if !ok {
		return Missing(), nil
	}
	return Found(u.Disabled, slices.Clone(u.Authorities)...), nil
}

// CreateUser implements Directory.
func (m *Memory) CreateUser(ctx context.Context, username string) error {
	m.creates.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.available.Load() {
		return sserr.Unavailable("directory: memory backend is offline")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; !ok {
		m.users[username] = MemoryUser{Username: username, Authorities: slices.Clone(m.DefaultAuthorities)}
	}
	return nil
}

// Available implements Directory.
func (m *Memory) Available(context.Context) bool {
	m.probes.Add(1)
	return m.available.Load()
}

// Put inserts or replaces a user.
func (m *Memory) Put(u MemoryUser) {
	m.mu.Lock()
	m.users[u.Username] = u
	m.mu.Unlock()
}

// SetAvailable toggles the backend online or offline.
func (m *Memory) SetAvailable(v bool) { m.available.Store(v) }

// FailLookups makes every lookup return err while the backend still
// reports itself available. Pass nil to clear.
func (m *Memory) FailLookups(err error) {
	m.mu.Lock()
	m.lookupErr = err
	m.mu.Unlock()
}

// Lookups returns how many UserAttributes calls were made.
func (m *Memory) Lookups() int64 { return m.lookups.Load() }

// Creates returns how many CreateUser calls were made.
func (m *Memory) Creates() int64 { return m.creates.Load() }

// Probes returns how many Available calls were made.
func (m *Memory) Probes() int64 { return m.probes.Load() }
