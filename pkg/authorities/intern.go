package authorities

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Interner returns one canonical instance per distinct string so that
// thousands of cached users share their authority strings. It holds at
// most size strings; evicted values simply stop being shared.
type Interner struct {
	pool *lru.Cache[string, string]
}

// NewInterner returns an Interner bounded to size entries.
func NewInterner(size int) *Interner {
	pool, err := lru.New[string, string](size)
	if err != nil {
		// Only a non-positive size fails.
		pool, _ = lru.New[string, string](DefaultInternCapacity)
	}
	return &Interner{pool: pool}
}

// Intern returns the canonical instance equal to s.
func (i *Interner) Intern(s string) string {
	if v, ok := i.pool.Get(s); ok {
		return v
	}
	if prev, ok, _ := i.pool.PeekOrAdd(s, s); ok {
		return prev
	}
	return s
}

// InternAll interns every element of ss in place and returns ss.
func (i *Interner) InternAll(ss []string) []string {
	for idx, s := range ss {
		ss[idx] = i.Intern(s)
	}
	return ss
}

// Len reports how many strings are pooled.
func (i *Interner) Len() int { return i.pool.Len() }
