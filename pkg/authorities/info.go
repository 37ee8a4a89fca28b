package authorities

import (
	"maps"
	"slices"
)

const (
	// RoleUser is granted to every resolved user.
	RoleUser = "ROLE_USER"
	// RoleAdmin is granted when the storage admin marker is present.
	RoleAdmin = "ROLE_ADMIN"
)

// UserAuthInfo is a resolved snapshot of one user. Values are shared
// between cache readers and must not be modified; Authorities is sorted
// and free of duplicates.
type UserAuthInfo struct {
	Authorities []string
	Disabled    bool
	NotExists   bool
}

// Augment canonicalises raw directory authorities: duplicates are dropped,
// RoleAdmin is added when adminMarker is non-empty and present, RoleUser is
// always added, and the result is sorted. Augment(Augment(x)) == Augment(x).
func Augment(raw []string, adminMarker string) []string {
	set := make(map[string]struct{}, len(raw)+2)
	for _, a := range raw {
		if a != "" {
			set[a] = struct{}{}
		}
	}
	if adminMarker != "" {
		if _, ok := set[adminMarker]; ok {
			set[RoleAdmin] = struct{}{}
		}
	}
	set[RoleUser] = struct{}{}
	return slices.Sorted(maps.Keys(set))
}
