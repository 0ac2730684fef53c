// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tables

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/realmgate/internal/realm"
)

// ErrNotFound is returned by sources when a requested table does not exist.
var ErrNotFound = errors.New("not found")

// PermissionEntry is the provisioned subscribe/publish grant for one identity.
type PermissionEntry struct {
	Subscribe bool `yaml:"subscribe" json:"subscribe,omitempty" jsonschema:"description=Identity may subscribe to the topic"`
	Publish   bool `yaml:"publish" json:"publish,omitempty" jsonschema:"description=Identity may publish to the topic"`
}

// Tables is the raw provisioning data for one realm.
type Tables struct {
	// Credentials maps authid to ticket.
	Credentials map[string]string `yaml:"credentials" json:"credentials" jsonschema:"description=authid to ticket"`
	// Permissions maps resource URI (or pattern) to authid to grants.
	Permissions map[string]map[string]PermissionEntry `yaml:"permissions" json:"permissions,omitempty" jsonschema:"description=resource URI to authid to grants"`
}

// Source loads Tables from a provisioning backend.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string
	// Load returns a fresh copy of the tables.
	Load(ctx context.Context) (Tables, error)
}

// compiledPattern is a wildcard resource key and its grants.
type compiledPattern struct {
	pattern string
	glob    glob.Glob
	grants  map[string]realm.Permission
}

// Snapshot is an immutable, indexed view of Tables.
// It is safe for concurrent reads without locking.
type Snapshot struct {
	credentials map[string]string
	exact       map[string]map[string]realm.Permission
	patterns    []compiledPattern
	source      string
	createdAt   time.Time
}

// emptySnapshot denies everything.
func emptySnapshot() *Snapshot {
	return &Snapshot{
		credentials: map[string]string{},
		exact:       map[string]map[string]realm.Permission{},
	}
}

// NewSnapshot validates t and builds a Snapshot from it.
// The snapshot owns copies of all maps; later changes to t are not observed.
func NewSnapshot(source string, t Tables) (*Snapshot, error) {
	snap := &Snapshot{
		credentials: make(map[string]string, len(t.Credentials)),
		exact:       make(map[string]map[string]realm.Permission, len(t.Permissions)),
		source:      source,
		createdAt:   time.Now(),
	}

	for authid, ticket := range t.Credentials {
		if authid == "" {
			return nil, oops.In("tables").Code("TABLES_INVALID").With("source", source).
				Errorf("credential with empty authid")
		}
		snap.credentials[authid] = ticket
	}

	for resource, byID := range t.Permissions {
		if resource == "" {
			return nil, oops.In("tables").Code("TABLES_INVALID").With("source", source).
				Errorf("permission entry with empty resource")
		}
		grants := make(map[string]realm.Permission, len(byID))
		for authid, entry := range byID {
			if authid == "" {
				return nil, oops.In("tables").Code("TABLES_INVALID").
					With("source", source).With("resource", resource).
					Errorf("permission entry with empty authid")
			}
			grants[authid] = realm.Permission{Subscribe: entry.Subscribe, Publish: entry.Publish}
		}

		if !IsPattern(resource) {
			snap.exact[resource] = grants
			continue
		}
		g, err := glob.Compile(resource, '.')
		if err != nil {
			return nil, oops.In("tables").Code("TABLES_INVALID_PATTERN").
				With("source", source).With("pattern", resource).Wrap(err)
		}
		snap.patterns = append(snap.patterns, compiledPattern{pattern: resource, glob: g, grants: grants})
	}

	// Longest pattern first; ties broken lexically so evaluation is deterministic.
	sort.Slice(snap.patterns, func(i, j int) bool {
		pi, pj := snap.patterns[i].pattern, snap.patterns[j].pattern
		if len(pi) != len(pj) {
			return len(pi) > len(pj)
		}
		return pi < pj
	})

	return snap, nil
}

// IsPattern reports whether a resource key contains glob metacharacters.
func IsPattern(resource string) bool {
	return strings.ContainsAny(resource, "*?[{")
}

// Ticket implements realm.CredentialLookup.
func (s *Snapshot) Ticket(_ context.Context, authid string) (string, bool, error) {
	t, ok := s.credentials[authid]
	return t, ok, nil
}

// Permission implements realm.PermissionLookup.
func (s *Snapshot) Permission(_ context.Context, resource, authid string) (realm.Permission, bool, error) {
	grants, ok := s.exact[resource]
	if !ok {
		grants = s.matchPattern(resource)
	}
	if grants == nil {
		return realm.Permission{}, false, nil
	}
	perm, ok := grants[authid]
	return perm, ok, nil
}

func (s *Snapshot) matchPattern(resource string) map[string]realm.Permission {
	for _, p := range s.patterns {
		if p.glob.Match(resource) {
			return p.grants
		}
	}
	return nil
}

// Identities returns the number of credentials in the snapshot.
func (s *Snapshot) Identities() int {
	return len(s.credentials)
}

// Resources returns the number of exact and pattern resource keys.
func (s *Snapshot) Resources() int {
	return len(s.exact) + len(s.patterns)
}

// Source returns the name of the source the snapshot was loaded from.
func (s *Snapshot) Source() string {
	return s.source
}

// CreatedAt returns when the snapshot was built.
func (s *Snapshot) CreatedAt() time.Time {
	return s.createdAt
}

// Verify interfaces are satisfied.
var (
	_ realm.CredentialLookup = (*Snapshot)(nil)
	_ realm.PermissionLookup = (*Snapshot)(nil)
)
