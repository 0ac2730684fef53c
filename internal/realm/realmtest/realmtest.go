// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package realmtest provides lookups and fixture tables for testing realm decisions.
package realmtest

import (
	"context"

	"github.com/holomush/realmgate/internal/realm"
)

// Fixture realm configuration.
const (
	FixtureRealm = "realm1"
	FixtureRole  = "dynamic_user"
)

// Credentials is a CredentialLookup backed by a map of authid to ticket.
type Credentials map[string]string

// Ticket implements realm.CredentialLookup.
func (c Credentials) Ticket(_ context.Context, authid string) (string, bool, error) {
	t, ok := c[authid]
	return t, ok, nil
}

// Permissions is a PermissionLookup backed by resource -> authid -> permission.
type Permissions map[string]map[string]realm.Permission

// Permission implements realm.PermissionLookup.
func (p Permissions) Permission(_ context.Context, resource, authid string) (realm.Permission, bool, error) {
	perm, ok := p[resource][authid]
	return perm, ok, nil
}

// FailingLookup fails every lookup with Err.
type FailingLookup struct {
	Err error
}

// Ticket implements realm.CredentialLookup.
func (f FailingLookup) Ticket(_ context.Context, _ string) (string, bool, error) {
	return "", false, f.Err
}

// Permission implements realm.PermissionLookup.
func (f FailingLookup) Permission(_ context.Context, _, _ string) (realm.Permission, bool, error) {
	return realm.Permission{}, false, f.Err
}

// FixtureCredentials returns the reference credential table.
func FixtureCredentials() Credentials {
	return Credentials{
		"philippe": "torreton",
		"bob":      "dylan",
		"bastardo": "dentro",
		"john":     "butler",
	}
}

// FixturePermissions returns the reference permission table.
func FixturePermissions() Permissions {
	return Permissions{
		"topic1": {
			"philippe": {Subscribe: true, Publish: false},
			"bob":      {Subscribe: true, Publish: true},
			"bastardo": {Subscribe: true, Publish: false},
			"john":     {Subscribe: true, Publish: true},
		},
		"topic2": {
			"bob":  {Subscribe: true, Publish: true},
			"john": {Subscribe: true, Publish: true},
		},
	}
}

// Verify interfaces are satisfied.
var (
	_ realm.CredentialLookup = Credentials(nil)
	_ realm.PermissionLookup = Permissions(nil)
	_ realm.CredentialLookup = FailingLookup{}
	_ realm.PermissionLookup = FailingLookup{}
)
