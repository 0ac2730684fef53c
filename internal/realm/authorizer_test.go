// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package realm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/realmgate/internal/realm"
	"github.com/holomush/realmgate/internal/realm/realmtest"
	"github.com/holomush/realmgate/pkg/errutil"
)

func newFixtureAuthorizer(t *testing.T, opts ...realm.AuthorizerOption) *realm.Authorizer {
	t.Helper()
	z, err := realm.NewAuthorizer(realmtest.FixturePermissions(), opts...)
	require.NoError(t, err)
	return z
}

func session(authid string) realm.Session {
	return realm.Session{AuthID: authid, AuthRole: realmtest.FixtureRole}
}

func TestAuthorizer_ReferenceScenario(t *testing.T) {
	z := newFixtureAuthorizer(t)
	ctx := context.Background()

	d, err := z.Authorize(ctx, session("bob"), "topic1", realm.ActionPublish)
	require.NoError(t, err)
	assert.Equal(t, realm.Decision{Allow: true, Disclose: true}, d)

	d, err = z.Authorize(ctx, session("philippe"), "topic1", realm.ActionPublish)
	require.NoError(t, err)
	assert.Equal(t, realm.Decision{Allow: false, Disclose: true}, d)

	d, err = z.Authorize(ctx, session("philippe"), "topic1", realm.ActionSubscribe)
	require.NoError(t, err)
	assert.Equal(t, realm.Decision{Allow: true, Disclose: true}, d)
}

func TestAuthorizer_DefaultDeny(t *testing.T) {
	z := newFixtureAuthorizer(t)

	tests := []struct {
		name     string
		authid   string
		resource string
	}{
		{"unknown resource", "bob", "topic3"},
		{"unknown identity on known resource", "nobody", "topic1"},
		{"identity absent from resource", "philippe", "topic2"},
		{"empty identity", "", "topic1"},
		{"empty resource", "bob", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, action := range []realm.Action{realm.ActionSubscribe, realm.ActionPublish} {
				d, err := z.Authorize(context.Background(), session(tt.authid), tt.resource, action)
				require.NoError(t, err)
				assert.False(t, d.Allow, "%s must be denied", action)
				assert.True(t, d.Disclose)
			}
		})
	}
}

func TestAuthorizer_CallAlwaysAllowedWithDisclosure(t *testing.T) {
	z := newFixtureAuthorizer(t)

	for _, authid := range []string{"bob", "philippe", "nobody", ""} {
		for _, resource := range []string{"topic1", "com.example.add", ""} {
			d, err := z.Authorize(context.Background(), session(authid), resource, realm.ActionCall)
			require.NoError(t, err)
			assert.Equal(t, realm.Decision{Allow: true, Disclose: true}, d, "authid=%q resource=%q", authid, resource)
		}
	}
}

func TestAuthorizer_RegisterAlwaysDenied(t *testing.T) {
	z := newFixtureAuthorizer(t)

	for _, authid := range []string{"bob", "john", "nobody"} {
		for _, resource := range []string{"topic1", "topic2", "com.example.add"} {
			d, err := z.Authorize(context.Background(), session(authid), resource, realm.ActionRegister)
			require.NoError(t, err)
			assert.Equal(t, realm.Decision{Allow: false, Disclose: false}, d)
		}
	}
}

func TestAuthorizer_UnsupportedAction(t *testing.T) {
	z := newFixtureAuthorizer(t)

	for _, action := range []realm.Action{realm.ActionUnknown, realm.Action(42), realm.Action(-1)} {
		d, err := z.Authorize(context.Background(), session("bob"), "topic1", action)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, realm.CodeUnsupportedAction)
		assert.Equal(t, realm.KindUnsupportedAction, realm.ErrorKind(err))
		assert.False(t, d.Allow)
	}
}

func TestAuthorizer_AuthorizeName(t *testing.T) {
	z := newFixtureAuthorizer(t)
	ctx := context.Background()

	d, err := z.AuthorizeName(ctx, session("bob"), "topic2", "publish")
	require.NoError(t, err)
	assert.True(t, d.Allow)

	_, err = z.AuthorizeName(ctx, session("bob"), "topic2", "delete")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, realm.CodeUnsupportedAction)
	errutil.AssertErrorContext(t, err, "action", "delete")
}

func TestAuthorizer_LookupFailureDenies(t *testing.T) {
	z, err := realm.NewAuthorizer(realmtest.FailingLookup{Err: errors.New("timeout")})
	require.NoError(t, err)

	d, err := z.Authorize(context.Background(), session("bob"), "topic1", realm.ActionSubscribe)
	require.NoError(t, err)
	assert.Equal(t, realm.Decision{Allow: false, Disclose: true}, d)

	// Fixed policy never touches the lookup.
	d, err = z.Authorize(context.Background(), session("bob"), "topic1", realm.ActionCall)
	require.NoError(t, err)
	assert.True(t, d.Allow)
}

func TestAuthorizer_RequiredRole(t *testing.T) {
	z := newFixtureAuthorizer(t, realm.WithRequiredRole(realmtest.FixtureRole))
	ctx := context.Background()

	d, err := z.Authorize(ctx, realm.Session{AuthID: "bob", AuthRole: "anonymous"}, "topic1", realm.ActionPublish)
	require.NoError(t, err)
	assert.False(t, d.Allow)

	d, err = z.Authorize(ctx, realm.Session{AuthID: "bob", AuthRole: realmtest.FixtureRole}, "topic1", realm.ActionPublish)
	require.NoError(t, err)
	assert.True(t, d.Allow)

	d, err = z.Authorize(ctx, realm.Session{AuthID: "bob", AuthRole: "anonymous"}, "any.procedure", realm.ActionCall)
	require.NoError(t, err)
	assert.True(t, d.Allow, "call policy is independent of role")
}

func TestAuthorizer_Idempotent(t *testing.T) {
	z := newFixtureAuthorizer(t)
	ctx := context.Background()

	first, err := z.Authorize(ctx, session("john"), "topic2", realm.ActionPublish)
	require.NoError(t, err)
	for range 100 {
		d, err := z.Authorize(ctx, session("john"), "topic2", realm.ActionPublish)
		require.NoError(t, err)
		assert.Equal(t, first, d)
	}
}

func TestNewAuthorizer_NilLookup(t *testing.T) {
	z, err := realm.NewAuthorizer(nil)
	require.Error(t, err)
	assert.Nil(t, z)
	errutil.AssertErrorCode(t, err, realm.CodeInvalidConfig)
}
