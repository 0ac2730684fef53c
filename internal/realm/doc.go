// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package realm decides who may join a WAMP realm and what a joined session
// may do there.
//
// # Authentication
//
// Authenticator validates a ticket credential against a CredentialLookup and
// issues a Grant carrying the configured realm, role and extra metadata.
// Checks run in a fixed order: ticket present, ticket valid, realm valid.
//
// # Authorization
//
// Authorizer maps a (session, resource, action) triple to a Decision:
//   - register is always denied
//   - call is always allowed, with the caller disclosed
//   - subscribe and publish consult a PermissionLookup and deny when no entry exists
//
// Both types are safe for concurrent use. They hold no mutable state of their
// own; consistency of the backing tables is the lookup's responsibility.
package realm
