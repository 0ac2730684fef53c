// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package realm

import "context"

// CredentialLookup resolves the ticket on file for an identity.
// Implementations must present a consistent view for the duration of a call.
type CredentialLookup interface {
	// Ticket returns the stored ticket for authid.
	// found is false when the identity is unknown; err is reserved for backend failures.
	Ticket(ctx context.Context, authid string) (ticket string, found bool, err error)
}

// PermissionLookup resolves subscribe/publish grants for a resource and identity.
type PermissionLookup interface {
	// Permission returns the entry for (resource, authid).
	// found is false when no entry exists; callers treat that as deny.
	Permission(ctx context.Context, resource, authid string) (perm Permission, found bool, err error)
}
