// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package realm

// Details carries the authentication details a client sent with HELLO.
// A nil Ticket means the ticket key was absent, which is distinct from an
// empty ticket.
type Details struct {
	Ticket *string
}

// TicketDetails returns Details carrying the given ticket.
func TicketDetails(ticket string) Details {
	return Details{Ticket: &ticket}
}

// Grant is the result of a successful authentication.
type Grant struct {
	Realm string
	Role  string
	Extra map[string]any
}

// Session identifies an authenticated session for authorization.
type Session struct {
	AuthID   string
	AuthRole string
}

// Permission holds the per-resource grants for one identity.
// The zero value denies everything.
type Permission struct {
	Subscribe bool
	Publish   bool
}

// Allows reports whether the permission grants the given action.
// Only subscribe and publish are data-driven; every other action returns false.
func (p Permission) Allows(a Action) bool {
	switch a {
	case ActionSubscribe:
		return p.Subscribe
	case ActionPublish:
		return p.Publish
	default:
		return false
	}
}

// Decision is the outcome of an authorization check.
// Disclose reports whether the acting identity is revealed to peers.
type Decision struct {
	Allow    bool
	Disclose bool
}

// Policy constants for the non data-driven actions.
var (
	registerDecision = Decision{Allow: false, Disclose: false}
	callDecision     = Decision{Allow: true, Disclose: true}
)
