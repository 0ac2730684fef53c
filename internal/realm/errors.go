// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package realm

import (
	"github.com/samber/oops"
)

// Error codes carried by oops errors from this package.
const (
	CodeTicketMissing     = "AUTH_TICKET_MISSING"
	CodeInvalidToken      = "AUTH_INVALID_TOKEN"
	CodeInvalidRealm      = "AUTH_INVALID_REALM"
	CodeLookupFailed      = "AUTH_LOOKUP_FAILED"
	CodeUnsupportedAction = "AUTHZ_UNSUPPORTED_ACTION"
	CodeInvalidConfig     = "REALM_INVALID_CONFIG"
)

// WAMP error URIs a router should send back when rejecting a session.
const (
	URITicketMissing   = "authenticate.ticket_is_missing"
	URIInvalidToken    = "authenticate.invalid_token"
	URIInvalidRealm    = "authenticate.invalid_realm"
	URIInvalidArgument = "wamp.error.invalid_argument"
	URIAuthFailed      = "wamp.error.authentication_failed"
)

// Kind classifies errors returned by Authenticator and Authorizer.
type Kind int

// Kind constants.
const (
	KindNone Kind = iota
	KindMissingCredential
	KindInvalidCredential
	KindInvalidRealm
	KindUnsupportedAction
	KindInternal
)

var kindStrings = [...]string{
	"none",
	"missing_credential",
	"invalid_credential",
	"invalid_realm",
	"unsupported_action",
	"internal",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindStrings) {
		return kindStrings[k]
	}
	return "internal"
}

// ErrorKind classifies err. Nil maps to KindNone; errors this package did
// not produce map to KindInternal.
func ErrorKind(err error) Kind {
	if err == nil {
		return KindNone
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindInternal
	}
	switch oopsErr.Code() {
	case CodeTicketMissing:
		return KindMissingCredential
	case CodeInvalidToken:
		return KindInvalidCredential
	case CodeInvalidRealm:
		return KindInvalidRealm
	case CodeUnsupportedAction:
		return KindUnsupportedAction
	default:
		return KindInternal
	}
}

// ErrorURI returns the WAMP error URI for err.
func ErrorURI(err error) string {
	switch ErrorKind(err) {
	case KindMissingCredential:
		return URITicketMissing
	case KindInvalidCredential:
		return URIInvalidToken
	case KindInvalidRealm:
		return URIInvalidRealm
	case KindUnsupportedAction:
		return URIInvalidArgument
	default:
		return URIAuthFailed
	}
}

func ticketMissingError() error {
	return oops.In("realm").
		Code(CodeTicketMissing).
		Errorf("could not authenticate session: ticket key is missing")
}

// invalidTokenError never includes the presented ticket.
func invalidTokenError(authid string) error {
	return oops.In("realm").
		Code(CodeInvalidToken).
		With("authid", authid).
		Errorf("could not authenticate session: invalid token with authid %s", authid)
}

func invalidRealmError(realmAsked string) error {
	return oops.In("realm").
		Code(CodeInvalidRealm).
		With("realm", realmAsked).
		Errorf("unsupported realm: %s", realmAsked)
}

func unsupportedActionError(action string) error {
	return oops.In("realm").
		Code(CodeUnsupportedAction).
		With("action", action).
		Errorf("unsupported action %q", action)
}
