// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package realm

import (
	"context"
	"crypto/subtle"
	"maps"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/realmgate/internal/audit"
	"github.com/holomush/realmgate/pkg/errutil"
)

var tracer = otel.Tracer("github.com/holomush/realmgate/internal/realm")

// dummyTicket stands in for the stored ticket of an unknown identity so both
// paths run the same comparison. A match against it is still rejected.
//
//nolint:gosec // G101: not a credential.
const dummyTicket = "realmgate-unknown-identity-placeholder-ticket"

// AuthenticatorConfig describes the single realm an Authenticator admits into.
type AuthenticatorConfig struct {
	Realm string
	Role  string
	Extra map[string]any
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithAuthenticatorAudit sets the audit logger. A nil logger disables auditing.
func WithAuthenticatorAudit(l *audit.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		a.audit = l
	}
}

// Authenticator validates ticket credentials for one realm.
type Authenticator struct {
	cfg   AuthenticatorConfig
	creds CredentialLookup
	audit *audit.Logger
}

// NewAuthenticator creates an Authenticator. Realm, role and creds are required.
func NewAuthenticator(cfg AuthenticatorConfig, creds CredentialLookup, opts ...AuthenticatorOption) (*Authenticator, error) {
	if cfg.Realm == "" {
		return nil, oops.In("realm").Code(CodeInvalidConfig).Errorf("realm name cannot be empty")
	}
	if cfg.Role == "" {
		return nil, oops.In("realm").Code(CodeInvalidConfig).With("realm", cfg.Realm).Errorf("role cannot be empty")
	}
	if creds == nil {
		return nil, oops.In("realm").Code(CodeInvalidConfig).With("realm", cfg.Realm).Errorf("credential lookup is required")
	}

	a := &Authenticator{
		cfg:   AuthenticatorConfig{Realm: cfg.Realm, Role: cfg.Role, Extra: maps.Clone(cfg.Extra)},
		creds: creds,
		audit: audit.NewLogger(audit.ModeAll, nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Realm returns the realm this Authenticator admits into.
func (a *Authenticator) Realm() string {
	return a.cfg.Realm
}

// Role returns the role granted on success.
func (a *Authenticator) Role() string {
	return a.cfg.Role
}

// Authenticate decides whether authid may join realmAsked with the given details.
//
// The ticket is checked before the realm: a realm mismatch is only reported
// for a verified identity. Errors carry one of CodeTicketMissing,
// CodeInvalidToken, CodeInvalidRealm or CodeLookupFailed.
func (a *Authenticator) Authenticate(ctx context.Context, realmAsked, authid string, details Details) (Grant, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "realm.Authenticate", trace.WithAttributes(
		attribute.String("wamp.realm", realmAsked),
		attribute.String("wamp.authid", authid),
	))
	defer span.End()

	grant, err := a.authenticate(ctx, realmAsked, authid, details)
	duration := time.Since(start)

	recordAuthentication(duration, err)
	if err != nil {
		span.SetStatus(codes.Error, ErrorKind(err).String())
	}
	a.audit.Log(ctx, audit.Entry{
		Operation: audit.OperationAuthenticate,
		Subject:   authid,
		Realm:     realmAsked,
		Allowed:   err == nil,
		Code:      errutil.Code(err),
		Duration:  duration,
	})

	return grant, err
}

func (a *Authenticator) authenticate(ctx context.Context, realmAsked, authid string, details Details) (Grant, error) {
	if details.Ticket == nil {
		return Grant{}, ticketMissingError()
	}

	valid, err := a.verifyTicket(ctx, authid, *details.Ticket)
	if err != nil {
		return Grant{}, err
	}
	if !valid {
		return Grant{}, invalidTokenError(authid)
	}

	if realmAsked != a.cfg.Realm {
		return Grant{}, invalidRealmError(realmAsked)
	}

	return Grant{
		Realm: a.cfg.Realm,
		Role:  a.cfg.Role,
		Extra: maps.Clone(a.cfg.Extra),
	}, nil
}

// verifyTicket compares the presented ticket with the one on file by exact,
// case-sensitive equality.
func (a *Authenticator) verifyTicket(ctx context.Context, authid, presented string) (bool, error) {
	stored, found, err := a.creds.Ticket(ctx, authid)
	if err != nil {
		return false, oops.In("realm").
			Code(CodeLookupFailed).
			With("authid", authid).
			With("operation", "lookup ticket").
			Wrap(err)
	}
	if !found {
		stored = dummyTicket
	}
	match := subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
	return found && match, nil
}
