// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package realm

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/realmgate/internal/audit"
)

// AuthorizerOption configures an Authorizer.
type AuthorizerOption func(*Authorizer)

// WithAuthorizerAudit sets the audit logger. A nil logger disables auditing.
func WithAuthorizerAudit(l *audit.Logger) AuthorizerOption {
	return func(z *Authorizer) {
		z.audit = l
	}
}

// WithRequiredRole denies subscribe and publish to sessions whose authrole is
// not role. An empty role disables the check.
func WithRequiredRole(role string) AuthorizerOption {
	return func(z *Authorizer) {
		z.requiredRole = role
	}
}

// Authorizer decides whether a session may act on a resource.
//
// register and call are realm-wide policy and never consult the permission
// table. subscribe and publish are per-resource data and deny by default.
type Authorizer struct {
	perms        PermissionLookup
	requiredRole string
	audit        *audit.Logger
}

// NewAuthorizer creates an Authorizer backed by perms.
func NewAuthorizer(perms PermissionLookup, opts ...AuthorizerOption) (*Authorizer, error) {
	if perms == nil {
		return nil, oops.In("realm").Code(CodeInvalidConfig).Errorf("permission lookup is required")
	}
	z := &Authorizer{
		perms: perms,
		audit: audit.NewLogger(audit.ModeAll, nil),
	}
	for _, opt := range opts {
		opt(z)
	}
	return z, nil
}

// Authorize returns the decision for session performing action on resource.
// It only fails for actions outside the supported set; unknown resources and
// identities resolve to a deny decision.
func (z *Authorizer) Authorize(ctx context.Context, session Session, resource string, action Action) (Decision, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "realm.Authorize", trace.WithAttributes(
		attribute.String("wamp.authid", session.AuthID),
		attribute.String("wamp.uri", resource),
		attribute.String("wamp.action", action.String()),
	))
	defer span.End()

	if !action.Valid() {
		err := unsupportedActionError(action.String())
		span.SetStatus(codes.Error, KindUnsupportedAction.String())
		return Decision{}, err
	}

	d := z.decide(ctx, session, resource, action)
	duration := time.Since(start)

	recordAuthorization(duration, action, d)
	span.SetAttributes(attribute.Bool("realm.allow", d.Allow))
	z.audit.Log(ctx, audit.Entry{
		Operation: audit.OperationAuthorize,
		Subject:   session.AuthID,
		Action:    action.String(),
		Resource:  resource,
		Allowed:   d.Allow,
		Disclose:  d.Disclose,
		Duration:  duration,
	})

	return d, nil
}

// AuthorizeName is Authorize for a wire action name.
func (z *Authorizer) AuthorizeName(ctx context.Context, session Session, resource, action string) (Decision, error) {
	a, err := ParseAction(action)
	if err != nil {
		return Decision{}, err
	}
	return z.Authorize(ctx, session, resource, a)
}

func (z *Authorizer) decide(ctx context.Context, session Session, resource string, action Action) Decision {
	switch action {
	case ActionRegister:
		return registerDecision
	case ActionCall:
		return callDecision
	}

	if z.requiredRole != "" && session.AuthRole != z.requiredRole {
		slog.DebugContext(ctx, "session role does not match required role",
			"authid", session.AuthID,
			"authrole", session.AuthRole,
			"required_role", z.requiredRole)
		return Decision{Allow: false, Disclose: true}
	}

	perm, found, err := z.perms.Permission(ctx, resource, session.AuthID)
	if err != nil {
		// Fail closed: a broken backend never grants access.
		slog.WarnContext(ctx, "permission lookup failed, denying",
			"authid", session.AuthID,
			"resource", resource,
			"action", action.String(),
			"error", err)
		return Decision{Allow: false, Disclose: true}
	}
	if !found {
		perm = Permission{}
	}

	return Decision{Allow: perm.Allows(action), Disclose: true}
}
