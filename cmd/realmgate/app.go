// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/holomush/realmgate/internal/audit"
	"github.com/holomush/realmgate/internal/config"
	"github.com/holomush/realmgate/internal/realm"
	"github.com/holomush/realmgate/internal/store"
	"github.com/holomush/realmgate/internal/tables"
)

// app holds the wired decision core.
type app struct {
	cfg    *config.Config
	source tables.Source
	cache  *tables.Cache
	authn  *realm.Authenticator
	authz  *realm.Authorizer
	pool   *pgxpool.Pool
}

// newSource opens the configured tables source. The returned pool is nil for
// the file source.
func newSource(ctx context.Context, cfg *config.Config) (tables.Source, *pgxpool.Pool, error) {
	switch cfg.Tables.Source {
	case config.SourcePostgres:
		pool, err := store.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresSource(pool), pool, nil
	default:
		return tables.NewFileSource(cfg.Tables.Path, tables.WithSchemaValidation(cfg.Tables.ValidateSchema)), nil, nil
	}
}

// buildApp wires source, cache, Authenticator and Authorizer and performs the
// initial load. cacheOpts are appended to the defaults.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, cacheOpts ...tables.CacheOption) (*app, error) {
	src, pool, err := newSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, source: src, pool: pool}
	opts := append([]tables.CacheOption{
		tables.WithStalenessThreshold(cfg.Tables.Staleness),
		tables.WithLogger(logger),
	}, cacheOpts...)
	a.cache = tables.NewCache(src, opts...)

	if err := a.cache.Reload(ctx); err != nil {
		a.close()
		return nil, err
	}

	mode, err := audit.ParseMode(cfg.Audit.Mode)
	if err != nil {
		a.close()
		return nil, err
	}
	auditLog := audit.NewLogger(mode, logger)

	a.authn, err = realm.NewAuthenticator(realm.AuthenticatorConfig{
		Realm: cfg.Realm.Name,
		Role:  cfg.Realm.Role,
		Extra: cfg.Realm.Extra,
	}, a.cache, realm.WithAuthenticatorAudit(auditLog))
	if err != nil {
		a.close()
		return nil, oops.In("realmgate").With("operation", "create authenticator").Wrap(err)
	}

	a.authz, err = realm.NewAuthorizer(a.cache,
		realm.WithAuthorizerAudit(auditLog),
		realm.WithRequiredRole(cfg.Realm.RequiredRole))
	if err != nil {
		a.close()
		return nil, oops.In("realmgate").With("operation", "create authorizer").Wrap(err)
	}

	snap := a.cache.Snapshot()
	logger.InfoContext(ctx, "tables loaded",
		"source", snap.Source(),
		"identities", snap.Identities(),
		"resources", snap.Resources())
	return a, nil
}

// ready reports whether decisions are served from fresh tables.
func (a *app) ready() bool {
	return a.cache.Loaded() && !a.cache.IsStale()
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
