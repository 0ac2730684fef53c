// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/realmgate/internal/tables"
)

// SeedResult counts the rows written and skipped by Seed.
type SeedResult struct {
	CredentialsCreated int
	CredentialsSkipped int
	PermissionsCreated int
	PermissionsSkipped int
}

// Seed inserts t into the realm tables. Rows that already exist are left
// untouched and counted as skipped, so seeding is idempotent.
func Seed(ctx context.Context, pool poolIface, t tables.Tables) (SeedResult, error) {
	var res SeedResult

	for _, authid := range sortedKeys(t.Credentials) {
		created, err := insertSkippingDuplicate(ctx, pool,
			`INSERT INTO realm_credentials (authid, ticket) VALUES ($1, $2)`,
			authid, t.Credentials[authid])
		if err != nil {
			return res, oops.In("store").Code("SEED_FAILED").With("authid", authid).Wrap(err)
		}
		if created {
			res.CredentialsCreated++
		} else {
			slog.DebugContext(ctx, "credential already seeded", "authid", authid)
			res.CredentialsSkipped++
		}
	}

	for _, uri := range sortedKeys(t.Permissions) {
		byID := t.Permissions[uri]
		for _, authid := range sortedKeys(byID) {
			entry := byID[authid]
			created, err := insertSkippingDuplicate(ctx, pool,
				`INSERT INTO realm_permissions (uri, authid, can_subscribe, can_publish) VALUES ($1, $2, $3, $4)`,
				uri, authid, entry.Subscribe, entry.Publish)
			if err != nil {
				return res, oops.In("store").Code("SEED_FAILED").With("uri", uri).With("authid", authid).Wrap(err)
			}
			if created {
				res.PermissionsCreated++
			} else {
				res.PermissionsSkipped++
			}
		}
	}

	return res, nil
}

func insertSkippingDuplicate(ctx context.Context, pool poolIface, sql string, args ...any) (bool, error) {
	_, err := pool.Exec(ctx, sql, args...)
	if err == nil {
		return true, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return false, nil
	}
	return false, err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
