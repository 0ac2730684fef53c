// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/holomush/realmgate/internal/tables"
)

// poolIface is the subset of pgxpool.Pool used by this package.
// pgxmock.PgxPoolIface satisfies it in tests.
type poolIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Connect opens a connection pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.In("store").Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.In("store").Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

// PostgresSource implements tables.Source over the realm_credentials and
// realm_permissions tables.
type PostgresSource struct {
	pool poolIface
}

// NewPostgresSource creates a PostgresSource backed by pool.
func NewPostgresSource(pool poolIface) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Name implements tables.Source.
func (s *PostgresSource) Name() string {
	return "postgres"
}

// Load implements tables.Source. Both tables are read in one read-only
// transaction so the result is a consistent view.
func (s *PostgresSource) Load(ctx context.Context) (tables.Tables, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return tables.Tables{}, oops.In("store").Code("TABLES_LOAD_FAILED").With("operation", "begin").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction

	creds, err := loadCredentials(ctx, tx)
	if err != nil {
		return tables.Tables{}, err
	}
	perms, err := loadPermissions(ctx, tx)
	if err != nil {
		return tables.Tables{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return tables.Tables{}, oops.In("store").Code("TABLES_LOAD_FAILED").With("operation", "commit").Wrap(err)
	}
	return tables.Tables{Credentials: creds, Permissions: perms}, nil
}

func loadCredentials(ctx context.Context, tx pgx.Tx) (map[string]string, error) {
	rows, err := tx.Query(ctx, `SELECT authid, ticket FROM realm_credentials`)
	if err != nil {
		return nil, oops.In("store").Code("TABLES_LOAD_FAILED").With("operation", "query credentials").Wrap(err)
	}
	defer rows.Close()

	creds := make(map[string]string)
	for rows.Next() {
		var authid, ticket string
		if err := rows.Scan(&authid, &ticket); err != nil {
			return nil, oops.In("store").Code("TABLES_LOAD_FAILED").With("operation", "scan credential").Wrap(err)
		}
		creds[authid] = ticket
	}
	if err := rows.Err(); err != nil {
		return nil, oops.In("store").Code("TABLES_LOAD_FAILED").With("operation", "iterate credentials").Wrap(err)
	}
	return creds, nil
}

func loadPermissions(ctx context.Context, tx pgx.Tx) (map[string]map[string]tables.PermissionEntry, error) {
	rows, err := tx.Query(ctx, `SELECT uri, authid, can_subscribe, can_publish FROM realm_permissions`)
	if err != nil {
		return nil, oops.In("store").Code("TABLES_LOAD_FAILED").With("operation", "query permissions").Wrap(err)
	}
	defer rows.Close()

	perms := make(map[string]map[string]tables.PermissionEntry)
	for rows.Next() {
		var uri, authid string
		var entry tables.PermissionEntry
		if err := rows.Scan(&uri, &authid, &entry.Subscribe, &entry.Publish); err != nil {
			return nil, oops.In("store").Code("TABLES_LOAD_FAILED").With("operation", "scan permission").Wrap(err)
		}
		byID, ok := perms[uri]
		if !ok {
			byID = make(map[string]tables.PermissionEntry)
			perms[uri] = byID
		}
		byID[authid] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, oops.In("store").Code("TABLES_LOAD_FAILED").With("operation", "iterate permissions").Wrap(err)
	}
	return perms, nil
}

// Counts reports how many credential and permission rows are stored.
func (s *PostgresSource) Counts(ctx context.Context) (credentials, permissions int, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT (SELECT count(*) FROM realm_credentials), (SELECT count(*) FROM realm_permissions)`,
	).Scan(&credentials, &permissions)
	if err != nil {
		return 0, 0, oops.In("store").Code("TABLES_COUNT_FAILED").Wrap(err)
	}
	return credentials, permissions, nil
}

// Verify interface is satisfied.
var _ tables.Source = (*PostgresSource)(nil)
