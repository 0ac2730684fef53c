// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/holomush/realmgate/internal/store"
	"github.com/holomush/realmgate/internal/tables"
)

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Copy the tables file into PostgreSQL",
		Long: `Apply pending migrations, then insert every credential and permission
from the tables file (--tables) into the realm tables. Rows that already
exist are skipped, so seeding can be repeated safely.`,
		Args: cobra.NoArgs,
		RunE: runSeed,
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	url, err := databaseURL(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	src := tables.NewFileSource(cfg.Tables.Path, tables.WithSchemaValidation(cfg.Tables.ValidateSchema))
	t, err := src.Load(ctx)
	if err != nil {
		return err
	}
	// Reject tables that would not load as a snapshot before touching the database.
	if _, err := tables.NewSnapshot(src.Name(), t); err != nil {
		return err
	}

	if err := withMigrator(cmd, func(_ *cobra.Command, m migrator) error { return m.Up() }); err != nil {
		return err
	}

	pool, err := store.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer pool.Close()

	res, err := store.Seed(ctx, pool, t)
	if err != nil {
		return err
	}

	logger.Info("tables seeded",
		"credentials_created", res.CredentialsCreated,
		"permissions_created", res.PermissionsCreated)
	cmd.Printf("Credentials: %d created, %d skipped\n", res.CredentialsCreated, res.CredentialsSkipped)
	cmd.Printf("Permissions: %d created, %d skipped\n", res.PermissionsCreated, res.PermissionsSkipped)
	return nil
}
