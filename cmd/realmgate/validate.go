// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and tables",
		Long: `Load the configuration and the configured tables source, build the
decision core, and report what was loaded. Exits non-zero on any error.`,
		Args: cobra.NoArgs,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	snap := a.cache.Snapshot()
	cmd.Printf("Source:     %s\n", snap.Source())
	cmd.Printf("Realm:      %s (role %s)\n", cfg.Realm.Name, cfg.Realm.Role)
	cmd.Printf("Identities: %d\n", snap.Identities())
	cmd.Printf("Resources:  %d\n", snap.Resources())
	cmd.Println("OK")
	return nil
}
