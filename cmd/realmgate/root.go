// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/realmgate/internal/config"
	"github.com/holomush/realmgate/internal/logging"
	"github.com/holomush/realmgate/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the realmgate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realmgate",
		Short: "realmgate - WAMP realm authentication and authorization",
		Long: `realmgate decides whether WAMP sessions may join a realm (ticket
authentication) and whether they may subscribe, publish, register or call
on a resource URI. Credentials and permissions come from a YAML tables file
or from PostgreSQL.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/realmgate/realmgate.yaml if present)")
	pf.String("realm", "realm1", "realm sessions are admitted to")
	pf.String("role", "dynamic_user", "role granted to authenticated sessions")
	pf.String("required-role", "", "authrole required for subscribe/publish (empty = any)")
	pf.String("tables-source", config.SourceFile, "tables source: file or postgres")
	pf.String("tables", "tables.yaml", "tables file path (file source)")
	pf.Bool("validate-schema", true, "validate the tables file against its JSON Schema")
	pf.Duration("staleness", 0, "tables age after which readiness fails (0 = never)")
	pf.Duration("poll-interval", 0, "reload tables on this interval (0 = disabled)")
	pf.String("database-url", "", "PostgreSQL URL (default: $"+config.DatabaseURLEnv+")")
	pf.String("http-addr", "127.0.0.1:8080", "decision API listen address")
	pf.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	pf.String("log-format", "json", "log format: json or text")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("audit", "denials", "decision audit mode: none, denials or all")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewAuthenticateCmd())
	cmd.AddCommand(NewAuthorizeCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig resolves configuration for cmd and installs the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path := configFile
	if path == "" {
		path = xdg.FindConfig()
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.Setup("realmgate", version, cfg.Log.Format, level, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return cfg, logger, nil
}
