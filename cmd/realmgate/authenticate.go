// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/realmgate/internal/httpapi"
	"github.com/holomush/realmgate/internal/realm"
)

type authenticateConfig struct {
	ticket    string
	askRealm  string
	hasTicket bool
}

// NewAuthenticateCmd creates the authenticate subcommand.
func NewAuthenticateCmd() *cobra.Command {
	cfg := &authenticateConfig{}

	cmd := &cobra.Command{
		Use:   "authenticate AUTHID",
		Short: "Check a ticket against the loaded tables",
		Long: `Run one authentication decision against the configured tables and print
the grant as JSON. Omitting --ticket models a join without a ticket.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.hasTicket = cmd.Flags().Changed("ticket")
			return runAuthenticate(cmd, cfg, args[0])
		},
	}

	cmd.Flags().StringVar(&cfg.ticket, "ticket", "", "ticket to present")
	cmd.Flags().StringVar(&cfg.askRealm, "ask-realm", "", "realm to ask for (default: the configured realm)")

	return cmd
}

func runAuthenticate(cmd *cobra.Command, cfg *authenticateConfig, authid string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	appCfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := buildApp(ctx, appCfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	asked := cfg.askRealm
	if asked == "" {
		asked = appCfg.Realm.Name
	}
	var details realm.Details
	if cfg.hasTicket {
		details = realm.TicketDetails(cfg.ticket)
	}

	grant, err := a.authn.Authenticate(ctx, asked, authid, details)
	if err != nil {
		cmd.Printf("denied: %s (%s)\n", realm.ErrorURI(err), realm.ErrorKind(err))
		return err
	}

	out, err := json.MarshalIndent(httpapi.GrantResponse{Realm: grant.Realm, Role: grant.Role, Extra: grant.Extra}, "", "  ")
	if err != nil {
		return oops.In("realmgate").Code("ENCODE_FAILED").Wrap(err)
	}
	cmd.Println(string(out))
	return nil
}
