// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/holomush/realmgate/internal/realm"
)

// NewAuthorizeCmd creates the authorize subcommand.
func NewAuthorizeCmd() *cobra.Command {
	var authrole string

	cmd := &cobra.Command{
		Use:   "authorize AUTHID URI ACTION",
		Short: "Check an action on a resource against the loaded tables",
		Long: `Run one authorization decision against the configured tables.
ACTION is one of subscribe, publish, register or call.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthorize(cmd, realm.Session{AuthID: args[0], AuthRole: authrole}, args[1], args[2])
		},
	}

	cmd.Flags().StringVar(&authrole, "authrole", "", "session authrole (default: the configured role)")

	return cmd
}

func runAuthorize(cmd *cobra.Command, session realm.Session, uri, actionName string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	action, err := realm.ParseAction(actionName)
	if err != nil {
		return err
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

	if session.AuthRole == "" {
		session.AuthRole = cfg.Realm.Role
	}

	d, err := a.authz.Authorize(ctx, session, uri, action)
	if err != nil {
		return err
	}

	verdict := "deny"
	if d.Allow {
		verdict = "allow"
	}
	cmd.Printf("%s %s %s: %s (disclose=%t)\n", session.AuthID, action, uri, verdict, d.Disclose)
	return nil
}
