// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/realmgate/pkg/errutil"
)

func TestServeCmd_StopsOnContextCancel(t *testing.T) {
	path := writeTables(t, fixtureTables)
	configFile = ""
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	logs := new(bytes.Buffer)
	cmd.SetErr(logs)
	cmd.SetArgs([]string{
		"--tables", path,
		"--http-addr", "127.0.0.1:0",
		"--metrics-addr", "127.0.0.1:0",
		"--poll-interval", "50ms",
		"serve",
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
	assert.Contains(t, logs.String(), "realmgate stopped")
}

func TestServeCmd_FailsWithoutTables(t *testing.T) {
	_, err := execute(t, "--tables", t.TempDir()+"/missing.yaml", "--http-addr", "127.0.0.1:0", "--metrics-addr", "", "serve")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "TABLES_NOT_FOUND")
}

func TestServeCmd_ListenFailure(t *testing.T) {
	path := writeTables(t, fixtureTables)

	_, err := execute(t, "--tables", path, "--http-addr", "256.0.0.1:0", "--metrics-addr", "", "serve")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "SERVER_LISTEN_FAILED")
}
