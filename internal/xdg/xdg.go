// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg locates realmgate's configuration under the XDG Base Directory layout.
package xdg

import (
	"os"
	"path/filepath"
)

const (
	appName        = "realmgate"
	configFileName = "realmgate.yaml"
)

// ConfigDir returns the XDG config directory for realmgate.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default config file path inside ConfigDir.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), configFileName)
}

// FindConfig returns ConfigFile if it exists as a regular file, or "".
func FindConfig() string {
	path := ConfigFile()
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return ""
	}
	return path
}
