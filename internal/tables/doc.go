// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package tables provisions the credential and permission tables the realm
// core reads from.
//
// A Source loads raw Tables (from a YAML file, a database, ...). NewSnapshot
// validates and indexes them into an immutable Snapshot. Cache holds the
// current Snapshot and swaps it atomically on Reload, so a decision in flight
// always observes one consistent table set.
//
// Resource keys in the permission table are either exact WAMP URIs or glob
// patterns using '.' as the segment separator:
//
//	com.example.*     matches com.example.add, not com.example.math.add
//	com.example.**    matches anything under com.example.
//
// An exact key always wins over patterns. Otherwise the longest matching
// pattern decides. The deciding key alone determines the result: if it has
// no entry for the identity, access is denied.
package tables
