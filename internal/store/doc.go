// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store provides the PostgreSQL backend for realm tables: a
// tables.Source that reads credentials and permissions, a LISTEN/NOTIFY
// change listener, schema migrations, and seeding from a tables file.
package store
