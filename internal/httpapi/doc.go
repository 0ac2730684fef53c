// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the realm Authenticator and Authorizer as a small
// JSON-over-HTTP callout API for routers that delegate access decisions.
//
//	POST /v1/authenticate  {"realm","authid","details":{"ticket"}}
//	POST /v1/authorize     {"session":{"authid","authrole"},"uri","action"}
package httpapi
