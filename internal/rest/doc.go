// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package rest assembles the passkey authentication HTTP server.
//
// The server wires the challenge-response coordinator, its in-memory
// stores, claim token issuance, and the authentication endpoints under
// /api/v1/auth, together with health probes and optional Prometheus
// metrics exposure:
//
//	POST /api/v1/auth/challenge
//	POST /api/v1/auth/assert
//	GET  /healthz
//	GET  /health/live
//	GET  /health/ready
//	GET  /metrics (when enabled)
//
// Requests flow through recovery, correlation ID, structured logging,
// and metrics middleware in that order.
package rest
