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

// Package http provides composable HTTP handlers for the passwordless login
// flow.
//
// This package allows applications to add passkey authentication to their
// existing HTTP servers without coupling to go-passkey's internal REST
// implementation.
//
// # Usage
//
// Create a handler from a coordinator and mount it on your router:
//
//	coordinator, _ := passkey.NewCoordinator(...)
//	handler := passkeyhttp.NewHandler(coordinator)
//
//	// For chi router:
//	r.Route("/api/v1/auth", func(r chi.Router) {
//	    passkeyhttp.MountChi(r, handler)
//	})
//
//	// For stdlib http.ServeMux:
//	passkeyhttp.MountStdlib(mux, "/api/v1/auth", handler)
//
// # Endpoints
//
//	POST /challenge - Issue a single-use login challenge
//	POST /assert    - Submit a signed assertion
//
// # Response Format
//
// All responses are JSON. Assertion outcomes use the LoginResponse envelope;
// a failed attempt answers 401 (or 503 for store outages) with a normalized
// reason:
//
//	{
//	    "verified": false,
//	    "reason": "invalid_or_expired_challenge"
//	}
//
// Structurally invalid requests answer 400 with:
//
//	{
//	    "error": "invalid_request",
//	    "message": "Human-readable message"
//	}
package http
