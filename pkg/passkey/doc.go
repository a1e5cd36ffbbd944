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

// Package passkey implements the server side of passwordless, challenge-response
// authentication with platform authenticators (WebAuthn assertions).
//
// The package is built around four components:
//
//  1. ChallengeStore - single-use, TTL-bound random challenges keyed by session ID
//  2. CredentialRegistry - durable registered-credential records per user
//  3. AssertionVerifier - cryptographic verification of a submitted assertion,
//     including signature counter monotonicity (clone detection)
//  4. Coordinator - orchestrates the login flow and emits an AuthenticatedClaim
//
// Signature and COSE key verification are delegated to the go-webauthn/webauthn
// library; this package is the orchestration and state-machine layer around it.
//
// # Usage
//
// Basic usage with in-memory storage (for development):
//
//	coord, err := passkey.NewCoordinator(passkey.CoordinatorParams{
//	    Config: &passkey.Config{
//	        RPID:          "localhost",
//	        RPDisplayName: "My App",
//	        RPOrigins:     []string{"https://localhost:3000"},
//	    },
//	    Challenges:  passkey.NewMemoryChallengeStore(),
//	    Credentials: passkey.NewMemoryCredentialRegistry(),
//	})
//
//	ch, _ := coord.IssueChallenge(ctx, "")
//	claim, err := coord.SubmitAssertion(ctx, ch.SessionID, parsedAssertion)
//
// For production, implement ChallengeStore and CredentialRegistry against your
// cache and database. The consume operation must stay atomic per session ID;
// see the interface contracts in interfaces.go.
//
// The http subpackage provides handlers exposing the two boundary operations
// (challenge issuance, assertion submission) over JSON/HTTP.
//
// Note: WebAuthn requires HTTPS for all operations. Browsers will only
// expose the credential APIs in secure contexts.
package passkey
