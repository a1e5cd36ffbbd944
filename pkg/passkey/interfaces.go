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

package passkey

import (
	"context"
	"time"
)

// ChallengeStore is ephemeral, single-use storage for issued challenges.
// It is the only mutable shared resource with a race-sensitive contract.
type ChallengeStore interface {
	// Issue generates a cryptographically random challenge and session ID,
	// stores the record with the given TTL, and returns it. The optional
	// userHandle and allow-list bind the challenge to a targeted login.
	Issue(ctx context.Context, size int, ttl time.Duration, userHandle []byte, allowedCredentialIDs [][]byte) (*Challenge, error)

	// Consume atomically retrieves and removes the challenge for the given
	// session ID. Under concurrent calls with the same session ID exactly one
	// caller succeeds; all others receive ErrChallengeNotFound. Expired
	// challenges answer ErrChallengeNotFound even if still present. There is
	// deliberately no peek operation.
	Consume(ctx context.Context, sessionID string) (*Challenge, error)
}

// CredentialRegistry is durable storage for registered credentials.
type CredentialRegistry interface {
	// FindByID retrieves an active credential by its ID. Inactive credentials
	// answer ErrCredentialNotFound, indistinguishable from missing ones.
	FindByID(ctx context.Context, credentialID []byte) (*Credential, error)

	// FindByUser retrieves all active credentials for a user handle,
	// supporting the targeted-login allow-list. Empty slice when none.
	FindByUser(ctx context.Context, userHandle []byte) ([]*Credential, error)

	// Register stores a newly registered credential. Returns
	// ErrCredentialAlreadyExists on a duplicate credential ID.
	Register(ctx context.Context, cred *Credential) error

	// UpdateAfterUse persists the new signature counter and last-used
	// timestamp in a single atomic write keyed by credential ID. Concurrent
	// updates against the same credential serialize, and the write must
	// re-check monotonicity against the stored value it is replacing:
	// a non-increasing counter (unless both values are zero) returns
	// ErrClonedAuthenticator and leaves the record untouched.
	UpdateAfterUse(ctx context.Context, credentialID []byte, newCounter uint32, usedAt time.Time) error

	// FlagClone marks a credential as having produced a counter regression.
	// The credential stays active; deactivation is an account-management
	// decision, not this core's.
	FlagClone(ctx context.Context, credentialID []byte) error

	// Deactivate excludes a credential from lookup while retaining the
	// record for audit.
	Deactivate(ctx context.Context, credentialID []byte) error
}

// UserDirectory resolves a target hint (e.g. an email address) to a user
// handle during targeted challenge issuance. It is a read-only collaborator;
// the core never writes user profiles.
type UserDirectory interface {
	// ResolveHint returns the user handle for the hint, or ErrUserUnknown.
	ResolveHint(ctx context.Context, hint string) ([]byte, error)
}

// ClaimTokenGenerator optionally encodes an AuthenticatedClaim as a signed
// token for the external session layer. If nil, the coordinator returns the
// bare claim only.
type ClaimTokenGenerator interface {
	// GenerateToken creates a signed token carrying the claim.
	GenerateToken(ctx context.Context, claim *AuthenticatedClaim) (string, error)
}

// SecurityEventSink receives events that must reach security monitoring
// rather than ordinary failure logging.
type SecurityEventSink interface {
	// CloneDetected reports a signature counter regression. storedCounter is
	// the persisted value, reportedCounter the value in the assertion.
	CloneDetected(ctx context.Context, credentialID []byte, storedCounter, reportedCounter uint32)
}
