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
	"encoding/base64"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// Challenge is a server-issued random value a client authenticator must sign
// over. Challenges are single-use: exactly one consume succeeds, after which
// (or after ExpiresAt) the session ID answers as not found.
type Challenge struct {
	// SessionID is the opaque identifier the client echoes back on submission.
	SessionID string `json:"session_id"`

	// Value is the random challenge. At least 16 bytes of entropy; encoded
	// base64url (unpadded) for transport.
	Value []byte `json:"value"`

	// IssuedAt is when the challenge was created.
	IssuedAt time.Time `json:"issued_at"`

	// ExpiresAt is when the challenge becomes inert.
	ExpiresAt time.Time `json:"expires_at"`

	// UserHandle is set for targeted login, where the caller pre-identified
	// the user. Nil for the discoverable (fully passwordless) flow.
	UserHandle []byte `json:"user_handle,omitempty"`

	// AllowedCredentialIDs optionally restricts which credentials may answer
	// this challenge. Empty means any registered credential.
	AllowedCredentialIDs [][]byte `json:"allowed_credential_ids,omitempty"`
}

// EncodedValue returns the challenge value in its transport encoding, which is
// also the encoding authenticators embed in clientDataJSON.
func (c *Challenge) EncodedValue() string {
	return base64.RawURLEncoding.EncodeToString(c.Value)
}

// Expired reports whether the challenge is past its TTL at the given instant.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Credential is a registered authenticator credential bound to a user. The
// public key is immutable after registration; SignCount and LastUsedAt are
// mutated only after successful verification.
type Credential struct {
	// ID is the credential identifier assigned by the authenticator.
	ID []byte `json:"id"`

	// UserHandle is the WebAuthn user handle of the owning user.
	UserHandle []byte `json:"user_handle"`

	// PublicKey is the credential's public key in COSE format.
	PublicKey []byte `json:"public_key"`

	// AttestationType indicates the type of attestation used at registration.
	AttestationType string `json:"attestation_type"`

	// Transport lists transport hints reported by the authenticator
	// (e.g. "internal" for platform authenticators).
	Transport []protocol.AuthenticatorTransport `json:"transport,omitempty"`

	// SignCount mirrors the authenticator's monotonic signature counter.
	// Zero forever for authenticators that do not implement counters.
	SignCount uint32 `json:"sign_count"`

	// Active is false for deactivated credentials. Inactive credentials are
	// excluded from lookup but retained for audit.
	Active bool `json:"active"`

	// CloneFlagged marks a credential that produced a counter regression.
	// Flagged credentials stay active pending manual review.
	CloneFlagged bool `json:"clone_flagged"`

	// CreatedAt is when the credential was registered.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is updated on every successful authentication.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// ToWebAuthn converts the record to the go-webauthn library's credential type.
func (c *Credential) ToWebAuthn() webauthn.Credential {
	return webauthn.Credential{
		ID:              c.ID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Transport:       c.Transport,
		Authenticator: webauthn.Authenticator{
			SignCount: c.SignCount,
		},
	}
}

// FromWebAuthnCredential creates a Credential record from the go-webauthn
// credential produced at registration time.
func FromWebAuthnCredential(userHandle []byte, wc *webauthn.Credential) *Credential {
	return &Credential{
		ID:              wc.ID,
		UserHandle:      userHandle,
		PublicKey:       wc.PublicKey,
		AttestationType: wc.AttestationType,
		Transport:       wc.Transport,
		SignCount:       wc.Authenticator.SignCount,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
	}
}

// AuthenticatedClaim is the minimal proof handed to the external session
// layer after a successful challenge-response. It carries no authority beyond
// "this credential's challenge-response was cryptographically valid at this
// instant"; cookie and token issuance are the session layer's concern.
type AuthenticatedClaim struct {
	// UserID is the base64url-encoded user handle of the authenticated user.
	UserID string `json:"user_id"`

	// CredentialID is the base64url-encoded credential that produced the assertion.
	CredentialID string `json:"credential_id"`

	// VerifiedAt is when verification succeeded.
	VerifiedAt time.Time `json:"verified_at"`
}

// NewAuthenticatedClaim builds a claim from raw identifiers.
func NewAuthenticatedClaim(userHandle, credentialID []byte, verifiedAt time.Time) *AuthenticatedClaim {
	return &AuthenticatedClaim{
		UserID:       base64.RawURLEncoding.EncodeToString(userHandle),
		CredentialID: base64.RawURLEncoding.EncodeToString(credentialID),
		VerifiedAt:   verifiedAt,
	}
}

// credentialHolder adapts a single resolved Credential to the webauthn.User
// interface the verification library expects. The registry has already
// resolved the credential; no storage access happens here.
type credentialHolder struct {
	handle     []byte
	credential *Credential
}

// WebAuthnID returns the user handle.
func (h *credentialHolder) WebAuthnID() []byte {
	return h.handle
}

// WebAuthnName returns the username. The core does not know profile data;
// the handle encoding stands in.
func (h *credentialHolder) WebAuthnName() string {
	return base64.RawURLEncoding.EncodeToString(h.handle)
}

// WebAuthnDisplayName returns the display name.
func (h *credentialHolder) WebAuthnDisplayName() string {
	return h.WebAuthnName()
}

// WebAuthnCredentials returns the single candidate credential.
func (h *credentialHolder) WebAuthnCredentials() []webauthn.Credential {
	return []webauthn.Credential{h.credential.ToWebAuthn()}
}
