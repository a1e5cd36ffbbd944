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
	"bytes"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// AssertionVerifier cryptographically verifies submitted assertions against a
// consumed challenge and a resolved credential. It is pure with respect to
// storage: the caller resolves the credential beforehand and persists the
// resulting counter afterwards.
//
// Signature, COSE key, origin, RP-ID-hash, and flag verification are
// delegated to the go-webauthn library; this type adds the counter
// monotonicity rule as a hard failure.
type AssertionVerifier struct {
	webauthn  *webauthn.WebAuthn
	requireUV bool
}

// NewAssertionVerifier creates a verifier for the given relying-party
// configuration. The config must already be validated.
func NewAssertionVerifier(cfg *Config) (*AssertionVerifier, error) {
	wa, err := webauthn.New(cfg.ToWebAuthnConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create webauthn instance: %w", err)
	}

	return &AssertionVerifier{
		webauthn:  wa,
		requireUV: cfg.UserVerificationRequired(),
	}, nil
}

// Verification is the successful outcome of assertion verification.
type Verification struct {
	// NewCounter is the signature counter reported by the authenticator,
	// to be persisted by the caller. Stays zero for counter-less
	// authenticators.
	NewCounter uint32

	// UserVerified reports whether the UV flag was set in the assertion.
	UserVerified bool
}

// Verify confirms that the assertion's embedded challenge matches the
// consumed challenge byte for byte, that origin and RP ID hash match the
// configured relying party, that the user-presence (and, when required,
// user-verification) flags are set, that the signature over
// authenticatorData || SHA-256(clientDataJSON) verifies against the
// credential's registered public key, and that the reported signature counter
// is strictly greater than the stored one unless both are zero.
//
// A counter regression with a valid signature returns ErrClonedAuthenticator,
// a hard failure distinct from ErrVerificationFailed.
func (v *AssertionVerifier) Verify(cred *Credential, ch *Challenge, assertion *protocol.ParsedCredentialAssertionData) (*Verification, error) {
	if cred == nil || ch == nil || assertion == nil {
		return nil, NewError("verify assertion", ErrMalformedAssertion)
	}

	session := webauthn.SessionData{
		Challenge:            ch.EncodedValue(),
		UserID:               ch.UserHandle,
		AllowedCredentialIDs: ch.AllowedCredentialIDs,
	}
	if v.requireUV {
		session.UserVerification = protocol.VerificationRequired
	}

	var (
		verified *webauthn.Credential
		err      error
	)
	if len(ch.UserHandle) == 0 {
		// Discoverable flow: no user was identified at issuance. The
		// credential is already resolved; the handler only checks the
		// assertion's user handle names its registered owner.
		verified, err = v.webauthn.ValidateDiscoverableLogin(
			func(rawID, userHandle []byte) (webauthn.User, error) {
				if !bytes.Equal(rawID, cred.ID) {
					return nil, ErrCredentialNotFound
				}
				if !bytes.Equal(userHandle, cred.UserHandle) {
					return nil, ErrVerificationFailed
				}
				return &credentialHolder{handle: cred.UserHandle, credential: cred}, nil
			},
			session,
			assertion,
		)
	} else {
		holder := &credentialHolder{handle: cred.UserHandle, credential: cred}
		verified, err = v.webauthn.ValidateLogin(holder, session, assertion)
	}
	if err != nil {
		return nil, NewError("validate assertion", fmt.Errorf("%w: %v", ErrVerificationFailed, err))
	}

	// The library reports a counter regression as a warning on the returned
	// credential. For a passwordless core that is a hard failure: the
	// coordinator rejects the attempt and routes it to security monitoring.
	if verified.Authenticator.CloneWarning {
		return nil, NewError("verify counter", ErrClonedAuthenticator)
	}

	return &Verification{
		NewCounter:   verified.Authenticator.SignCount,
		UserVerified: assertion.Response.AuthenticatorData.Flags.UserVerified(),
	}, nil
}
