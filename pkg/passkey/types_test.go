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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChallenge_EncodedValue(t *testing.T) {
	ch := &Challenge{Value: []byte{0xde, 0xad, 0xbe, 0xef}}

	encoded := ch.EncodedValue()
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	assert.NoError(t, err)
	assert.Equal(t, ch.Value, decoded)
}

func TestChallenge_Expired(t *testing.T) {
	now := time.Now()
	ch := &Challenge{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, ch.Expired(now))
	assert.True(t, ch.Expired(now.Add(time.Minute)))
	assert.True(t, ch.Expired(now.Add(2*time.Minute)))
}

func TestCredential_ToWebAuthn(t *testing.T) {
	cred := &Credential{
		ID:              []byte("cred-id"),
		PublicKey:       []byte("cose-key"),
		AttestationType: "none",
		SignCount:       7,
	}

	wc := cred.ToWebAuthn()
	assert.Equal(t, cred.ID, wc.ID)
	assert.Equal(t, cred.PublicKey, wc.PublicKey)
	assert.Equal(t, "none", wc.AttestationType)
	assert.Equal(t, uint32(7), wc.Authenticator.SignCount)
}

func TestNewAuthenticatedClaim(t *testing.T) {
	verifiedAt := time.Now().UTC()
	claim := NewAuthenticatedClaim([]byte("user-1"), []byte("cred-1"), verifiedAt)

	assert.Equal(t, base64.RawURLEncoding.EncodeToString([]byte("user-1")), claim.UserID)
	assert.Equal(t, base64.RawURLEncoding.EncodeToString([]byte("cred-1")), claim.CredentialID)
	assert.Equal(t, verifiedAt, claim.VerifiedAt)
}

func TestCredentialHolder(t *testing.T) {
	cred := &Credential{
		ID:         []byte("cred-1"),
		UserHandle: []byte("user-1"),
		PublicKey:  []byte("cose-key"),
	}
	holder := &credentialHolder{handle: cred.UserHandle, credential: cred}

	assert.Equal(t, []byte("user-1"), holder.WebAuthnID())
	assert.Equal(t, holder.WebAuthnName(), holder.WebAuthnDisplayName())

	creds := holder.WebAuthnCredentials()
	assert.Len(t, creds, 1)
	assert.Equal(t, []byte("cred-1"), creds[0].ID)
}
