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
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newECDSAGenerator(t *testing.T, cfg JWTClaimGeneratorConfig) *JWTClaimGenerator {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	cfg.PrivateKey = key

	gen, err := NewJWTClaimGenerator(&cfg)
	require.NoError(t, err)
	return gen
}

func TestJWTClaimGenerator_Validation(t *testing.T) {
	_, err := NewJWTClaimGenerator(nil)
	assert.ErrorContains(t, err, "config is required")

	_, err = NewJWTClaimGenerator(&JWTClaimGeneratorConfig{})
	assert.ErrorContains(t, err, "private key is required")

	_, err = NewJWTClaimGenerator(&JWTClaimGeneratorConfig{PrivateKey: "not a key"})
	assert.ErrorContains(t, err, "unsupported private key type")
}

func TestJWTClaimGenerator_Defaults(t *testing.T) {
	gen := newECDSAGenerator(t, JWTClaimGeneratorConfig{})

	assert.Equal(t, "go-passkey", gen.Issuer())
	assert.Equal(t, 5*time.Minute, gen.ExpiresIn())
	assert.NotNil(t, gen.PublicKey())
}

func TestJWTClaimGenerator_RoundTrip(t *testing.T) {
	gen := newECDSAGenerator(t, JWTClaimGeneratorConfig{
		Issuer:    "login.example.com",
		Audience:  []string{"app.example.com"},
		ExpiresIn: time.Minute,
	})

	verifiedAt := time.Now().UTC()
	claim := NewAuthenticatedClaim([]byte("user-1"), []byte("cred-1"), verifiedAt)

	token, err := gen.GenerateToken(context.Background(), claim)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := gen.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, claim.UserID, claims["sub"])
	assert.Equal(t, claim.CredentialID, claims["credential_id"])
	assert.Equal(t, "login.example.com", claims["iss"])
	assert.Equal(t, verifiedAt.Format(time.RFC3339Nano), claims["verified_at"])
}

func TestJWTClaimGenerator_NilClaim(t *testing.T) {
	gen := newECDSAGenerator(t, JWTClaimGeneratorConfig{})

	_, err := gen.GenerateToken(context.Background(), nil)
	assert.ErrorContains(t, err, "claim is required")
}

func TestJWTClaimGenerator_RejectsTampered(t *testing.T) {
	gen := newECDSAGenerator(t, JWTClaimGeneratorConfig{})

	claim := NewAuthenticatedClaim([]byte("user-1"), []byte("cred-1"), time.Now())
	token, err := gen.GenerateToken(context.Background(), claim)
	require.NoError(t, err)

	_, err = gen.VerifyToken(token + "x")
	assert.Error(t, err)
}

func TestJWTClaimGenerator_RejectsForeignToken(t *testing.T) {
	gen := newECDSAGenerator(t, JWTClaimGeneratorConfig{})
	other := newECDSAGenerator(t, JWTClaimGeneratorConfig{})

	claim := NewAuthenticatedClaim([]byte("user-1"), []byte("cred-1"), time.Now())
	token, err := other.GenerateToken(context.Background(), claim)
	require.NoError(t, err)

	_, err = gen.VerifyToken(token)
	assert.Error(t, err)
}

func TestJWTClaimGenerator_KeyTypes(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	for name, key := range map[string]interface{}{
		"rsa":     rsaKey,
		"ed25519": edKey,
	} {
		t.Run(name, func(t *testing.T) {
			gen, err := NewJWTClaimGenerator(&JWTClaimGeneratorConfig{PrivateKey: key})
			require.NoError(t, err)

			claim := NewAuthenticatedClaim([]byte("user-1"), []byte("cred-1"), time.Now())
			token, err := gen.GenerateToken(context.Background(), claim)
			require.NoError(t, err)

			claims, err := gen.VerifyToken(token)
			require.NoError(t, err)
			assert.Equal(t, claim.UserID, claims["sub"])
		})
	}
}
