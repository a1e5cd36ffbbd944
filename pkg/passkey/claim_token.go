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
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaimGenerator encodes AuthenticatedClaims as signed JWTs for the
// external session layer. The token restates the claim; it grants nothing
// the session layer does not decide to grant.
type JWTClaimGenerator struct {
	privateKey crypto.PrivateKey
	publicKey  crypto.PublicKey
	method     jwt.SigningMethod
	issuer     string
	audience   []string
	expiresIn  time.Duration
	keyID      string
}

// JWTClaimGeneratorConfig contains configuration for the claim token generator.
type JWTClaimGeneratorConfig struct {
	// PrivateKey is the signing key (required). ECDSA P-256, RSA, and
	// Ed25519 keys are supported.
	PrivateKey crypto.PrivateKey
	// Issuer is the JWT issuer claim (default: "go-passkey").
	Issuer string
	// Audience is the JWT audience claim (default: ["go-passkey"]).
	Audience []string
	// ExpiresIn is how long tokens are valid (default: 5 minutes; the token
	// only bridges the handoff to the session layer).
	ExpiresIn time.Duration
	// KeyID is the key identifier for the kid header (optional).
	KeyID string
}

// NewJWTClaimGenerator creates a claim token generator with the given configuration.
func NewJWTClaimGenerator(config *JWTClaimGeneratorConfig) (*JWTClaimGenerator, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.PrivateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	var method jwt.SigningMethod
	var publicKey crypto.PublicKey
	switch key := config.PrivateKey.(type) {
	case *ecdsa.PrivateKey:
		method = jwt.SigningMethodES256
		publicKey = key.Public()
	case *rsa.PrivateKey:
		method = jwt.SigningMethodRS256
		publicKey = key.Public()
	case ed25519.PrivateKey:
		method = jwt.SigningMethodEdDSA
		publicKey = key.Public()
	default:
		return nil, fmt.Errorf("unsupported private key type %T", config.PrivateKey)
	}

	issuer := config.Issuer
	if issuer == "" {
		issuer = "go-passkey"
	}

	audience := config.Audience
	if len(audience) == 0 {
		audience = []string{"go-passkey"}
	}

	expiresIn := config.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 5 * time.Minute
	}

	return &JWTClaimGenerator{
		privateKey: config.PrivateKey,
		publicKey:  publicKey,
		method:     method,
		issuer:     issuer,
		audience:   audience,
		expiresIn:  expiresIn,
		keyID:      config.KeyID,
	}, nil
}

// GenerateToken creates a JWT carrying the authenticated claim.
func (g *JWTClaimGenerator) GenerateToken(ctx context.Context, claim *AuthenticatedClaim) (string, error) {
	if claim == nil {
		return "", fmt.Errorf("claim is required")
	}

	now := time.Now()
	token := jwt.NewWithClaims(g.method, jwt.MapClaims{
		"iss": g.issuer,
		"aud": g.audience,
		"sub": claim.UserID,
		"iat": now.Unix(),
		"exp": now.Add(g.expiresIn).Unix(),
		"nbf": now.Unix(),
		// Custom claims
		"credential_id": claim.CredentialID,
		"verified_at":   claim.VerifiedAt.UTC().Format(time.RFC3339Nano),
	})
	if g.keyID != "" {
		token.Header["kid"] = g.keyID
	}

	return token.SignedString(g.privateKey)
}

// VerifyToken verifies a claim token and returns its claims.
func (g *JWTClaimGenerator) VerifyToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != g.method.Alg() {
				return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
			}
			return g.publicKey, nil
		},
		jwt.WithIssuer(g.issuer),
		jwt.WithAudience(g.audience[0]),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}
	return claims, nil
}

// PublicKey returns the public key for token verification.
func (g *JWTClaimGenerator) PublicKey() crypto.PublicKey {
	return g.publicKey
}

// Issuer returns the configured issuer.
func (g *JWTClaimGenerator) Issuer() string {
	return g.issuer
}

// ExpiresIn returns the token expiration duration.
func (g *JWTClaimGenerator) ExpiresIn() time.Duration {
	return g.expiresIn
}
