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

package rest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/jeremyhahn/go-passkey/internal/config"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// buildTokenGenerator constructs the claim token generator from the token
// configuration. Returns nil when token issuance is disabled. Without a
// configured key file an ephemeral ECDSA P-256 key is generated, which
// means issued tokens do not survive a restart.
func buildTokenGenerator(cfg *config.TokenConfig, override crypto.PrivateKey) (passkey.ClaimTokenGenerator, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	key := override
	if key == nil {
		var err error
		if cfg.KeyFile != "" {
			key, err = loadSigningKey(cfg.KeyFile)
		} else {
			key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		}
		if err != nil {
			return nil, err
		}
	}

	generator, err := passkey.NewJWTClaimGenerator(&passkey.JWTClaimGeneratorConfig{
		PrivateKey: key,
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		ExpiresIn:  cfg.ExpiresIn,
	})
	if err != nil {
		return nil, err
	}

	return generator, nil
}

// loadSigningKey reads a PEM-encoded private key from disk. PKCS#8,
// SEC 1 (EC), and PKCS#1 (RSA) encodings are accepted.
func loadSigningKey(path string) (crypto.PrivateKey, error) {
	// #nosec G304 - key file path from trusted config
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in signing key file %s", path)
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	return nil, fmt.Errorf("unsupported private key format in %s", path)
}
