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
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

// Config is the relying-party configuration for the authentication core.
// It is static deployment configuration, not user data.
type Config struct {
	// RPID is the Relying Party identifier, typically the effective domain.
	// Example: "example.com"
	RPID string `yaml:"id" json:"id"`

	// RPDisplayName is the human-readable name of the Relying Party.
	RPDisplayName string `yaml:"display_name" json:"display_name"`

	// RPOrigins are the origins accepted in assertion client data.
	// Example: []string{"https://example.com", "https://www.example.com"}
	RPOrigins []string `yaml:"origins" json:"origins"`

	// ChallengeTTL is how long an issued challenge stays consumable.
	// Default: 2 minutes.
	ChallengeTTL time.Duration `yaml:"challenge_ttl" json:"challenge_ttl"`

	// ChallengeSize is the challenge entropy in bytes. Minimum 16, default 32.
	ChallengeSize int `yaml:"challenge_size" json:"challenge_size"`

	// RequireUserVerification demands the UV flag (biometric/PIN confirmation)
	// in addition to user presence. Default: true for a passwordless core,
	// since the assertion is the sole authentication factor.
	RequireUserVerification *bool `yaml:"require_user_verification" json:"require_user_verification"`

	// Debug enables debug logging in the underlying verification library.
	Debug bool `yaml:"debug" json:"debug"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.RPID == "" {
		return fmt.Errorf("RPID is required")
	}
	if c.RPDisplayName == "" {
		return fmt.Errorf("RPDisplayName is required")
	}
	if len(c.RPOrigins) == 0 {
		return fmt.Errorf("at least one RPOrigin is required")
	}
	if c.ChallengeSize != 0 && c.ChallengeSize < 16 {
		return fmt.Errorf("challenge size must be at least 16 bytes, got %d", c.ChallengeSize)
	}
	if c.ChallengeTTL < 0 {
		return fmt.Errorf("challenge TTL must be positive")
	}
	return nil
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.ChallengeTTL == 0 {
		c.ChallengeTTL = 2 * time.Minute
	}
	if c.ChallengeSize == 0 {
		c.ChallengeSize = 32
	}
	if c.RequireUserVerification == nil {
		t := true
		c.RequireUserVerification = &t
	}
}

// UserVerificationRequired reports whether the UV flag is demanded.
func (c *Config) UserVerificationRequired() bool {
	return c.RequireUserVerification == nil || *c.RequireUserVerification
}

// ToWebAuthnConfig converts the Config to the go-webauthn library's configuration.
func (c *Config) ToWebAuthnConfig() *webauthn.Config {
	return &webauthn.Config{
		RPID:          c.RPID,
		RPDisplayName: c.RPDisplayName,
		RPOrigins:     c.RPOrigins,
		Debug:         c.Debug,
	}
}
