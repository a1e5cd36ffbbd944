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

// Package config loads and validates the passkey server configuration
// from a YAML file with environment variable overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level passkey server configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	RelyingParty RelyingPartyConfig `yaml:"relying_party"`
	Token        TokenConfig        `yaml:"token"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TLS             TLSConfig     `yaml:"tls"`
}

// TLSConfig controls transport security for the HTTP listener
type TLSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	MinVersion string `yaml:"min_version"` // TLS1.2 or TLS1.3
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig controls Prometheus metrics exposure
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RelyingPartyConfig describes the WebAuthn relying party
type RelyingPartyConfig struct {
	ID                      string        `yaml:"id"`
	DisplayName             string        `yaml:"display_name"`
	Origins                 []string      `yaml:"origins"`
	ChallengeTTL            time.Duration `yaml:"challenge_ttl"`
	ChallengeSize           int           `yaml:"challenge_size"`
	RequireUserVerification *bool         `yaml:"require_user_verification,omitempty"`
}

// TokenConfig controls signed claim token issuance. When KeyFile is
// empty the server generates an ephemeral signing key at startup.
type TokenConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Issuer    string        `yaml:"issuer"`
	Audience  []string      `yaml:"audience"`
	ExpiresIn time.Duration `yaml:"expires_in"`
	KeyFile   string        `yaml:"key_file"`
}

// DefaultConfig returns a configuration suitable for local development
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8443,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		RelyingParty: RelyingPartyConfig{
			ID:            "localhost",
			DisplayName:   "go-passkey",
			Origins:       []string{"https://localhost:8443"},
			ChallengeTTL:  2 * time.Minute,
			ChallengeSize: 32,
		},
		Token: TokenConfig{
			Enabled:   true,
			Issuer:    "go-passkey",
			Audience:  []string{"go-passkey"},
			ExpiresIn: 5 * time.Minute,
		},
	}
}

// Load reads configuration from a YAML file, applies environment
// variable overrides, and validates the result
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		// #nosec G304 - config file path from trusted CLI flag
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies PASSKEY_* environment variables on top of
// the loaded configuration
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("PASSKEY_HOST"); host != "" {
		cfg.Server.Host = host
	}

	if port := os.Getenv("PASSKEY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 && p <= 65535 {
			cfg.Server.Port = p
		} else {
			log.Printf("Warning: invalid PASSKEY_PORT value %q, using default %d", port, cfg.Server.Port)
		}
	}

	if level := os.Getenv("PASSKEY_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if format := os.Getenv("PASSKEY_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if metrics := os.Getenv("PASSKEY_METRICS_ENABLED"); metrics != "" {
		if b, err := strconv.ParseBool(metrics); err == nil {
			cfg.Metrics.Enabled = b
		} else {
			log.Printf("Warning: invalid PASSKEY_METRICS_ENABLED value %q, ignoring", metrics)
		}
	}

	if rpID := os.Getenv("PASSKEY_RP_ID"); rpID != "" {
		cfg.RelyingParty.ID = rpID
	}

	if origins := os.Getenv("PASSKEY_RP_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			cfg.RelyingParty.Origins = trimmed
		}
	}

	if ttl := os.Getenv("PASSKEY_CHALLENGE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.RelyingParty.ChallengeTTL = d
		} else {
			log.Printf("Warning: invalid PASSKEY_CHALLENGE_TTL value %q, using default %s", ttl, cfg.RelyingParty.ChallengeTTL)
		}
	}

	if issuer := os.Getenv("PASSKEY_TOKEN_ISSUER"); issuer != "" {
		cfg.Token.Issuer = issuer
	}

	if keyFile := os.Getenv("PASSKEY_TOKEN_KEY_FILE"); keyFile != "" {
		cfg.Token.KeyFile = keyFile
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics path is required when metrics are enabled")
	}

	if c.RelyingParty.ID == "" {
		return fmt.Errorf("relying party ID is required")
	}
	if len(c.RelyingParty.Origins) == 0 {
		return fmt.Errorf("at least one relying party origin is required")
	}
	for _, origin := range c.RelyingParty.Origins {
		if !strings.HasPrefix(origin, "https://") && !strings.HasPrefix(origin, "http://localhost") {
			return fmt.Errorf("relying party origin must use https: %s", origin)
		}
	}
	if c.RelyingParty.ChallengeTTL <= 0 {
		return fmt.Errorf("challenge TTL must be positive, got %s", c.RelyingParty.ChallengeTTL)
	}
	if c.RelyingParty.ChallengeSize < 16 {
		return fmt.Errorf("challenge size must be at least 16 bytes, got %d", c.RelyingParty.ChallengeSize)
	}

	if c.Token.Enabled {
		if c.Token.Issuer == "" {
			return fmt.Errorf("token issuer is required when token issuance is enabled")
		}
		if c.Token.ExpiresIn <= 0 {
			return fmt.Errorf("token expiry must be positive, got %s", c.Token.ExpiresIn)
		}
	}

	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("TLS cert_file and key_file are required when TLS is enabled")
		}
	}

	return nil
}

// Address returns the host:port the server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
