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
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
)

// Coordinator orchestrates the login flow: challenge issuance, challenge
// consumption, credential resolution, assertion verification, counter
// persistence, and claim emission. Each authentication attempt is an
// independent request-scoped operation; there is no retry for verification
// failures, the client must request a fresh challenge.
type Coordinator struct {
	config      *Config
	verifier    *AssertionVerifier
	challenges  ChallengeStore
	credentials CredentialRegistry
	directory   UserDirectory       // optional
	tokens      ClaimTokenGenerator // optional
	events      SecurityEventSink
	configured  bool
}

// CoordinatorParams contains dependencies for creating a Coordinator.
type CoordinatorParams struct {
	// Config is the relying-party configuration (required).
	Config *Config

	// Challenges is the single-use challenge store (required).
	Challenges ChallengeStore

	// Credentials is the credential registry (required).
	Credentials CredentialRegistry

	// Directory resolves target hints to user handles for targeted login.
	// Optional; without it every challenge is issued for the discoverable flow.
	Directory UserDirectory

	// TokenGenerator optionally encodes claims as signed tokens.
	TokenGenerator ClaimTokenGenerator

	// Events receives security events. Defaults to a slog-backed sink.
	Events SecurityEventSink
}

// NewCoordinator creates a new authentication coordinator.
func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.Challenges == nil {
		return nil, fmt.Errorf("challenge store is required")
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("credential registry is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	verifier, err := NewAssertionVerifier(params.Config)
	if err != nil {
		return nil, err
	}

	events := params.Events
	if events == nil {
		events = NewLogSecuritySink(nil)
	}

	return &Coordinator{
		config:      params.Config,
		verifier:    verifier,
		challenges:  params.Challenges,
		credentials: params.Credentials,
		directory:   params.Directory,
		tokens:      params.TokenGenerator,
		events:      events,
		configured:  true,
	}, nil
}

// IssuedChallenge is the transport view of a freshly issued challenge.
type IssuedChallenge struct {
	// SessionID identifies the challenge on submission.
	SessionID string `json:"session_id"`

	// Challenge is the base64url-encoded random value.
	Challenge string `json:"challenge"`

	// AllowedCredentialIDs restricts which credentials may answer, for
	// targeted login. Omitted for the discoverable flow.
	AllowedCredentialIDs []string `json:"allowed_credential_ids,omitempty"`
}

// IssueChallenge creates and stores a fresh challenge.
//
// A non-empty targetHint (e.g. a user email) pre-filters which credentials
// the client may present. A hint that resolves to no user, or a resolved user
// without active credentials, still yields a discoverable-flow challenge so
// an unauthenticated caller cannot probe for account existence.
func (c *Coordinator) IssueChallenge(ctx context.Context, targetHint string) (*IssuedChallenge, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	var userHandle []byte
	var allowed [][]byte

	if targetHint != "" && c.directory != nil {
		handle, err := c.directory.ResolveHint(ctx, targetHint)
		switch {
		case err == nil:
			creds, credErr := c.credentials.FindByUser(ctx, handle)
			if credErr != nil {
				return nil, NewError("list credentials", fmt.Errorf("%w: %v", ErrStoreUnavailable, credErr))
			}
			if len(creds) > 0 {
				userHandle = handle
				allowed = make([][]byte, len(creds))
				for i, cred := range creds {
					allowed[i] = cred.ID
				}
			}
		case IsUserUnknown(err):
			// Fall through to a discoverable challenge.
		default:
			return nil, NewError("resolve hint", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
		}
	}

	ch, err := c.challenges.Issue(ctx, c.config.ChallengeSize, c.config.ChallengeTTL, userHandle, allowed)
	if err != nil {
		return nil, NewError("issue challenge", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}

	issued := &IssuedChallenge{
		SessionID: ch.SessionID,
		Challenge: ch.EncodedValue(),
	}
	for _, id := range ch.AllowedCredentialIDs {
		issued.AllowedCredentialIDs = append(issued.AllowedCredentialIDs,
			base64.RawURLEncoding.EncodeToString(id))
	}
	return issued, nil
}

// AuthResult is the outcome of a successful authentication.
type AuthResult struct {
	// Claim is the proof handed to the external session layer.
	Claim *AuthenticatedClaim

	// Token is the signed claim token, when a generator is configured.
	Token string
}

// SubmitAssertion runs the verification state machine for a submitted
// assertion. The challenge is consumed first; on any challenge failure no
// credential lookup happens, so an already-invalid session cannot probe for
// credential existence. Failures map to the normalized failure reasons via
// ReasonFromError.
func (c *Coordinator) SubmitAssertion(ctx context.Context, sessionID string, assertion *protocol.ParsedCredentialAssertionData) (*AuthResult, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}
	if sessionID == "" || assertion == nil {
		return nil, NewError("submit assertion", ErrMalformedAssertion)
	}

	ch, err := c.challenges.Consume(ctx, sessionID)
	if err != nil {
		if IsChallengeNotFound(err) {
			return nil, WrapError("consume challenge", err)
		}
		return nil, NewError("consume challenge", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}

	cred, err := c.credentials.FindByID(ctx, assertion.RawID)
	if err != nil {
		if IsCredentialNotFound(err) {
			return nil, WrapError("resolve credential", err)
		}
		return nil, NewError("resolve credential", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}

	verification, err := c.verifier.Verify(cred, ch, assertion)
	if err != nil {
		if IsCloneDetected(err) {
			c.flagClone(ctx, cred, assertion.Response.AuthenticatorData.Counter)
		}
		return nil, err
	}

	// The registry re-checks monotonicity against the stored counter under
	// its own lock: a concurrent authentication with the same credential may
	// have advanced it past the snapshot this verification ran against.
	now := time.Now().UTC()
	if err := c.credentials.UpdateAfterUse(ctx, cred.ID, verification.NewCounter, now); err != nil {
		if IsCloneDetected(err) {
			c.flagClone(ctx, cred, verification.NewCounter)
			return nil, WrapError("update credential", err)
		}
		return nil, NewError("update credential", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}

	result := &AuthResult{
		Claim: NewAuthenticatedClaim(cred.UserHandle, cred.ID, now),
	}
	if c.tokens != nil {
		token, err := c.tokens.GenerateToken(ctx, result.Claim)
		if err != nil {
			return nil, NewError("generate token", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
		}
		result.Token = token
	}

	return result, nil
}

// flagClone records a counter regression: the security event fires and the
// credential is marked for manual review. Never auto-deactivates, some
// authenticator firmware regresses counters legitimately.
func (c *Coordinator) flagClone(ctx context.Context, cred *Credential, reportedCounter uint32) {
	c.events.CloneDetected(ctx, cred.ID, cred.SignCount, reportedCounter)
	if err := c.credentials.FlagClone(ctx, cred.ID); err != nil {
		slog.Default().ErrorContext(ctx, "failed to flag cloned credential",
			"credential_id", base64.RawURLEncoding.EncodeToString(cred.ID),
			"error", err)
	}
}

// Config returns the coordinator configuration.
func (c *Coordinator) Config() *Config {
	return c.config
}
