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

package http

import "github.com/jeremyhahn/go-passkey/pkg/passkey"

// ChallengeRequest is the request body for challenge issuance.
type ChallengeRequest struct {
	// TargetHint optionally pre-identifies the user, e.g. an email address.
	// Empty or unresolvable hints yield a discoverable-flow challenge.
	TargetHint string `json:"target_hint,omitempty"`
}

// ChallengeResponse is the response body for a freshly issued challenge.
type ChallengeResponse struct {
	// SessionID must be echoed back on assertion submission.
	SessionID string `json:"session_id"`

	// Challenge is the base64url-encoded random value for the authenticator
	// to sign over.
	Challenge string `json:"challenge"`

	// AllowedCredentialIDs restricts which credentials may answer, present
	// only for targeted login.
	AllowedCredentialIDs []string `json:"allowed_credential_ids,omitempty"`
}

// AssertionPayload carries the authenticator's assertion. All binary fields
// are base64url encoded.
type AssertionPayload struct {
	// CredentialID identifies the credential that produced the assertion.
	CredentialID string `json:"credential_id"`

	// ClientDataJSON is the serialized client data signed over.
	ClientDataJSON string `json:"client_data_json"`

	// AuthenticatorData carries the RP ID hash, flags, and counter.
	AuthenticatorData string `json:"authenticator_data"`

	// Signature is the assertion signature.
	Signature string `json:"signature"`

	// UserHandle names the credential's owner; required for the
	// discoverable flow.
	UserHandle string `json:"user_handle,omitempty"`
}

// AssertRequest is the request body for assertion submission.
type AssertRequest struct {
	// SessionID is the session from the challenge response.
	SessionID string `json:"session_id"`

	// Assertion is the authenticator's response.
	Assertion *AssertionPayload `json:"assertion"`
}

// LoginResponse is the response body for assertion submission, for both
// outcomes.
type LoginResponse struct {
	// Verified reports whether authentication succeeded.
	Verified bool `json:"verified"`

	// Claim is present on success.
	Claim *passkey.AuthenticatedClaim `json:"claim,omitempty"`

	// Token is the signed claim token, when the coordinator has a generator.
	Token string `json:"token,omitempty"`

	// Reason is the normalized failure reason, present on failure.
	Reason string `json:"reason,omitempty"`
}

// ErrorResponse is the response format for malformed requests.
type ErrorResponse struct {
	// Error is the error code.
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// Error codes returned in ErrorResponse.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInternalError  = "internal_error"
)
