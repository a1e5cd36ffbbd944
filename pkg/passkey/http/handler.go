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

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// Handler provides HTTP handlers for the passwordless login flow.
// These handlers can be mounted on any HTTP router.
type Handler struct {
	coordinator *passkey.Coordinator
	logger      *slog.Logger
}

// NewHandler creates a new login HTTP handler.
func NewHandler(coordinator *passkey.Coordinator) *Handler {
	return &Handler{
		coordinator: coordinator,
		logger:      slog.Default(),
	}
}

// WithLogger sets a custom logger for the handler.
func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.logger = logger
	return h
}

// IssueChallenge handles POST /challenge
//
// Request body (optional):
//
//	{
//	    "target_hint": "user@example.com"
//	}
//
// Response: ChallengeResponse with session ID and challenge.
func (h *Handler) IssueChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req ChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		// Empty body means a plain discoverable-flow challenge; anything
		// else malformed is rejected.
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	issued, err := h.coordinator.IssueChallenge(r.Context(), req.TargetHint)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "challenge issuance failed", "error", err)
		h.writeFailure(w, passkey.ReasonFromError(err))
		return
	}

	h.writeJSON(w, http.StatusOK, ChallengeResponse{
		SessionID:            issued.SessionID,
		Challenge:            issued.Challenge,
		AllowedCredentialIDs: issued.AllowedCredentialIDs,
	})
}

// SubmitAssertion handles POST /assert
//
// Request body: AssertRequest with the session ID and assertion.
// Response: LoginResponse. Protocol-level failures answer 401 with a
// normalized reason; store outages answer 503; structurally invalid
// payloads answer 400 with an ErrorResponse.
func (h *Handler) SubmitAssertion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req AssertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "session_id is required")
		return
	}
	if req.Assertion == nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "assertion is required")
		return
	}

	assertion, err := parseAssertion(req.Assertion)
	if err != nil {
		h.logger.DebugContext(r.Context(), "malformed assertion rejected", "error", err)
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid assertion")
		return
	}

	result, err := h.coordinator.SubmitAssertion(r.Context(), req.SessionID, assertion)
	if err != nil {
		reason := passkey.ReasonFromError(err)
		// Raw crypto material never reaches the log; the reason and
		// credential ID are enough to correlate.
		h.logger.InfoContext(r.Context(), "authentication rejected",
			"reason", string(reason),
			"credential_id", req.Assertion.CredentialID)
		h.writeFailure(w, reason)
		return
	}

	h.logger.InfoContext(r.Context(), "authentication succeeded",
		"user_id", result.Claim.UserID,
		"credential_id", result.Claim.CredentialID)

	h.writeJSON(w, http.StatusOK, LoginResponse{
		Verified: true,
		Claim:    result.Claim,
		Token:    result.Token,
	})
}

// parseAssertion converts the transport payload into the library's parsed
// assertion form, running its structural validation.
func parseAssertion(payload *AssertionPayload) (*protocol.ParsedCredentialAssertionData, error) {
	rawID, err := decodeField("credential_id", payload.CredentialID, true)
	if err != nil {
		return nil, err
	}
	clientData, err := decodeField("client_data_json", payload.ClientDataJSON, true)
	if err != nil {
		return nil, err
	}
	authData, err := decodeField("authenticator_data", payload.AuthenticatorData, true)
	if err != nil {
		return nil, err
	}
	signature, err := decodeField("signature", payload.Signature, true)
	if err != nil {
		return nil, err
	}
	userHandle, err := decodeField("user_handle", payload.UserHandle, false)
	if err != nil {
		return nil, err
	}

	car := protocol.CredentialAssertionResponse{
		PublicKeyCredential: protocol.PublicKeyCredential{
			Credential: protocol.Credential{
				ID:   base64.RawURLEncoding.EncodeToString(rawID),
				Type: "public-key",
			},
			RawID: rawID,
		},
		AssertionResponse: protocol.AuthenticatorAssertionResponse{
			AuthenticatorResponse: protocol.AuthenticatorResponse{
				ClientDataJSON: clientData,
			},
			AuthenticatorData: authData,
			Signature:         signature,
			UserHandle:        userHandle,
		},
	}
	return car.Parse()
}

// decodeField decodes a base64url transport field, tolerating padding.
func decodeField(name, value string, required bool) ([]byte, error) {
	if value == "" {
		if required {
			return nil, errors.New(name + " is required")
		}
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil {
		return nil, errors.New(name + " is not valid base64url")
	}
	return decoded, nil
}

// writeFailure writes the normalized failure envelope for a reason.
func (h *Handler) writeFailure(w http.ResponseWriter, reason passkey.Reason) {
	status := http.StatusUnauthorized
	if reason == passkey.ReasonServiceUnavailable {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, LoginResponse{
		Verified: false,
		Reason:   string(reason),
	})
}

// writeError writes an ErrorResponse for a malformed request.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response headers already written, can only log the error
		h.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status)
	}
}
