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
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRPID   = "example.com"
	testOrigin = "https://example.com"
)

type handlerFixture struct {
	handler  *Handler
	registry *passkey.MemoryCredentialRegistry
}

type staticDirectory struct {
	users map[string][]byte
}

func (d *staticDirectory) ResolveHint(ctx context.Context, hint string) ([]byte, error) {
	handle, ok := d.users[hint]
	if !ok {
		return nil, passkey.ErrUserUnknown
	}
	return handle, nil
}

func newHandlerFixture(t *testing.T, directory passkey.UserDirectory) *handlerFixture {
	t.Helper()

	registry := passkey.NewMemoryCredentialRegistry()
	coordinator, err := passkey.NewCoordinator(passkey.CoordinatorParams{
		Config: &passkey.Config{
			RPID:          testRPID,
			RPDisplayName: "Example",
			RPOrigins:     []string{testOrigin},
		},
		Challenges:  passkey.NewMemoryChallengeStore(),
		Credentials: registry,
		Directory:   directory,
	})
	require.NoError(t, err)

	return &handlerFixture{
		handler:  NewHandler(coordinator),
		registry: registry,
	}
}

func (f *handlerFixture) enroll(t *testing.T, userHandle []byte) *passkey.MockAuthenticator {
	t.Helper()

	auth, err := passkey.NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	cred, err := auth.Enroll(userHandle)
	require.NoError(t, err)
	require.NoError(t, f.registry.Register(context.Background(), cred))
	return auth
}

// payloadFromAssertion converts a mock assertion into the transport payload.
func payloadFromAssertion(a *protocol.ParsedCredentialAssertionData) *AssertionPayload {
	enc := base64.RawURLEncoding.EncodeToString
	return &AssertionPayload{
		CredentialID:      enc(a.Raw.RawID),
		ClientDataJSON:    enc(a.Raw.AssertionResponse.ClientDataJSON),
		AuthenticatorData: enc(a.Raw.AssertionResponse.AuthenticatorData),
		Signature:         enc(a.Raw.AssertionResponse.Signature),
		UserHandle:        enc(a.Raw.AssertionResponse.UserHandle),
	}
}

func (f *handlerFixture) requestChallenge(t *testing.T, body io.Reader) *ChallengeResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/challenge", body)
	rec := httptest.NewRecorder()
	f.handler.IssueChallenge(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChallengeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return &resp
}

func (f *handlerFixture) submit(t *testing.T, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if s, ok := body.(string); ok {
		reader = strings.NewReader(s)
	} else {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(http.MethodPost, "/assert", reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.SubmitAssertion(rec, req)
	return rec
}

func TestHandler_IssueChallenge(t *testing.T) {
	f := newHandlerFixture(t, nil)

	resp := f.requestChallenge(t, nil)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.Challenge)
	assert.Empty(t, resp.AllowedCredentialIDs)

	decoded, err := base64.RawURLEncoding.DecodeString(resp.Challenge)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)
}

func TestHandler_IssueChallengeTargeted(t *testing.T) {
	userHandle := []byte("user-1")
	f := newHandlerFixture(t, &staticDirectory{
		users: map[string][]byte{"alice@example.com": userHandle},
	})
	auth := f.enroll(t, userHandle)

	body := strings.NewReader(`{"target_hint":"alice@example.com"}`)
	resp := f.requestChallenge(t, body)
	require.Len(t, resp.AllowedCredentialIDs, 1)
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(auth.CredentialID), resp.AllowedCredentialIDs[0])
}

func TestHandler_IssueChallengeUnknownHint(t *testing.T) {
	f := newHandlerFixture(t, &staticDirectory{users: map[string][]byte{}})

	// An unknown hint is indistinguishable from a known one without
	// credentials.
	resp := f.requestChallenge(t, strings.NewReader(`{"target_hint":"nobody@example.com"}`))
	assert.NotEmpty(t, resp.SessionID)
	assert.Empty(t, resp.AllowedCredentialIDs)
}

func TestHandler_IssueChallengeMalformed(t *testing.T) {
	f := newHandlerFixture(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/challenge", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	f.handler.IssueChallenge(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, ErrorCodeInvalidRequest, errResp.Error)
}

func TestHandler_IssueChallengeWrongMethod(t *testing.T) {
	f := newHandlerFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/challenge", nil)
	rec := httptest.NewRecorder()
	f.handler.IssueChallenge(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_SubmitAssertion(t *testing.T) {
	f := newHandlerFixture(t, nil)
	userHandle := []byte("user-1")
	auth := f.enroll(t, userHandle)

	challenge := f.requestChallenge(t, nil)
	value, err := base64.RawURLEncoding.DecodeString(challenge.Challenge)
	require.NoError(t, err)

	assertion, err := auth.CreateAssertionResponse(value, userHandle, testOrigin)
	require.NoError(t, err)

	rec := f.submit(t, AssertRequest{
		SessionID: challenge.SessionID,
		Assertion: payloadFromAssertion(assertion),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Verified)
	require.NotNil(t, resp.Claim)
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(userHandle), resp.Claim.UserID)
	assert.Empty(t, resp.Reason)
}

func TestHandler_SubmitAssertionReplay(t *testing.T) {
	f := newHandlerFixture(t, nil)
	userHandle := []byte("user-1")
	auth := f.enroll(t, userHandle)

	challenge := f.requestChallenge(t, nil)
	value, err := base64.RawURLEncoding.DecodeString(challenge.Challenge)
	require.NoError(t, err)

	assertion, err := auth.CreateAssertionResponse(value, userHandle, testOrigin)
	require.NoError(t, err)

	request := AssertRequest{
		SessionID: challenge.SessionID,
		Assertion: payloadFromAssertion(assertion),
	}

	rec := f.submit(t, request)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.submit(t, request)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Verified)
	assert.Equal(t, string(passkey.ReasonInvalidOrExpiredChallenge), resp.Reason)
	assert.Nil(t, resp.Claim)
}

func TestHandler_SubmitAssertionUnknownCredential(t *testing.T) {
	f := newHandlerFixture(t, nil)

	// Valid crypto from an authenticator nothing was registered for.
	auth, err := passkey.NewMockAuthenticator(testRPID)
	require.NoError(t, err)

	challenge := f.requestChallenge(t, nil)
	value, err := base64.RawURLEncoding.DecodeString(challenge.Challenge)
	require.NoError(t, err)

	assertion, err := auth.CreateAssertionResponse(value, []byte("user-1"), testOrigin)
	require.NoError(t, err)

	rec := f.submit(t, AssertRequest{
		SessionID: challenge.SessionID,
		Assertion: payloadFromAssertion(assertion),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, string(passkey.ReasonUnknownCredential), resp.Reason)
}

func TestHandler_SubmitAssertionValidation(t *testing.T) {
	f := newHandlerFixture(t, nil)

	valid := &AssertionPayload{
		CredentialID:      "Y3JlZC0x",
		ClientDataJSON:    "e30",
		AuthenticatorData: "AAAA",
		Signature:         "AAAA",
	}

	tests := []struct {
		name string
		body interface{}
	}{
		{
			name: "invalid body",
			body: "not json",
		},
		{
			name: "missing session id",
			body: AssertRequest{Assertion: valid},
		},
		{
			name: "missing assertion",
			body: AssertRequest{SessionID: "session"},
		},
		{
			name: "bad base64",
			body: AssertRequest{
				SessionID: "session",
				Assertion: &AssertionPayload{
					CredentialID:      "!!!not-base64!!!",
					ClientDataJSON:    valid.ClientDataJSON,
					AuthenticatorData: valid.AuthenticatorData,
					Signature:         valid.Signature,
				},
			},
		},
		{
			name: "missing signature",
			body: AssertRequest{
				SessionID: "session",
				Assertion: &AssertionPayload{
					CredentialID:      valid.CredentialID,
					ClientDataJSON:    valid.ClientDataJSON,
					AuthenticatorData: valid.AuthenticatorData,
				},
			},
		},
		{
			name: "undecodable assertion",
			body: AssertRequest{SessionID: "session", Assertion: valid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.submit(t, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var errResp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
			assert.Equal(t, ErrorCodeInvalidRequest, errResp.Error)
		})
	}
}

func TestHandler_SubmitAssertionWrongMethod(t *testing.T) {
	f := newHandlerFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/assert", nil)
	rec := httptest.NewRecorder()
	f.handler.SubmitAssertion(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
