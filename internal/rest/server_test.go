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
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-passkey/internal/config"
	"github.com/jeremyhahn/go-passkey/pkg/correlation"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	passkeyhttp "github.com/jeremyhahn/go-passkey/pkg/passkey/http"
)

const (
	testRPID   = "example.com"
	testOrigin = "https://example.com"
)

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

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "error"
	cfg.RelyingParty.ID = testRPID
	cfg.RelyingParty.DisplayName = "Example"
	cfg.RelyingParty.Origins = []string{testOrigin}
	return cfg
}

type serverFixture struct {
	server   *Server
	registry *passkey.MemoryCredentialRegistry
}

func newServerFixture(t *testing.T, customize func(*ServerParams)) *serverFixture {
	t.Helper()

	registry := passkey.NewMemoryCredentialRegistry()
	params := ServerParams{
		Config:   testConfig(),
		Registry: registry,
		Version:  "test",
	}
	if customize != nil {
		customize(&params)
	}

	server, err := NewServer(params)
	require.NoError(t, err)

	return &serverFixture{server: server, registry: registry}
}

func (f *serverFixture) enroll(t *testing.T, userHandle []byte) *passkey.MockAuthenticator {
	t.Helper()

	auth, err := passkey.NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	cred, err := auth.Enroll(userHandle)
	require.NoError(t, err)
	require.NoError(t, f.registry.Register(context.Background(), cred))
	return auth
}

func (f *serverFixture) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) requestChallenge(t *testing.T, hint string) *passkeyhttp.ChallengeResponse {
	t.Helper()

	var body io.Reader
	if hint != "" {
		b, err := json.Marshal(passkeyhttp.ChallengeRequest{TargetHint: hint})
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}

	rec := f.do(t, http.MethodPost, "/api/v1/auth/challenge", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp passkeyhttp.ChallengeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return &resp
}

func (f *serverFixture) submitAssertion(t *testing.T, sessionID string, a *protocol.ParsedCredentialAssertionData) *httptest.ResponseRecorder {
	t.Helper()

	enc := base64.RawURLEncoding.EncodeToString
	req := passkeyhttp.AssertRequest{
		SessionID: sessionID,
		Assertion: &passkeyhttp.AssertionPayload{
			CredentialID:      enc(a.Raw.RawID),
			ClientDataJSON:    enc(a.Raw.AssertionResponse.ClientDataJSON),
			AuthenticatorData: enc(a.Raw.AssertionResponse.AuthenticatorData),
			Signature:         enc(a.Raw.AssertionResponse.Signature),
			UserHandle:        enc(a.Raw.AssertionResponse.UserHandle),
		},
	}
	b, err := json.Marshal(req)
	require.NoError(t, err)

	return f.do(t, http.MethodPost, "/api/v1/auth/assert", bytes.NewReader(b))
}

func TestNewServerRequiresConfig(t *testing.T) {
	_, err := NewServer(ServerParams{})
	assert.Error(t, err)
}

func TestNewServerDefaults(t *testing.T) {
	server, err := NewServer(ServerParams{Config: testConfig()})
	require.NoError(t, err)

	assert.NotNil(t, server.Handler())
	assert.NotNil(t, server.Registry())
	assert.NotNil(t, server.Coordinator())
}

func TestHealthEndpoints(t *testing.T) {
	f := newServerFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthCheckResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newServerFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetricsEndpointDisabled(t *testing.T) {
	f := newServerFixture(t, func(p *ServerParams) {
		p.Config.Metrics.Enabled = false
	})

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCorrelationHeaderEchoed(t *testing.T) {
	f := newServerFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(correlation.CorrelationIDHeader, "test-correlation-id")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "test-correlation-id", rec.Header().Get(correlation.CorrelationIDHeader))
}

func TestCorrelationHeaderGenerated(t *testing.T) {
	f := newServerFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/health/live", nil)

	id := rec.Header().Get(correlation.CorrelationIDHeader)
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestDiscoverableAuthenticationFlow(t *testing.T) {
	f := newServerFixture(t, nil)
	userHandle := []byte("user-1")
	auth := f.enroll(t, userHandle)

	challenge := f.requestChallenge(t, "")
	challengeBytes, err := base64.RawURLEncoding.DecodeString(challenge.Challenge)
	require.NoError(t, err)

	assertion, err := auth.CreateAssertionResponse(challengeBytes, userHandle, testOrigin)
	require.NoError(t, err)

	rec := f.submitAssertion(t, challenge.SessionID, assertion)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp passkeyhttp.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Verified)
	require.NotNil(t, resp.Claim)
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(userHandle), resp.Claim.UserID)
	assert.NotEmpty(t, resp.Token)
}

func TestTargetedAuthenticationFlow(t *testing.T) {
	userHandle := []byte("user-2")
	f := newServerFixture(t, func(p *ServerParams) {
		p.Directory = &staticDirectory{users: map[string][]byte{
			"alice@example.com": userHandle,
		}}
	})
	auth := f.enroll(t, userHandle)

	challenge := f.requestChallenge(t, "alice@example.com")
	require.NotEmpty(t, challenge.AllowedCredentialIDs)

	challengeBytes, err := base64.RawURLEncoding.DecodeString(challenge.Challenge)
	require.NoError(t, err)

	assertion, err := auth.CreateAssertionResponse(challengeBytes, userHandle, testOrigin)
	require.NoError(t, err)

	rec := f.submitAssertion(t, challenge.SessionID, assertion)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReplayRejected(t *testing.T) {
	f := newServerFixture(t, nil)
	userHandle := []byte("user-3")
	auth := f.enroll(t, userHandle)

	challenge := f.requestChallenge(t, "")
	challengeBytes, err := base64.RawURLEncoding.DecodeString(challenge.Challenge)
	require.NoError(t, err)

	assertion, err := auth.CreateAssertionResponse(challengeBytes, userHandle, testOrigin)
	require.NoError(t, err)

	rec := f.submitAssertion(t, challenge.SessionID, assertion)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.submitAssertion(t, challenge.SessionID, assertion)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp passkeyhttp.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Verified)
	assert.Equal(t, string(passkey.ReasonInvalidOrExpiredChallenge), resp.Reason)
}

func TestTokenDisabled(t *testing.T) {
	f := newServerFixture(t, func(p *ServerParams) {
		p.Config.Token.Enabled = false
	})
	userHandle := []byte("user-4")
	auth := f.enroll(t, userHandle)

	challenge := f.requestChallenge(t, "")
	challengeBytes, err := base64.RawURLEncoding.DecodeString(challenge.Challenge)
	require.NoError(t, err)

	assertion, err := auth.CreateAssertionResponse(challengeBytes, userHandle, testOrigin)
	require.NoError(t, err)

	rec := f.submitAssertion(t, challenge.SessionID, assertion)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp passkeyhttp.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Verified)
	assert.Empty(t, resp.Token)
}

func TestMalformedAssertionRejected(t *testing.T) {
	f := newServerFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/assert", strings.NewReader("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	f := newServerFixture(t, nil)

	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	wrapped := f.server.RecoveryMiddleware()(panicking)

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "internal_error", resp["error"])
}

func TestLoggingMiddlewareCompletes(t *testing.T) {
	var buf bytes.Buffer
	f := newServerFixture(t, func(p *ServerParams) {
		p.Logger = slog.New(slog.NewJSONHandler(&buf, nil))
	})

	rec := f.do(t, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "Request completed")
}
