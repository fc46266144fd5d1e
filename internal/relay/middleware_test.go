package relay

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokegrid/relay/internal/bans"
)

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest("GET", "/api/v1/state", nil)

	_, err := s.authenticate(r)
	assert.ErrorIs(t, err, errMissingAuth)
}

func TestAuthenticateRejectsMalformedHeader(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest("GET", "/api/v1/state", nil)
	r.Header.Set("Authorization", "Basic abc123")

	_, err := s.authenticate(r)
	assert.ErrorIs(t, err, errMissingAuth)
}

func TestAuthenticateRejectsUnknownToken(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest("GET", "/api/v1/state", nil)
	r.Header.Set("Authorization", "Bearer not-a-real-token")

	_, err := s.authenticate(r)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errMissingAuth)
}

func TestAuthenticateAcceptsRegisteredToken(t *testing.T) {
	s := newTestServer(t)
	token, meta := registerAgent(t, s, "agent-mid")

	r := httptest.NewRequest("GET", "/api/v1/state", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	got, err := s.authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, meta.AgentID, got.AgentID)
}

func TestWriteAuthErrorDistinguishesMissingFromInvalid(t *testing.T) {
	w := httptest.NewRecorder()
	writeAuthError(w, errMissingAuth)
	assert.Contains(t, w.Body.String(), "MISSING_AUTH")

	w = httptest.NewRecorder()
	writeAuthError(w, assert.AnError)
	assert.Contains(t, w.Body.String(), "INVALID_AUTH")
}

func TestWriteBanErrorHardVsSoft(t *testing.T) {
	w := httptest.NewRecorder()
	writeBanError(w, bans.Decision{Banned: true, Mode: bans.ModeHard, Reason: "x"})
	assert.Equal(t, 403, w.Code)
	assert.Contains(t, w.Body.String(), "BANNED")

	w = httptest.NewRecorder()
	writeBanError(w, bans.Decision{Banned: true, Mode: bans.ModeSoft, Reason: "y"})
	assert.Equal(t, 429, w.Code)
	assert.Contains(t, w.Body.String(), "SOFT_BANNED")
}
