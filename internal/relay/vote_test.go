package relay

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokegrid/relay/internal/bans"
)

func TestHandleVoteSucceeds(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAgent(t, s, "voter-1")

	r := httptest.NewRequest("POST", "/api/v1/vote", strings.NewReader(`{"gameId":"red-1","action":"up"}`))
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	s.handleVote(w, r, httprouter.Params{})

	require.Equal(t, 202, w.Code)
	assert.Contains(t, w.Body.String(), "accepted")
}

func TestHandleVoteRejectsUnauthenticated(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest("POST", "/api/v1/vote", strings.NewReader(`{"gameId":"red-1","action":"up"}`))
	w := httptest.NewRecorder()

	s.handleVote(w, r, httprouter.Params{})
	assert.Equal(t, 401, w.Code)
}

func TestHandleVoteRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAgent(t, s, "voter-2")

	r := httptest.NewRequest("POST", "/api/v1/vote", strings.NewReader("{not json"))
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	s.handleVote(w, r, httprouter.Params{})
	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "PARSE_ERROR")
}

func TestHandleVoteRejectsUnknownAction(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAgent(t, s, "voter-3")

	r := httptest.NewRequest("POST", "/api/v1/vote", strings.NewReader(`{"gameId":"red-1","action":"fly"}`))
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	s.handleVote(w, r, httprouter.Params{})
	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ACTION")
}

func TestHandleVoteMapsBanErrorToResponse(t *testing.T) {
	s := newTestServer(t)
	token, meta := registerAgent(t, s, "voter-banned")
	require.NoError(t, s.bans.Add(context.Background(), bans.Record{
		Target: meta.AgentID, TargetKind: bans.TargetAgent, Mode: bans.ModeHard, Reason: "test",
	}))

	r := httptest.NewRequest("POST", "/api/v1/vote", strings.NewReader(`{"gameId":"red-1","action":"up"}`))
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	s.handleVote(w, r, httprouter.Params{})
	assert.Equal(t, 403, w.Code)
	assert.Contains(t, w.Body.String(), "BANNED")
}

func TestHandleVoteMapsRateLimitErrorToResponse(t *testing.T) {
	s := newTestServer(t)
	token, meta := registerAgent(t, s, "voter-ratelimited")

	limits := meta.Plan.Limits()
	now := time.Now()
	for i := 0; i < limits.Burst+1; i++ {
		_, err := s.limit.Allow(context.Background(), meta.AgentID, limits.RPS, limits.Burst, now)
		require.NoError(t, err)
	}

	r := httptest.NewRequest("POST", "/api/v1/vote", strings.NewReader(`{"gameId":"red-1","action":"up"}`))
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	s.handleVote(w, r, httprouter.Params{})
	assert.Equal(t, 429, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
