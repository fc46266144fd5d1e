package relay

import (
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokegrid/relay/internal/protocol"
)

func TestHandleGetStateReturns503ForUnknownGame(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAgent(t, s, "state-agent-1")

	r := httptest.NewRequest("GET", "/api/v1/state?gameId=no-such-game", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	s.handleGetState(w, r, httprouter.Params{})
	assert.Equal(t, 503, w.Code)
	assert.Contains(t, w.Body.String(), "STATE_UNAVAILABLE")
}

func TestHandleGetStateReturnsCachedState(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAgent(t, s, "state-agent-2")
	s.games.SetGameState("red-1", protocol.State{
		Turn:             3,
		Phase:            protocol.PhaseOverworld,
		AvailableActions: protocol.AllActions[:],
	})

	q := url.Values{"gameId": {"red-1"}}
	r := httptest.NewRequest("GET", "/api/v1/state?"+q.Encode(), nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	s.handleGetState(w, r, httprouter.Params{})
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"turn":3`)
	assert.Contains(t, w.Body.String(), `"phase":"overworld"`)
}

func TestHandleGetStateReturns503WhenCachedStateFailsValidation(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAgent(t, s, "state-agent-2b")
	// Missing the 8-entry AvailableActions invariant the decoder always fills in.
	s.games.SetGameState("red-2", protocol.State{Turn: 1, Phase: protocol.PhaseOverworld})

	r := httptest.NewRequest("GET", "/api/v1/state?gameId=red-2", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	s.handleGetState(w, r, httprouter.Params{})
	assert.Equal(t, 503, w.Code)
}

func TestHandleGetStateRejectsUnauthenticated(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest("GET", "/api/v1/state?gameId=red-1", nil)
	w := httptest.NewRecorder()

	s.handleGetState(w, r, httprouter.Params{})
	assert.Equal(t, 401, w.Code)
}

func TestHandleGetRateLimitReportsPlanCeiling(t *testing.T) {
	s := newTestServer(t)
	token, meta := registerAgent(t, s, "state-agent-3")

	r := httptest.NewRequest("GET", "/api/v1/ratelimit", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	s.handleGetRateLimit(w, r, httprouter.Params{})
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"Remaining":`+strconv.Itoa(meta.Burst))
}

func TestHandleGetHistoryReturns503ForUnknownGame(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAgent(t, s, "state-agent-4")

	r := httptest.NewRequest("GET", "/api/v1/history?gameId=no-such-game", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	s.handleGetHistory(w, r, httprouter.Params{})
	assert.Equal(t, 503, w.Code)
}

func TestHandleGetHistoryReturnsCachedTurns(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAgent(t, s, "state-agent-5")
	s.games.SetGameState("red-1", protocol.State{
		TurnHistory: []protocol.TurnHistoryEntry{{Turn: 1, Action: protocol.ActionA}},
	})

	r := httptest.NewRequest("GET", "/api/v1/history?gameId=red-1", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	s.handleGetHistory(w, r, httprouter.Params{})
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"turnHistory"`)
}

