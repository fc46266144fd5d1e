package relay

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokegrid/relay/internal/config"
	"github.com/pokegrid/relay/internal/creds"
	"github.com/pokegrid/relay/internal/kvstore"
	"github.com/pokegrid/relay/internal/logging"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		AdminSecret:        "admin-secret-0123456789",
		RelaySecret:        "relay-secret-0123456789",
		RegistrationSecret: "",
		TrustProxy:         config.TrustProxyNone,
	}
	return New(cfg, kvstore.NewMemory(), logging.Noop())
}

// registerAgent registers a fresh agent and returns its bearer token.
func registerAgent(t *testing.T, s *Server, agentID string) (string, *creds.Metadata) {
	t.Helper()
	token, meta, err := s.creds.Register(context.Background(), agentID)
	require.NoError(t, err)
	return token, meta
}

func TestHandleHealthReportsOK(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)
	s.handleHealth(w, r, httprouter.Params{})

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestHandleVersionWritesBody(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/version", nil)
	s.handleVersion(w, r, httprouter.Params{})

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "pokegrid-relay")
}
