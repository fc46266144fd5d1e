package relay

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokegrid/relay/internal/bans"
)

func TestHandleAdminBanRejectsWithoutSecret(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest("POST", "/api/v1/admin/ban/ip", strings.NewReader(`{"target":"1.2.3.4","mode":"hard"}`))
	w := httptest.NewRecorder()

	s.handleAdminBan(w, r, httprouter.Params{{Key: "kind", Value: "ip"}})
	assert.Equal(t, 403, w.Code)
}

func TestHandleAdminBanSucceedsWithSecret(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest("POST", "/api/v1/admin/ban/ip", strings.NewReader(`{"target":"1.2.3.4","mode":"hard","reason":"abuse"}`))
	r.Header.Set("X-Admin-Secret", s.cfg.AdminSecret)
	w := httptest.NewRecorder()

	s.handleAdminBan(w, r, httprouter.Params{{Key: "kind", Value: "ip"}})
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"target":"1.2.3.4"`)
}

func TestHandleAdminBanRejectsUnknownKind(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest("POST", "/api/v1/admin/ban/device", strings.NewReader(`{"target":"x","mode":"hard"}`))
	r.Header.Set("X-Admin-Secret", s.cfg.AdminSecret)
	w := httptest.NewRecorder()

	s.handleAdminBan(w, r, httprouter.Params{{Key: "kind", Value: "device"}})
	assert.Equal(t, 400, w.Code)
}

func TestHandleAdminBanRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest("POST", "/api/v1/admin/ban/ip", strings.NewReader("{not json"))
	r.Header.Set("X-Admin-Secret", s.cfg.AdminSecret)
	w := httptest.NewRecorder()

	s.handleAdminBan(w, r, httprouter.Params{{Key: "kind", Value: "ip"}})
	assert.Equal(t, 400, w.Code)
}

func TestHandleAdminUnbanRequiresTarget(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest("POST", "/api/v1/admin/unban", strings.NewReader(`{"targetKind":"ip"}`))
	r.Header.Set("X-Admin-Secret", s.cfg.AdminSecret)
	w := httptest.NewRecorder()

	s.handleAdminUnban(w, r, httprouter.Params{})
	assert.Equal(t, 400, w.Code)
}

func TestHandleAdminUnbanSucceeds(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.bans.Add(context.Background(), bans.Record{Target: "9.9.9.9", TargetKind: bans.TargetIP, Mode: bans.ModeHard}))

	r := httptest.NewRequest("POST", "/api/v1/admin/unban", strings.NewReader(`{"targetKind":"ip","target":"9.9.9.9"}`))
	r.Header.Set("X-Admin-Secret", s.cfg.AdminSecret)
	w := httptest.NewRecorder()

	s.handleAdminUnban(w, r, httprouter.Params{})
	require.Equal(t, 200, w.Code)
}

func TestHandleAdminListBansExcludesExpired(t *testing.T) {
	s := newTestServer(t)
	expired := int64(1)
	require.NoError(t, s.bans.Add(context.Background(), bans.Record{Target: "expired-agent", TargetKind: bans.TargetAgent, Mode: bans.ModeSoft, ExpiresAt: &expired}))
	require.NoError(t, s.bans.Add(context.Background(), bans.Record{Target: "active-agent", TargetKind: bans.TargetAgent, Mode: bans.ModeSoft}))

	r := httptest.NewRequest("GET", "/api/v1/admin/bans", nil)
	r.Header.Set("X-Admin-Secret", s.cfg.AdminSecret)
	w := httptest.NewRecorder()

	s.handleAdminListBans(w, r, httprouter.Params{})
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "active-agent")
	assert.NotContains(t, w.Body.String(), "expired-agent")
}
