package relay

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/pokegrid/relay/internal/bans"
	"github.com/pokegrid/relay/internal/creds"
	"github.com/pokegrid/relay/internal/httpx"
	"github.com/pokegrid/relay/internal/protocol"
)

// adminAuthenticated checks the X-Admin-Secret header with a constant-time
// comparison.
func (s *Server) adminAuthenticated(r *http.Request) bool {
	return creds.ConstantTimeEqual(r.Header.Get("X-Admin-Secret"), s.cfg.AdminSecret)
}

func (s *Server) writeAdminForbidden(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusForbidden, protocol.APIError{
		Error: "invalid or missing X-Admin-Secret", Code: protocol.CodeInvalidAuth,
	})
}

type addBanRequest struct {
	Target    string    `json:"target" validate:"required"`
	Mode      bans.Mode `json:"mode" validate:"required"`
	Reason    string    `json:"reason"`
	ExpiresAt *int64    `json:"expiresAt,omitempty"`
}

// urlTargetKinds maps the {agent,ip,cidr,user-agent} path segment of
// POST /api/v1/admin/ban/:kind to the bans.TargetKind it corresponds to.
var urlTargetKinds = map[string]bans.TargetKind{
	"agent":      bans.TargetAgent,
	"ip":         bans.TargetIP,
	"cidr":       bans.TargetCIDR,
	"user-agent": bans.TargetUserAgent,
}

// handleAdminBan is POST /api/v1/admin/ban/{agent,ip,cidr,user-agent}.
func (s *Server) handleAdminBan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	httpx.SecurityHeaders(s.cfg, w)
	if !s.adminAuthenticated(r) {
		s.writeAdminForbidden(w)
		return
	}

	kind, ok := urlTargetKinds[ps.ByName("kind")]
	if !ok {
		httpx.WriteJSON(w, http.StatusBadRequest, protocol.APIError{
			Error: "unknown ban target kind", Code: protocol.CodeValidationError,
		})
		return
	}

	var req addBanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, protocol.APIError{
			Error: "malformed request body", Code: protocol.CodeParseError,
		})
		return
	}

	rec := bans.Record{
		Target:     req.Target,
		TargetKind: kind,
		Mode:       req.Mode,
		Reason:     req.Reason,
		ExpiresAt:  req.ExpiresAt,
	}
	if err := s.bans.Add(r.Context(), rec); err != nil {
		s.log.Errorw("admin add ban failed", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, protocol.APIError{
			Error: "internal error", Code: protocol.CodeInternal,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, rec)
}

type unbanRequest struct {
	TargetKind bans.TargetKind `json:"targetKind" validate:"required"`
	Target     string          `json:"target" validate:"required"`
}

// handleAdminUnban is POST /api/v1/admin/unban.
func (s *Server) handleAdminUnban(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httpx.SecurityHeaders(s.cfg, w)
	if !s.adminAuthenticated(r) {
		s.writeAdminForbidden(w)
		return
	}

	var req unbanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, protocol.APIError{
			Error: "malformed request body", Code: protocol.CodeParseError,
		})
		return
	}
	if req.Target == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, protocol.APIError{
			Error: "missing target", Code: protocol.CodeValidationError,
		})
		return
	}

	if err := s.bans.Remove(r.Context(), req.TargetKind, req.Target); err != nil {
		s.log.Errorw("admin remove ban failed", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, protocol.APIError{
			Error: "internal error", Code: protocol.CodeInternal,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// handleAdminListBans is GET /api/v1/admin/bans.
func (s *Server) handleAdminListBans(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httpx.SecurityHeaders(s.cfg, w)
	if !s.adminAuthenticated(r) {
		s.writeAdminForbidden(w)
		return
	}

	list, err := s.bans.List(r.Context())
	if err != nil {
		s.log.Errorw("admin list bans failed", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, protocol.APIError{
			Error: "internal error", Code: protocol.CodeInternal,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"bans": list})
}
