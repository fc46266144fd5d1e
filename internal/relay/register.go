package relay

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/pokegrid/relay/internal/creds"
	"github.com/pokegrid/relay/internal/httpx"
	"github.com/pokegrid/relay/internal/protocol"
)

type registerRequest struct {
	AgentID string `json:"agentId" validate:"required"`
}

type registerResponse struct {
	AgentID  string `json:"agentId"`
	APIKey   string `json:"apiKey"`
	Plan     string `json:"plan"`
	RPSLimit int    `json:"rpsLimit"`
}

// handleRegister is POST /api/v1/register: reserves an
// agentId, gated by the optional X-Registration-Secret header, and returns
// an API key shown exactly once.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httpx.SecurityHeaders(s.cfg, w)
	ip := httpx.ClientIP(s.cfg, r)

	if !s.guard.Allow(ip) {
		httpx.SetRetryAfter(w, 1)
		httpx.WriteJSON(w, http.StatusTooManyRequests, protocol.APIError{
			Error: "too many requests", Code: protocol.CodeRateLimited,
		})
		return
	}

	if s.cfg.RegistrationSecret != "" && !creds.ConstantTimeEqual(r.Header.Get("X-Registration-Secret"), s.cfg.RegistrationSecret) {
		httpx.WriteJSON(w, http.StatusUnauthorized, protocol.APIError{
			Error: "invalid registration secret", Code: protocol.CodeInvalidRegistrationSecret,
		})
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.recordInvalidRequest(r.Context(), ip)
		httpx.WriteJSON(w, http.StatusBadRequest, protocol.APIError{
			Error: "malformed request body", Code: protocol.CodeParseError,
		})
		return
	}

	if !creds.ValidAgentID(req.AgentID) {
		s.recordInvalidRequest(r.Context(), ip)
		httpx.WriteJSON(w, http.StatusBadRequest, protocol.APIError{
			Error: "agentId must be 3-64 chars of [A-Za-z0-9_-]", Code: protocol.CodeValidationError,
		})
		return
	}

	token, meta, err := s.creds.Register(r.Context(), req.AgentID)
	if err != nil {
		if errors.Is(err, creds.ErrAgentExists) {
			httpx.WriteJSON(w, http.StatusConflict, protocol.APIError{
				Error: "agentId already registered", Code: protocol.CodeAgentExists,
			})
			return
		}
		s.log.Errorw("register failed", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, protocol.APIError{
			Error: "internal error", Code: protocol.CodeInternal,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, registerResponse{
		AgentID:  meta.AgentID,
		APIKey:   token,
		Plan:     string(meta.Plan),
		RPSLimit: meta.RPSLimit,
	})
}
