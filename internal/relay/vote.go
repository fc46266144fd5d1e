package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/pokegrid/relay/internal/gamestate"
	"github.com/pokegrid/relay/internal/httpx"
	"github.com/pokegrid/relay/internal/protocol"
)

type voteRequest struct {
	GameID string          `json:"gameId" validate:"required"`
	Action protocol.Action `json:"action" validate:"required"`
}

type voteResponse struct {
	Accepted bool            `json:"accepted"`
	Tick     int64           `json:"tick"`
	Action   protocol.Action `json:"action"`
}

// handleVote is POST /api/v1/vote: authenticate, ban-check,
// rate-limit, then record the vote in the current tick bucket.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httpx.SecurityHeaders(s.cfg, w)
	ip := httpx.ClientIP(s.cfg, r)

	meta, err := s.authenticate(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.recordInvalidRequest(r.Context(), ip)
		httpx.WriteJSON(w, http.StatusBadRequest, protocol.APIError{
			Error: "malformed request body", Code: protocol.CodeParseError,
		})
		return
	}

	if !req.Action.Valid() {
		s.recordInvalidRequest(r.Context(), ip)
		httpx.WriteJSON(w, http.StatusBadRequest, protocol.APIError{
			Error: "unknown action", Code: protocol.CodeInvalidAction,
		})
		return
	}

	err = s.games.SubmitAction(r.Context(), meta, ip, r.UserAgent(), req.GameID, req.Action, time.Now())
	if err == nil {
		httpx.WriteJSON(w, http.StatusAccepted, voteResponse{
			Accepted: true,
			Tick:     s.games.CurrentTick(req.GameID),
			Action:   req.Action,
		})
		return
	}

	var banErr *gamestate.BanError
	if errors.As(err, &banErr) {
		writeBanError(w, banErr.Decision)
		return
	}

	var rlErr *gamestate.RateLimitError
	if errors.As(err, &rlErr) {
		httpx.SetRetryAfter(w, int(rlErr.Result.RetryAfterMs/1000)+1)
		httpx.WriteJSON(w, http.StatusTooManyRequests, protocol.APIError{
			Error: "rate limited", Code: protocol.CodeRateLimited,
		})
		return
	}

	s.log.Errorw("submit action failed", "error", err, "agentId", meta.AgentID)
	httpx.WriteJSON(w, http.StatusInternalServerError, protocol.APIError{
		Error: "internal error", Code: protocol.CodeInternal,
	})
}
