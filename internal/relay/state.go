package relay

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/pokegrid/relay/internal/gamestate"
	"github.com/pokegrid/relay/internal/httpx"
	"github.com/pokegrid/relay/internal/protocol"
)

// handleGetState is GET /api/v1/state?gameId=....
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httpx.SecurityHeaders(s.cfg, w)

	meta, err := s.authenticate(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	gameID := r.URL.Query().Get("gameId")
	state, err := s.games.GetGameState(gameID)
	if err != nil {
		if errors.Is(err, gamestate.ErrUnknownGame) {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, protocol.APIError{
				Error: "no state yet for this game", Code: protocol.CodeStateUnavailable,
			})
			return
		}
		s.log.Errorw("get state failed", "error", err, "agentId", meta.AgentID)
		httpx.WriteJSON(w, http.StatusInternalServerError, protocol.APIError{
			Error: "internal error", Code: protocol.CodeInternal,
		})
		return
	}

	if err := protocol.ValidateState(&state); err != nil {
		s.log.Errorw("cached state failed validation", "error", err, "gameId", gameID)
		httpx.WriteJSON(w, http.StatusServiceUnavailable, protocol.APIError{
			Error: "cached state is unavailable", Code: protocol.CodeStateUnavailable,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, state)
}

// handleGetRateLimit is GET /api/v1/ratelimit.
func (s *Server) handleGetRateLimit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httpx.SecurityHeaders(s.cfg, w)

	meta, err := s.authenticate(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, s.games.GetRateLimit(meta))
}

// handleGetHistory is GET /api/v1/history?gameId=....
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httpx.SecurityHeaders(s.cfg, w)

	meta, err := s.authenticate(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	gameID := r.URL.Query().Get("gameId")
	history, err := s.games.GetHistory(gameID)
	if err != nil {
		if errors.Is(err, gamestate.ErrUnknownGame) {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, protocol.APIError{
				Error: "no state yet for this game", Code: protocol.CodeStateUnavailable,
			})
			return
		}
		s.log.Errorw("get history failed", "error", err, "agentId", meta.AgentID)
		httpx.WriteJSON(w, http.StatusInternalServerError, protocol.APIError{
			Error: "internal error", Code: protocol.CodeInternal,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"turnHistory": history})
}
