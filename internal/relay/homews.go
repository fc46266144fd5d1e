package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/pokegrid/relay/internal/creds"
	"github.com/pokegrid/relay/internal/protocol"
)

const (
	homeLivenessWindow  = 90 * time.Second
	homeHeartbeatPeriod = 20 * time.Second
)

// homeConn tracks one gameId's single live home connection.
type homeConn struct {
	conn     *websocket.Conn
	lastSeen time.Time
	send     func(any) error
}

// homeRegistry enforces the single-live-home-connection rule per gameId:
// a second connection for the same gameId is refused unless the first
// has gone silent for longer than homeLivenessWindow.
type homeRegistry struct {
	mu    sync.Mutex
	conns map[string]*homeConn
}

func newHomeRegistry() *homeRegistry {
	return &homeRegistry{conns: make(map[string]*homeConn)}
}

func (h *homeRegistry) tryAcquire(gameID string, conn *websocket.Conn, send func(any) error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.conns[gameID]; ok {
		if time.Since(existing.lastSeen) < homeLivenessWindow {
			return false
		}
		existing.conn.Close()
	}
	h.conns[gameID] = &homeConn{conn: conn, lastSeen: time.Now(), send: send}
	return true
}

// activeGames returns every gameId with a currently-live home connection,
// for the periodic fallback flush (ticker.go).
func (h *homeRegistry) activeGames() map[string]func(any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]func(any) error, len(h.conns))
	for gameID, c := range h.conns {
		if time.Since(c.lastSeen) < homeLivenessWindow {
			out[gameID] = c.send
		}
	}
	return out
}

func (h *homeRegistry) touch(gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[gameID]; ok {
		c.lastSeen = time.Now()
	}
}

func (h *homeRegistry) release(gameID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[gameID]; ok && c.conn == conn {
		delete(h.conns, gameID)
	}
}

var homeUpgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 8192,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleHomeWS is GET /home/connect?gameId=...: the first
// frame must be an unframed {secret} AuthFrame; thereafter the relay sends
// periodic heartbeats and forwards vote_batch frames, and consumes
// state_push/heartbeat_ack/votes_request from the home client.
func (s *Server) handleHomeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	gameID := r.URL.Query().Get("gameId")
	if gameID == "" {
		http.Error(w, "missing gameId", http.StatusBadRequest)
		return
	}

	conn, err := homeUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("home ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var auth protocol.AuthFrame
	if err := conn.ReadJSON(&auth); err != nil {
		return
	}
	if err := protocol.ValidateMessage(&auth); err != nil {
		_ = conn.WriteJSON(protocol.NewError(protocol.CodeAuthFailed, "invalid auth frame"))
		return
	}
	if !creds.ConstantTimeEqual(auth.Secret, s.cfg.RelaySecret) {
		_ = conn.WriteJSON(protocol.NewError(protocol.CodeAuthFailed, "invalid relay secret"))
		return
	}

	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	if !s.home.tryAcquire(gameID, conn, writeJSON) {
		_ = conn.WriteJSON(protocol.NewError(protocol.CodeAuthFailed, "a home client is already connected for this game"))
		return
	}
	defer s.home.release(gameID, conn)

	done := make(chan struct{})
	defer close(done)

	go s.homeHeartbeatLoop(conn, &writeMu, done)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.home.touch(gameID)

		msgType, err := protocol.PeekType(raw)
		if err != nil {
			s.log.Warnw("dropping malformed home frame", "error", err, "gameId", gameID)
			continue
		}

		switch msgType {
		case protocol.MsgHeartbeatAck:
			// Liveness already refreshed by s.home.touch above; no further action needed.

		case protocol.MsgStatePush:
			var push protocol.StatePush
			if err := json.Unmarshal(raw, &push); err != nil {
				s.log.Warnw("dropping malformed state_push", "error", err, "gameId", gameID)
				continue
			}
			if err := protocol.ValidateMessage(&push); err != nil {
				s.log.Warnw("dropping invalid state_push", "error", err, "gameId", gameID)
				continue
			}
			if err := protocol.ValidateState(&push.State); err != nil {
				s.log.Warnw("dropping state_push with invalid state", "error", err, "gameId", gameID)
				continue
			}
			s.games.SetGameState(gameID, push.State)
			s.agents.Broadcast(gameID, push.TickID, push.State)
			s.flushVotes(r.Context(), gameID, writeJSON)

		case protocol.MsgVotesRequest:
			var vr protocol.VotesRequest
			if err := json.Unmarshal(raw, &vr); err != nil {
				s.log.Warnw("dropping malformed votes_request", "error", err, "gameId", gameID)
				continue
			}
			if err := protocol.ValidateMessage(&vr); err != nil {
				s.log.Warnw("dropping invalid votes_request", "error", err, "gameId", gameID)
				continue
			}
			s.flushVotes(r.Context(), gameID, writeJSON)

		default:
			s.log.Warnw("dropping home frame with unexpected type", "type", msgType, "gameId", gameID)
		}
	}
}

func (s *Server) homeHeartbeatLoop(conn *websocket.Conn, writeMu *sync.Mutex, done <-chan struct{}) {
	ticker := time.NewTicker(homeHeartbeatPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			writeMu.Lock()
			err := conn.WriteJSON(protocol.Heartbeat{Type: protocol.MsgHeartbeat, Timestamp: now.UnixMilli()})
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// flushVotes reads the currently-open tick bucket's raw votes, advances to
// a new bucket, and forwards them to the home client as a vote_batch.
func (s *Server) flushVotes(ctx context.Context, gameID string, writeJSON func(any) error) {
	prior := s.games.AdvanceTick(gameID)

	entries, err := s.votes.RawVotes(ctx, gameID, prior)
	if err != nil {
		s.log.Warnw("flush votes: read raw votes failed", "error", err, "gameId", gameID)
		return
	}

	if err := writeJSON(protocol.VoteBatch{
		Type:   protocol.MsgVoteBatch,
		TickID: prior,
		GameID: gameID,
		Votes:  entries,
	}); err != nil {
		s.log.Warnw("flush votes: write failed", "error", err, "gameId", gameID)
		return
	}

	if err := s.votes.ClearVotes(ctx, gameID, prior); err != nil {
		s.log.Warnw("flush votes: clear failed", "error", err, "gameId", gameID)
	}
}
