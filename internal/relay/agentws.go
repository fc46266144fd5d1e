package relay

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/pokegrid/relay/internal/protocol"
)

// agentClient is one connected agent's WebSocket: a buffered send channel
// drained by a dedicated writer goroutine.
// connID tags this socket in logs, distinct from the agent's identity,
// since one agent can hold several concurrent connections.
type agentClient struct {
	connID string
	conn   *websocket.Conn
	send   chan protocol.StateUpdate
}

// gameHub fans state_update frames out to every agent watching one gameId.
type gameHub struct {
	clients    map[*agentClient]bool
	register   chan *agentClient
	unregister chan *agentClient
	broadcast  chan protocol.StateUpdate

	mu sync.RWMutex
}

func newGameHub() *gameHub {
	return &gameHub{
		clients:    make(map[*agentClient]bool),
		register:   make(chan *agentClient),
		unregister: make(chan *agentClient),
		broadcast:  make(chan protocol.StateUpdate, 8),
	}
}

func (h *gameHub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case update := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- update:
				default:
					// Slow consumer: drop rather than block the hub, mirroring
					// celebrities.go's hub loop.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// agentHub owns one gameHub per gameId, created lazily.
type agentHub struct {
	mu   sync.Mutex
	hubs map[string]*gameHub
}

func newAgentHub() *agentHub {
	return &agentHub{hubs: make(map[string]*gameHub)}
}

func (a *agentHub) get(gameID string) *gameHub {
	a.mu.Lock()
	defer a.mu.Unlock()

	if h, ok := a.hubs[gameID]; ok {
		return h
	}
	h := newGameHub()
	a.hubs[gameID] = h
	go h.run()
	return h
}

// Broadcast publishes a state_update to every agent watching gameID.
func (a *agentHub) Broadcast(gameID string, tickID int64, state protocol.State) {
	h := a.get(gameID)
	h.broadcast <- protocol.StateUpdate{
		Type:   protocol.MsgStateUpdate,
		TickID: tickID,
		GameID: gameID,
		State:  state,
	}
}

var agentUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleAgentWS is GET /agent/stream?gameId=... — agents authenticate the
// same way as the REST surface, then receive a state_update on every
// cached-state refresh.
func (s *Server) handleAgentWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	meta, err := s.authenticate(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	gameID := r.URL.Query().Get("gameId")
	if gameID == "" {
		http.Error(w, "missing gameId", http.StatusBadRequest)
		return
	}

	conn, err := agentUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("agent ws upgrade failed", "error", err, "agentId", meta.AgentID)
		return
	}

	client := &agentClient{connID: uuid.NewString(), conn: conn, send: make(chan protocol.StateUpdate, 8)}
	hub := s.agents.get(gameID)
	hub.register <- client
	s.log.Infow("agent ws connected", "agentId", meta.AgentID, "connId", client.connID, "gameId", gameID)

	go func() {
		defer func() {
			hub.unregister <- client
			conn.Close()
			s.log.Infow("agent ws disconnected", "agentId", meta.AgentID, "connId", client.connID)
		}()
		for update := range client.send {
			if err := conn.WriteJSON(update); err != nil {
				return
			}
		}
	}()

	// Agents don't send anything meaningful on this socket; drain reads so
	// the connection's pong/close machinery keeps working, same shape as
	// celebrities.go's readPump.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			hub.unregister <- client
			return
		}
	}
}
