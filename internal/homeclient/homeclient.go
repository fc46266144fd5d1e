// Package homeclient implements the backend binary's single outbound
// WebSocket connection to the relay, carrying the auth handshake, the
// heartbeat contract, vote_batch consumption and state_push publication
// with an exponential-backoff reconnect loop.
package homeclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pokegrid/relay/internal/protocol"
)

// Status is the home client's connection state machine.
type Status string

const (
	StatusDisconnected  Status = "disconnected"
	StatusConnecting    Status = "connecting"
	StatusAuthenticating Status = "authenticating"
	StatusConnected     Status = "connected"
)

const (
	reconnectBase   = 100 * time.Millisecond
	reconnectMax    = 30 * time.Second
	reconnectJitter = 500 * time.Millisecond
	heartbeatGrace  = 45 * time.Second // max time since the last relay heartbeat before reconnecting
)

// VoteHandler is invoked for each vote carried by an inbound vote_batch.
type VoteHandler func(gameID string, tickID int64, agentID string, action protocol.Action, ts time.Time)

// Client manages the connection lifecycle and frame dispatch.
type Client struct {
	url    string
	secret string
	gameID string
	log    *zap.SugaredLogger

	onVotes VoteHandler

	mu     sync.Mutex
	status Status
	conn   *websocket.Conn
}

func New(url, secret, gameID string, onVotes VoteHandler, log *zap.SugaredLogger) *Client {
	return &Client{
		url:     url,
		secret:  secret,
		gameID:  gameID,
		onVotes: onVotes,
		log:     log,
		status:  StatusDisconnected,
	}
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// Run connects and reconnects forever (base 100ms backoff, x2 per attempt,
// capped at 30s, with up to 500ms jitter added) until ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	backoff := reconnectBase

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.connectAndServe(ctx); err != nil && c.log != nil {
			c.log.Warnw("home client disconnected", "error", err, "gameId", c.gameID)
		}

		c.setStatus(StatusDisconnected)

		wait := backoff + time.Duration(rand.Int63n(int64(reconnectJitter)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (c *Client) connectAndServe(ctx context.Context) error {
	c.setStatus(StatusConnecting)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("homeclient: dial: %w", err)
	}
	defer conn.Close()

	c.setStatus(StatusAuthenticating)

	auth := protocol.AuthFrame{Secret: c.secret}
	if err := conn.WriteJSON(auth); err != nil {
		return fmt.Errorf("homeclient: send auth: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.status = StatusConnected
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	lastHeartbeat := time.Now()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("homeclient: read: %w", err)
		}

		msgType, err := protocol.PeekType(raw)
		if err != nil {
			if c.log != nil {
				c.log.Warnw("dropping malformed frame", "error", err)
			}
			continue
		}

		switch msgType {
		case protocol.MsgHeartbeat:
			var hb protocol.Heartbeat
			if err := json.Unmarshal(raw, &hb); err != nil {
				continue
			}
			lastHeartbeat = time.Now()
			ack := protocol.HeartbeatAck{Type: protocol.MsgHeartbeatAck, Timestamp: hb.Timestamp}
			if err := conn.WriteJSON(ack); err != nil {
				return fmt.Errorf("homeclient: ack heartbeat: %w", err)
			}

		case protocol.MsgVoteBatch:
			var vb protocol.VoteBatch
			if err := json.Unmarshal(raw, &vb); err != nil {
				continue
			}
			if c.onVotes != nil {
				for _, v := range vb.Votes {
					c.onVotes(vb.GameID, vb.TickID, v.AgentID, v.Action, time.UnixMilli(v.Timestamp))
				}
			}

		case protocol.MsgStateUpdate:
			// Informational loopback echo; ignored.

		case protocol.MsgError:
			var em protocol.ErrorMessage
			if err := json.Unmarshal(raw, &em); err != nil {
				continue
			}
			if c.log != nil {
				c.log.Warnw("relay reported error", "code", em.Code, "message", em.Message)
			}
			if em.Code == protocol.CodeAuthFailed {
				return errors.New("homeclient: authentication rejected")
			}

		default:
			if c.log != nil {
				c.log.Warnw("dropping frame with unknown type", "type", msgType)
			}
		}

		if time.Since(lastHeartbeat) > heartbeatGrace {
			return errors.New("homeclient: heartbeat grace period exceeded")
		}
	}
}

// PushState sends a state_push frame. If the socket is not currently
// connected the push is silently dropped.
func (c *Client) PushState(tickID int64, state protocol.State) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.status == StatusConnected
	c.mu.Unlock()

	if !connected || conn == nil {
		return nil
	}

	push := protocol.StatePush{
		Type:   protocol.MsgStatePush,
		TickID: tickID,
		GameID: c.gameID,
		State:  state,
	}
	return conn.WriteJSON(push)
}

// RequestVotes sends a votes_request frame asking the relay to flush the
// current tick's aggregated votes immediately.
func (c *Client) RequestVotes(tickID int64) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.status == StatusConnected
	c.mu.Unlock()

	if !connected || conn == nil {
		return errors.New("homeclient: not connected")
	}

	return conn.WriteJSON(protocol.VotesRequest{
		Type:   protocol.MsgVotesRequest,
		TickID: tickID,
		GameID: c.gameID,
	})
}
