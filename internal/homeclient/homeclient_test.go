package homeclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokegrid/relay/internal/protocol"
)

var upgrader = websocket.Upgrader{}

func TestStatusStartsDisconnected(t *testing.T) {
	c := New("ws://example.invalid", "secret", "red-1", nil, nil)
	assert.Equal(t, StatusDisconnected, c.Status())
}

func TestPushStateWhenDisconnectedIsANoop(t *testing.T) {
	c := New("ws://example.invalid", "secret", "red-1", nil, nil)
	assert.NoError(t, c.PushState(1, protocol.State{}))
}

func TestRequestVotesWhenDisconnectedErrors(t *testing.T) {
	c := New("ws://example.invalid", "secret", "red-1", nil, nil)
	assert.Error(t, c.RequestVotes(1))
}

func TestConnectAndServeSendsAuthAndDispatchesVoteBatch(t *testing.T) {
	votesCh := make(chan struct {
		gameID  string
		tickID  int64
		agentID string
		action  protocol.Action
	}, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var auth protocol.AuthFrame
		require.NoError(t, conn.ReadJSON(&auth))
		assert.Equal(t, "supersecret", auth.Secret)

		require.NoError(t, conn.WriteJSON(protocol.VoteBatch{
			Type:   protocol.MsgVoteBatch,
			TickID: 7,
			GameID: "red-1",
			Votes: []protocol.VoteEntry{
				{AgentID: "agent-1", Action: protocol.ActionUp, Timestamp: 1000},
			},
		}))

		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	onVotes := func(gameID string, tickID int64, agentID string, action protocol.Action, ts time.Time) {
		votesCh <- struct {
			gameID  string
			tickID  int64
			agentID string
			action  protocol.Action
		}{gameID, tickID, agentID, action}
	}

	c := New(wsURL, "supersecret", "red-1", onVotes, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go c.connectAndServe(ctx)

	select {
	case v := <-votesCh:
		assert.Equal(t, "red-1", v.gameID)
		assert.Equal(t, int64(7), v.tickID)
		assert.Equal(t, "agent-1", v.agentID)
		assert.Equal(t, protocol.ActionUp, v.action)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched vote")
	}
}

func TestConnectAndServeAcksHeartbeat(t *testing.T) {
	acked := make(chan protocol.HeartbeatAck, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var auth protocol.AuthFrame
		require.NoError(t, conn.ReadJSON(&auth))

		require.NoError(t, conn.WriteJSON(protocol.Heartbeat{Type: protocol.MsgHeartbeat, Timestamp: 123}))

		var ack protocol.HeartbeatAck
		require.NoError(t, conn.ReadJSON(&ack))
		acked <- ack

		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := New(wsURL, "supersecret", "red-1", nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go c.connectAndServe(ctx)

	select {
	case ack := <-acked:
		assert.Equal(t, int64(123), ack.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for heartbeat ack")
	}
}

func TestConnectAndServeStopsOnAuthFailedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var auth protocol.AuthFrame
		require.NoError(t, conn.ReadJSON(&auth))

		require.NoError(t, conn.WriteJSON(protocol.NewError(protocol.CodeAuthFailed, "bad secret")))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := New(wsURL, "wrongsecret", "red-1", nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.connectAndServe(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication rejected")
}

func TestPushStateWhileConnectedWritesFrame(t *testing.T) {
	received := make(chan protocol.StatePush, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var auth protocol.AuthFrame
		require.NoError(t, conn.ReadJSON(&auth))

		var push protocol.StatePush
		require.NoError(t, conn.ReadJSON(&push))
		received <- push

		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := New(wsURL, "supersecret", "red-1", nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go c.connectAndServe(ctx)

	require.Eventually(t, func() bool {
		return c.Status() == StatusConnected
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.PushState(9, protocol.State{Turn: 9}))

	select {
	case push := <-received:
		assert.Equal(t, int64(9), push.TickID)
		assert.Equal(t, "red-1", push.GameID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state push")
	}
}
