package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokegrid/relay/internal/protocol"
)

func TestAgentHubGetIsLazyAndStable(t *testing.T) {
	hub := newAgentHub()

	h1 := hub.get("red-1")
	h2 := hub.get("red-1")
	assert.Same(t, h1, h2, "the same gameId must reuse the same hub")

	h3 := hub.get("red-2")
	assert.NotSame(t, h1, h3)
}

func TestGameHubBroadcastDeliversToRegisteredClients(t *testing.T) {
	h := newGameHub()
	go h.run()

	client := &agentClient{connID: "c1", send: make(chan protocol.StateUpdate, 8)}
	h.register <- client

	h.broadcast <- protocol.StateUpdate{Type: protocol.MsgStateUpdate, TickID: 5, GameID: "red-1"}

	select {
	case update := <-client.send:
		assert.Equal(t, int64(5), update.TickID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast delivery")
	}
}

func TestGameHubUnregisterClosesSendChannel(t *testing.T) {
	h := newGameHub()
	go h.run()

	client := &agentClient{connID: "c1", send: make(chan protocol.StateUpdate, 8)}
	h.register <- client
	h.unregister <- client

	require.Eventually(t, func() bool {
		_, open := <-client.send
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestGameHubBroadcastDropsOnSlowConsumerRatherThanBlocking(t *testing.T) {
	h := newGameHub()
	go h.run()

	client := &agentClient{connID: "c1", send: make(chan protocol.StateUpdate)} // unbuffered, nobody reads
	h.register <- client

	done := make(chan struct{})
	go func() {
		h.broadcast <- protocol.StateUpdate{Type: protocol.MsgStateUpdate, TickID: 1}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast must not block on a slow consumer")
	}
}

func TestAgentHubBroadcastReachesCorrectGameOnly(t *testing.T) {
	hub := newAgentHub()

	clientA := &agentClient{connID: "a", send: make(chan protocol.StateUpdate, 8)}
	hub.get("red-1").register <- clientA

	clientB := &agentClient{connID: "b", send: make(chan protocol.StateUpdate, 8)}
	hub.get("red-2").register <- clientB

	hub.Broadcast("red-1", 1, protocol.State{Turn: 1})

	select {
	case <-clientA.send:
	case <-time.After(time.Second):
		t.Fatal("clientA should have received the broadcast for its game")
	}

	select {
	case <-clientB.send:
		t.Fatal("clientB must not receive a broadcast for a different gameId")
	case <-time.After(100 * time.Millisecond):
	}
}
