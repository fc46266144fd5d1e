package protocol

import (
	"encoding/json"
	"fmt"
)

// MsgType is the "type" discriminator carried by every WebSocket frame in
// both directions of the relay<->home and relay<->agent sockets.
type MsgType string

const (
	MsgVoteBatch    MsgType = "vote_batch"
	MsgHeartbeat    MsgType = "heartbeat"
	MsgHeartbeatAck MsgType = "heartbeat_ack"
	MsgStatePush    MsgType = "state_push"
	MsgStateUpdate  MsgType = "state_update"
	MsgVotesRequest MsgType = "votes_request"
	MsgError        MsgType = "error"
	MsgAuth         MsgType = "auth" // {secret} sent as the first home frame; carries no "type" tag on the wire
)

// envelope is used only to peek the discriminator before unmarshalling into
// the concrete, fully-typed message.
type envelope struct {
	Type MsgType `json:"type"`
}

// VoteEntry is one agent's vote as carried inside a VoteBatch.
type VoteEntry struct {
	AgentID   string `json:"agentId" validate:"required"`
	Action    Action `json:"action" validate:"required"`
	Timestamp int64  `json:"timestamp" validate:"required"`
}

// VoteBatch is sent relay -> home, carrying the raw votes of the closing
// tick bucket, after each state_push, on votes_request, and from the
// relay's fallback tick loop.
type VoteBatch struct {
	Type   MsgType     `json:"type"`
	TickID int64       `json:"tickId"`
	GameID string      `json:"gameId" validate:"required"`
	Votes  []VoteEntry `json:"votes" validate:"dive"`
}

// Heartbeat is sent relay -> home on a fixed interval; the home client must
// answer with a HeartbeatAck carrying the same timestamp.
type Heartbeat struct {
	Type      MsgType `json:"type"`
	Timestamp int64   `json:"timestamp"`
}

// HeartbeatAck is sent home -> relay in response to each Heartbeat; the
// home client sends no unsolicited acks.
type HeartbeatAck struct {
	Type      MsgType `json:"type"`
	Timestamp int64   `json:"timestamp"`
}

// StatePush is sent home -> relay after every successful tick.
type StatePush struct {
	Type   MsgType  `json:"type"`
	TickID int64    `json:"tickId"`
	GameID string   `json:"gameId" validate:"required"`
	State  State    `json:"state" validate:"required"`
}

// StateUpdate is sent relay -> agent on every cached-state refresh, and is
// echoed back relay -> home purely as an informational loopback the home
// client must ignore.
type StateUpdate struct {
	Type   MsgType `json:"type"`
	TickID int64   `json:"tickId"`
	GameID string  `json:"gameId"`
	State  State   `json:"state"`
}

// VotesRequest is sent home -> relay to explicitly ask for a vote flush.
type VotesRequest struct {
	Type   MsgType `json:"type"`
	TickID int64   `json:"tickId"`
	GameID string  `json:"gameId" validate:"required"`
}

// ErrorMessage is sent on either socket to report a protocol-level failure.
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    Code    `json:"code"`
	Message string  `json:"message"`
}

// AuthFrame is the unframed {secret} payload the home client sends first.
type AuthFrame struct {
	Secret string `json:"secret" validate:"required"`
}

// PeekType returns the "type" discriminator of a raw WebSocket text frame
// without fully unmarshalling it, so callers can dispatch to the concrete
// struct. Unknown or missing types are returned as the empty MsgType; the
// caller is responsible for dropping them with a logged warning.
func PeekType(raw []byte) (MsgType, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return "", fmt.Errorf("protocol: peek type: %w", err)
	}
	return e.Type, nil
}

// NewError builds a ready-to-send ErrorMessage.
func NewError(code Code, message string) ErrorMessage {
	return ErrorMessage{Type: MsgError, Code: code, Message: message}
}
