// Package tickproc is the per-tick pipeline that turns a batch of votes
// received from the relay into an actuated button press and a freshly
// decoded state document. It runs inside the backend binary, alongside the
// emulator instance; it holds no direct KV connection — votes arrive over
// the home WebSocket as vote_batch frames, and the resulting state leaves
// the same way as a state_push.
package tickproc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pokegrid/relay/internal/decoder"
	"github.com/pokegrid/relay/internal/emulator"
	"github.com/pokegrid/relay/internal/protocol"
	"github.com/pokegrid/relay/internal/votes"
)

// Clock abstracts time.Now so tests can inject a fixed instant.
type Clock func() time.Time

// Processor runs the tally -> select -> actuate -> decode -> publish
// pipeline for one game.
type Processor struct {
	gameID string
	emu    emulator.Instance
	log    *zap.SugaredLogger
	clock  Clock

	mu          sync.Mutex
	tickID      int64
	pending     []protocol.VoteEntry
	turnHistory []protocol.TurnHistoryEntry
	lastState   protocol.State
}

func New(gameID string, emu emulator.Instance, log *zap.SugaredLogger) *Processor {
	return &Processor{
		gameID: gameID,
		emu:    emu,
		log:    log,
		clock:  time.Now,
	}
}

// LastState returns the most recently decoded state (zero value before the
// first tick completes).
func (p *Processor) LastState() protocol.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastState
}

// RecordVote buffers one vote for the next RunTick, keyed by agentID so a
// later vote from the same agent overwrites an earlier one within the same
// tick — the homeclient.VoteHandler callback wired to this is how
// vote_batch frames reach the pipeline.
func (p *Processor) RecordVote(gameID string, tickID int64, agentID string, action protocol.Action, ts time.Time) {
	if gameID != p.gameID {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, e := range p.pending {
		if e.AgentID == agentID {
			p.pending[i] = protocol.VoteEntry{AgentID: agentID, Action: action, Timestamp: ts.UnixMilli()}
			return
		}
	}
	p.pending = append(p.pending, protocol.VoteEntry{AgentID: agentID, Action: action, Timestamp: ts.UnixMilli()})
}

// RunTick executes one full pipeline iteration and returns the new state:
// tally the buffered batch (ties broken by earliest timestamp, no-votes
// falls back to "a"), actuate, decode, append to turnHistory (capped at
// protocol.MaxTurnHistory), publish via the caller-supplied publish
// callback. The buffered votes are taken at the start, so they are
// consumed even when the tick fails.
func (p *Processor) RunTick(ctx context.Context, publish func(protocol.State) error) (protocol.State, error) {
	p.mu.Lock()
	tickID := p.tickID
	p.tickID++
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()

	result := votes.TallyEntries(batch)
	action := result.WinningAction
	frames := 1 + protocol.FrameAdvance(action)

	if err := p.emu.PressButton(ctx, string(action), frames); err != nil {
		return protocol.State{}, fmt.Errorf("tickproc: actuate: %w", err)
	}

	ram, err := p.emu.ReadRAM(ctx)
	if err != nil {
		return protocol.State{}, fmt.Errorf("tickproc: read ram: %w", err)
	}

	p.mu.Lock()
	history := append(p.turnHistory, protocol.TurnHistoryEntry{
		Turn:   tickID,
		Action: action,
		Phase:  p.lastState.Phase,
	})
	p.mu.Unlock()

	state := decoder.Decode(ram, tickID, p.clock(), history)

	p.mu.Lock()
	p.turnHistory = state.TurnHistory
	p.lastState = state
	p.mu.Unlock()

	if p.log != nil {
		p.log.Infow("tick complete",
			"gameId", p.gameID, "tickId", tickID, "action", action,
			"totalVotes", result.TotalVotes, "phase", state.Phase,
		)
	}

	if publish != nil {
		if err := publish(state); err != nil && p.log != nil {
			p.log.Warnw("publish failed", "gameId", p.gameID, "tickId", tickID, "error", err)
		}
	}

	return state, nil
}
