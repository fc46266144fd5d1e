package tickproc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pokegrid/relay/internal/emulator"
	"github.com/pokegrid/relay/internal/protocol"
)

func TestSupervisorIntervalForPicksByPhase(t *testing.T) {
	s := NewSupervisor(nil, 2*time.Second, 200*time.Millisecond, nil, nil)
	assert.Equal(t, 200*time.Millisecond, s.intervalFor(protocol.PhaseBattle))
	assert.Equal(t, 2*time.Second, s.intervalFor(protocol.PhaseOverworld))
	assert.Equal(t, 2*time.Second, s.intervalFor(protocol.PhaseMenu))
}

func TestSupervisorCurrentPhaseStartsOverworld(t *testing.T) {
	s := NewSupervisor(nil, time.Second, time.Second, nil, nil)
	assert.Equal(t, protocol.PhaseOverworld, s.CurrentPhase())
}

func TestSupervisorRunTicksUntilContextCancelled(t *testing.T) {
	emu := emulator.NewFake()
	proc := New("red-1", emu, nil)

	var publishes int
	publish := func(protocol.State) error {
		publishes++
		return nil
	}

	s := NewSupervisor(proc, time.Millisecond, time.Millisecond, publish, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 1200*time.Millisecond)
	defer cancel()

	s.Run(ctx)

	assert.GreaterOrEqual(t, publishes, 2, "the watchdog should have fired at least twice in 1.2s")
}
