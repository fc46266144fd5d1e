package tickproc

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pokegrid/relay/internal/protocol"
)

const watchdogInterval = 500 * time.Millisecond

// Supervisor drives Processor.RunTick on a schedule that depends on the
// current phase: battle ticks faster than overworld, since a vote round
// wasted on a menu/dialogue screen the agents can't see yet is a wasted
// round. A single loop polls on watchdogInterval and picks the next tick's
// delay from the last decoded phase; no separate battle or overworld
// sub-loops are started or stopped. Phase reads/writes are atomic, so no
// global lock is taken.
type Supervisor struct {
	proc    *Processor
	publish func(protocol.State) error
	log     *zap.SugaredLogger

	overworldInterval time.Duration
	battleInterval    time.Duration

	phase atomic.Value // protocol.Phase
}

func NewSupervisor(proc *Processor, overworldInterval, battleInterval time.Duration, publish func(protocol.State) error, log *zap.SugaredLogger) *Supervisor {
	s := &Supervisor{
		proc:              proc,
		publish:           publish,
		log:               log,
		overworldInterval: overworldInterval,
		battleInterval:    battleInterval,
	}
	s.phase.Store(protocol.PhaseOverworld)
	return s
}

// CurrentPhase reports the phase the watchdog last observed.
func (s *Supervisor) CurrentPhase() protocol.Phase {
	return s.phase.Load().(protocol.Phase)
}

// Run polls the watchdog interval, ticking the processor on whichever
// cadence matches the last-observed phase, until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	nextTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.Before(nextTick) {
				continue
			}

			state, err := s.proc.RunTick(ctx, s.publish)
			if err != nil {
				if s.log != nil {
					s.log.Errorw("tick failed", "error", err)
				}
				nextTick = now.Add(s.overworldInterval)
				continue
			}

			s.phase.Store(state.Phase)
			nextTick = now.Add(s.intervalFor(state.Phase))
		}
	}
}

func (s *Supervisor) intervalFor(phase protocol.Phase) time.Duration {
	if phase == protocol.PhaseBattle {
		return s.battleInterval
	}
	return s.overworldInterval
}
