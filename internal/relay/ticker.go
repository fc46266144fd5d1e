package relay

import (
	"context"
	"time"
)

// startTickLoop runs a fallback vote flush on cfg.TickInterval() for every
// currently-connected game, in case the home client hasn't pushed a state
// update recently enough to trigger the usual post-state_push flush.
func (s *Server) startTickLoop(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.TickInterval())
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for gameID, send := range s.home.activeGames() {
					s.flushVotes(ctx, gameID, send)
				}
			}
		}
	}()
}
