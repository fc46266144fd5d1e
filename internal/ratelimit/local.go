package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// LocalGuard is a process-local, best-effort pre-filter in front of the KV
// script: an obviously abusive burst (thousands of requests from one
// connection in a single instant) is rejected without ever reaching the
// shared store. It is coarser than the per-agent plan limits enforced by
// Limiter.Allow; the relay's registration endpoint answers 429 on its
// decision alone, since no KV-backed limit applies there. Grounded on
// Vitadek-OwnWorld's direct dependency on golang.org/x/time.
type LocalGuard struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewLocalGuard builds a guard allowing rps events/sec with burst headroom
// per key.
func NewLocalGuard(rps float64, burst int) *LocalGuard {
	return &LocalGuard{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether key (typically a remote IP) may proceed right now.
func (g *LocalGuard) Allow(key string) bool {
	g.mu.Lock()
	lim, ok := g.limiters[key]
	if !ok {
		lim = rate.NewLimiter(g.rps, g.burst)
		g.limiters[key] = lim
	}
	g.mu.Unlock()

	return lim.Allow()
}
