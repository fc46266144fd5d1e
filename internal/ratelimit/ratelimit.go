// Package ratelimit implements the token-bucket rate limiter: an
// atomic KV script keyed per agent, parameterised by the agent's plan.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/pokegrid/relay/internal/kvstore"
)

// Result is the decision returned by Allow.
type Result struct {
	Allowed      bool
	Remaining    int64
	RetryAfterMs int64
}

// Limiter is backed by kvstore.Store's ScriptRateLimit atomic script.
type Limiter struct {
	kv kvstore.Store
}

func New(kv kvstore.Store) *Limiter {
	return &Limiter{kv: kv}
}

func bucketKey(agentID string) string {
	return "ratelimit:" + agentID
}

// Allow runs the token-bucket script for agentID with the given plan
// parameters at the current time. Semantics: refill =
// min(burst, stored + elapsedSec*rps); if refill >= 1, consume one token
// and allow; else report retryAfterMs = ceil(((1-refill)/rps)*1000).
func (l *Limiter) Allow(ctx context.Context, agentID string, rps, burst int, now time.Time) (Result, error) {
	res, err := l.kv.Eval(ctx, kvstore.ScriptRateLimit,
		[]string{bucketKey(agentID)},
		[]any{rps, burst, now.UnixMilli()},
	)
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: eval: %w", err)
	}
	return Result{Allowed: res.Allowed, Remaining: res.Remaining, RetryAfterMs: res.RetryAfterMs}, nil
}
