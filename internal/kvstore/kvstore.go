// Package kvstore adapts the shared KV/pub-sub primitives the credential,
// ban, rate-limit and vote packages are built on: hashes, sorted sets,
// atomic scripted ops, pub/sub, TTLs. It is the single source of truth
// for credentials, bans, votes and
// rate-limit state; cached game state and the home-client session stay
// process-local and never go through this interface.
package kvstore

import (
	"context"
	"time"
)

// ZMember is one (member, score) pair as returned by ZRange-with-scores.
type ZMember struct {
	Member string
	Score  float64
}

// Store is the narrow interface every component depends on, so the
// packages built on it can be unit tested against the in-memory fake in
// memory.go without a live Redis.
type Store interface {
	// Hash operations. HSetNX is the atomic "reserve if absent" primitive
	// the credential store's Register uses to refuse duplicate agentIds
	// without a script.
	HSet(ctx context.Context, key, field string, value string) error
	HSetNX(ctx context.Context, key, field string, value string) (bool, error)
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	HLen(ctx context.Context, key string) (int64, error)

	// Sorted set operations. ZRangeDesc returns members ordered by score
	// descending, matching "ZRANGE by score desc".
	ZAdd(ctx context.Context, key string, member string, score float64) error
	ZIncrBy(ctx context.Context, key string, member string, delta float64) (float64, error)
	ZRangeDesc(ctx context.Context, key string) ([]ZMember, error)

	// Generic key management.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	// Pub/sub. Publish fans a message out to every Subscribe(channel)
	// caller across every relay replica.
	Publish(ctx context.Context, channel string, message string) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	// Eval runs a named atomic script (see scripts.go) with the given
	// keys/args and returns its decoded result as an EvalResult.
	Eval(ctx context.Context, script Script, keys []string, args []any) (EvalResult, error)

	// Ping verifies connectivity for /health and the reconnect policy.
	Ping(ctx context.Context) error

	Close() error
}

// Subscription is a live pub/sub channel subscription.
type Subscription interface {
	Channel() <-chan Message
	Close() error
}

// Message is one pub/sub delivery.
type Message struct {
	Channel string
	Payload string
}

// EvalResult is the decoded return value of an atomic script. Scripts in
// this system return small structured tuples, so EvalResult exposes typed
// accessors rather than a raw interface{} the caller must type-assert.
// Allowed/Remaining/RetryAfterMs are populated by ScriptRateLimit; Ok is
// populated by every script as a generic success flag.
type EvalResult struct {
	Ok           bool
	Allowed      bool
	Remaining    int64
	RetryAfterMs int64
}
