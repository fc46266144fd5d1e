package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore adapts github.com/redis/go-redis/v9 to the Store interface.
// Chosen because it is the idiomatic Go client for exactly this primitive
// set (hashes, sorted sets, Lua EVAL, pub/sub); no other repo in the
// retrieval pack implements an equivalent from scratch, so this
// dependency is named rather than grounded (see DESIGN.md).
type RedisStore struct {
	client  *redis.Client
	scripts map[Script]*redis.Script
}

// dialBackoff is the capped exponential backoff used only for the initial
// connect; go-redis itself retries transparently thereafter.
var dialBackoff = []time.Duration{
	100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond,
	800 * time.Millisecond, 1600 * time.Millisecond, 3200 * time.Millisecond,
}

// Dial connects to url (a redis:// or rediss:// URL), retrying the initial
// ping with capped exponential backoff. Once connected, operations are
// fail-fast during later outages.
func Dial(ctx context.Context, url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("kvstore: parse url: %w", err)
	}

	client := redis.NewClient(opt)

	var lastErr error
	for _, d := range dialBackoff {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			break
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("kvstore: initial connect failed: %w", lastErr)
	}

	return &RedisStore{
		client: client,
		scripts: map[Script]*redis.Script{
			ScriptRateLimit:   redis.NewScript(luaBody(ScriptRateLimit)),
			ScriptRecordVote:  redis.NewScript(luaBody(ScriptRecordVote)),
		},
	}, nil
}

func (s *RedisStore) HSet(ctx context.Context, key, field, value string) error {
	return s.client.HSet(ctx, key, field, value).Err()
}

func (s *RedisStore) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	return s.client.HSetNX(ctx, key, field, value).Result()
}

func (s *RedisStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

func (s *RedisStore) HDel(ctx context.Context, key string, fields ...string) error {
	return s.client.HDel(ctx, key, fields...).Err()
}

func (s *RedisStore) HLen(ctx context.Context, key string) (int64, error) {
	return s.client.HLen(ctx, key).Result()
}

func (s *RedisStore) ZAdd(ctx context.Context, key, member string, score float64) error {
	return s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (s *RedisStore) ZIncrBy(ctx context.Context, key, member string, delta float64) (float64, error) {
	return s.client.ZIncrBy(ctx, key, delta, member).Result()
}

func (s *RedisStore) ZRangeDesc(ctx context.Context, key string) ([]ZMember, error) {
	zs, err := s.client.ZRevRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]ZMember, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		out = append(out, ZMember{Member: member, Score: z.Score})
	}
	return out, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) Publish(ctx context.Context, channel, message string) error {
	return s.client.Publish(ctx, channel, message).Err()
}

type redisSubscription struct {
	sub *redis.PubSub
	ch  chan Message
	done chan struct{}
}

func (s *RedisStore) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := s.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	rs := &redisSubscription{
		sub:  sub,
		ch:   make(chan Message, 64),
		done: make(chan struct{}),
	}

	go func() {
		defer close(rs.ch)
		redisCh := sub.Channel()
		for {
			select {
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case rs.ch <- Message{Channel: msg.Channel, Payload: msg.Payload}:
				case <-rs.done:
					return
				}
			case <-rs.done:
				return
			}
		}
	}()

	return rs, nil
}

func (r *redisSubscription) Channel() <-chan Message { return r.ch }

func (r *redisSubscription) Close() error {
	close(r.done)
	return r.sub.Close()
}

func (s *RedisStore) Eval(ctx context.Context, script Script, keys []string, args []any) (EvalResult, error) {
	sc, ok := s.scripts[script]
	if !ok {
		return EvalResult{}, fmt.Errorf("kvstore: unknown script %q", script)
	}

	raw, err := sc.Run(ctx, s.client, keys, args...).Result()
	if err != nil {
		return EvalResult{}, err
	}

	return decodeEvalResult(script, raw)
}

func decodeEvalResult(script Script, raw any) (EvalResult, error) {
	vals, ok := raw.([]any)
	if !ok {
		return EvalResult{}, fmt.Errorf("kvstore: unexpected script result shape: %T", raw)
	}

	switch script {
	case ScriptRateLimit:
		if len(vals) != 3 {
			return EvalResult{}, fmt.Errorf("kvstore: rate_limit returned %d values", len(vals))
		}
		allowed, _ := vals[0].(int64)
		remaining, _ := vals[1].(int64)
		retryAfterMs, _ := vals[2].(int64)
		return EvalResult{Ok: true, Allowed: allowed == 1, Remaining: remaining, RetryAfterMs: retryAfterMs}, nil
	case ScriptRecordVote:
		return EvalResult{Ok: true}, nil
	default:
		return EvalResult{Ok: true}, nil
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
