package kvstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process fake implementing the same atomic-script
// semantics as the Lua bodies in scripts.go, so the packages built on
// Store can be unit tested without a live Redis. Not used in production.
type MemoryStore struct {
	mu      sync.Mutex
	hashes  map[string]map[string]string
	zsets   map[string]map[string]float64
	expires map[string]time.Time

	subsMu sync.Mutex
	subs   map[string][]*memorySubscription
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		hashes:  make(map[string]map[string]string),
		zsets:   make(map[string]map[string]float64),
		expires: make(map[string]time.Time),
		subs:    make(map[string][]*memorySubscription),
	}
}

func (m *MemoryStore) HSet(_ context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string]string)
	}
	m.hashes[key][field] = value
	return nil
}

func (m *MemoryStore) HSetNX(_ context.Context, key, field, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string]string)
	}
	if _, exists := m.hashes[key][field]; exists {
		return false, nil
	}
	m.hashes[key][field] = value
	return true, nil
}

func (m *MemoryStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		return "", false, nil
	}
	v, ok := h[field]
	return v, ok, nil
}

func (m *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) HDel(_ context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		return nil
	}
	for _, f := range fields {
		delete(h, f)
	}
	return nil
}

func (m *MemoryStore) HLen(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.hashes[key])), nil
}

func (m *MemoryStore) ZAdd(_ context.Context, key, member string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] = score
	return nil
}

func (m *MemoryStore) ZIncrBy(_ context.Context, key, member string, delta float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] += delta
	return m.zsets[key][member], nil
}

func (m *MemoryStore) ZRangeDesc(_ context.Context, key string) ([]ZMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z := m.zsets[key]
	out := make([]ZMember, 0, len(z))
	for member, score := range z {
		out = append(out, ZMember{Member: member, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	return out, nil
}

func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[key] = time.Now().Add(ttl)
	return nil
}

func (m *MemoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.hashes, k)
		delete(m.zsets, k)
		delete(m.expires, k)
	}
	return nil
}

func (m *MemoryStore) Publish(_ context.Context, channel, message string) error {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, s := range m.subs[channel] {
		select {
		case s.ch <- Message{Channel: channel, Payload: message}:
		default:
		}
	}
	return nil
}

type memorySubscription struct {
	store   *MemoryStore
	channel string
	ch      chan Message
}

func (m *MemoryStore) Subscribe(_ context.Context, channel string) (Subscription, error) {
	s := &memorySubscription{store: m, channel: channel, ch: make(chan Message, 64)}
	m.subsMu.Lock()
	m.subs[channel] = append(m.subs[channel], s)
	m.subsMu.Unlock()
	return s, nil
}

func (s *memorySubscription) Channel() <-chan Message { return s.ch }

func (s *memorySubscription) Close() error {
	s.store.subsMu.Lock()
	defer s.store.subsMu.Unlock()
	list := s.store.subs[s.channel]
	for i, v := range list {
		if v == s {
			s.store.subs[s.channel] = append(list[:i], list[i+1:]...)
			break
		}
	}
	close(s.ch)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// Eval reproduces the Lua scripts' semantics directly in Go, under the
// same mutex every other MemoryStore method uses, so it observes a
// consistent snapshot just as a real EVAL would.
func (m *MemoryStore) Eval(_ context.Context, script Script, keys []string, args []any) (EvalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch script {
	case ScriptRateLimit:
		return m.evalRateLimitLocked(keys, args)
	case ScriptRecordVote:
		return m.evalRecordVoteLocked(keys, args)
	default:
		return EvalResult{}, fmt.Errorf("kvstore: unknown script %q", script)
	}
}

func (m *MemoryStore) evalRateLimitLocked(keys []string, args []any) (EvalResult, error) {
	key := keys[0]
	rps := toFloat(args[0])
	burst := toFloat(args[1])
	now := toFloat(args[2])

	h := m.hashes[key]
	var tokens, ts float64
	if h == nil {
		tokens, ts = burst, now
	} else {
		tokens = parseFloatOr(h["tokens"], burst)
		ts = parseFloatOr(h["ts"], now)
	}

	elapsed := math.Max(0, now-ts) / 1000.0
	refilled := math.Min(burst, tokens+elapsed*rps)

	allowed := false
	var retryAfterMs int64
	if refilled >= 1 {
		refilled--
		allowed = true
	} else {
		retryAfterMs = int64(math.Ceil(((1 - refilled) / rps) * 1000))
	}

	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string]string)
	}
	m.hashes[key]["tokens"] = strconv.FormatFloat(refilled, 'f', -1, 64)
	m.hashes[key]["ts"] = strconv.FormatFloat(now, 'f', -1, 64)

	return EvalResult{Ok: true, Allowed: allowed, Remaining: int64(math.Floor(refilled)), RetryAfterMs: retryAfterMs}, nil
}

func (m *MemoryStore) evalRecordVoteLocked(keys []string, args []any) (EvalResult, error) {
	votesKey, tallyKey, firstKey := keys[0], keys[1], keys[2]
	agentID := fmt.Sprint(args[0])
	action := fmt.Sprint(args[1])
	ts := toFloat(args[2])

	if m.hashes[votesKey] == nil {
		m.hashes[votesKey] = make(map[string]string)
	}
	if m.zsets[tallyKey] == nil {
		m.zsets[tallyKey] = make(map[string]float64)
	}
	if m.hashes[firstKey] == nil {
		m.hashes[firstKey] = make(map[string]string)
	}

	if prevRaw, ok := m.hashes[votesKey][agentID]; ok {
		prevAction, prevTs := splitVote(prevRaw)
		if prevAction == action && prevTs == ts {
			return EvalResult{Ok: true}, nil
		}

		m.zsets[tallyKey][prevAction]--

		if firstStr, ok := m.hashes[firstKey][prevAction]; ok {
			if parseFloatOr(firstStr, -1) == prevTs {
				var newFirst float64
				found := false
				for agent, raw := range m.hashes[votesKey] {
					if agent == agentID {
						continue
					}
					a, t := splitVote(raw)
					if a == prevAction && (!found || t < newFirst) {
						newFirst, found = t, true
					}
				}
				if found {
					m.hashes[firstKey][prevAction] = strconv.FormatFloat(newFirst, 'f', -1, 64)
				} else {
					delete(m.hashes[firstKey], prevAction)
				}
			}
		}
	}

	m.hashes[votesKey][agentID] = joinVote(action, ts)
	m.zsets[tallyKey][action]++

	if cur, ok := m.hashes[firstKey][action]; !ok || ts < parseFloatOr(cur, ts+1) {
		m.hashes[firstKey][action] = strconv.FormatFloat(ts, 'f', -1, 64)
	}

	return EvalResult{Ok: true}, nil
}

func splitVote(raw string) (action string, ts float64) {
	idx := strings.LastIndex(raw, ":")
	if idx < 0 {
		return raw, 0
	}
	ts, _ = strconv.ParseFloat(raw[idx+1:], 64)
	return raw[:idx], ts
}

func joinVote(action string, ts float64) string {
	return action + ":" + strconv.FormatFloat(ts, 'f', 0, 64)
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	default:
		return 0
	}
}

func parseFloatOr(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}
