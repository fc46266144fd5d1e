// Package bans implements the ban registry: agent/IP/CIDR/user-agent
// bans, hard vs soft, a 60s read-through in-process cache, and
// auto-escalation on sliding-window violation counters.
package bans

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/pokegrid/relay/internal/kvstore"
)

// TargetKind names what a ban record matches against.
type TargetKind string

const (
	TargetAgent       TargetKind = "agent"
	TargetIP          TargetKind = "ip"
	TargetCIDR        TargetKind = "cidr"
	TargetUserAgent   TargetKind = "userAgentRegex"
)

// Mode is hard (403) or soft (429 with reason/expiry).
type Mode string

const (
	ModeHard Mode = "hard"
	ModeSoft Mode = "soft"
)

// Record is one ban.
type Record struct {
	Target     string     `json:"target"`
	TargetKind TargetKind `json:"targetKind"`
	Mode       Mode       `json:"mode"`
	Reason     string     `json:"reason"`
	ExpiresAt  *int64     `json:"expiresAt,omitempty"` // unix ms
	CreatedAt  int64      `json:"createdAt"`
}

func (r Record) expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.UnixMilli() >= *r.ExpiresAt
}

// ViolationKind distinguishes the two auto-escalation triggers.
type ViolationKind string

const (
	ViolationRateLimit     ViolationKind = "rate_limit"
	ViolationInvalidRequest ViolationKind = "invalid_request"
)

const (
	violationWindow   = 5 * time.Minute
	escalationBanTTL  = time.Hour
	cacheTTL          = 60 * time.Second
)

func hashKey(kind TargetKind) string {
	return "bans:" + string(kind)
}

// Decision is the outcome of CheckBan.
type Decision struct {
	Banned    bool
	Mode      Mode
	Reason    string
	ExpiresAt *int64
}

type cacheEntry struct {
	decision Decision
	expires  time.Time
}

// Registry tracks and resolves bans.
type Registry struct {
	kv kvstore.Store

	rateLimitThreshold int
	invalidReqThreshold int

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
}

func New(kv kvstore.Store, rateLimitThreshold, invalidReqThreshold int) *Registry {
	return &Registry{
		kv:                  kv,
		rateLimitThreshold:  rateLimitThreshold,
		invalidReqThreshold: invalidReqThreshold,
		cache:               make(map[string]cacheEntry),
	}
}

// CheckBan consults agent ban, then IP ban, then CIDR bans, then
// user-agent regex bans, in that priority, with hard winning over soft.
// Results are cached for 60s per (agentID, ip, userAgent) triple; the
// cache is invalidated on any Add/Remove.
func (r *Registry) CheckBan(ctx context.Context, agentID, ip, userAgent string) (Decision, error) {
	cacheKey := agentID + "|" + ip + "|" + userAgent

	r.cacheMu.Lock()
	if e, ok := r.cache[cacheKey]; ok && time.Now().Before(e.expires) {
		r.cacheMu.Unlock()
		return e.decision, nil
	}
	r.cacheMu.Unlock()

	decision, err := r.checkBanUncached(ctx, agentID, ip, userAgent)
	if err != nil {
		return Decision{}, err
	}

	r.cacheMu.Lock()
	r.cache[cacheKey] = cacheEntry{decision: decision, expires: time.Now().Add(cacheTTL)}
	r.cacheMu.Unlock()

	return decision, nil
}

func (r *Registry) checkBanUncached(ctx context.Context, agentID, ip, userAgent string) (Decision, error) {
	now := time.Now()

	var candidates []Record

	if agentID != "" {
		if rec, ok, err := r.get(ctx, TargetAgent, agentID); err != nil {
			return Decision{}, err
		} else if ok && !rec.expired(now) {
			candidates = append(candidates, rec)
		}
	}

	if ip != "" {
		if rec, ok, err := r.get(ctx, TargetIP, ip); err != nil {
			return Decision{}, err
		} else if ok && !rec.expired(now) {
			candidates = append(candidates, rec)
		}

		cidrs, err := r.all(ctx, TargetCIDR)
		if err != nil {
			return Decision{}, err
		}
		parsedIP := net.ParseIP(ip)
		for _, rec := range cidrs {
			if rec.expired(now) {
				continue
			}
			_, network, err := net.ParseCIDR(rec.Target)
			if err != nil || parsedIP == nil {
				continue
			}
			if network.Contains(parsedIP) {
				candidates = append(candidates, rec)
			}
		}
	}

	if userAgent != "" {
		uaBans, err := r.all(ctx, TargetUserAgent)
		if err != nil {
			return Decision{}, err
		}
		for _, rec := range uaBans {
			if rec.expired(now) {
				continue
			}
			re, err := regexp.Compile(rec.Target)
			if err != nil {
				continue
			}
			if re.MatchString(userAgent) {
				candidates = append(candidates, rec)
			}
		}
	}

	if len(candidates) == 0 {
		return Decision{Banned: false}, nil
	}

	// Hard wins over soft.
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Mode == ModeHard {
			best = c
			break
		}
	}

	return Decision{Banned: true, Mode: best.Mode, Reason: best.Reason, ExpiresAt: best.ExpiresAt}, nil
}

// Add creates (or overwrites) a ban record and invalidates the cache.
func (r *Registry) Add(ctx context.Context, rec Record) error {
	rec.CreatedAt = time.Now().UnixMilli()

	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.kv.HSet(ctx, hashKey(rec.TargetKind), rec.Target, string(raw)); err != nil {
		return fmt.Errorf("bans: add: %w", err)
	}

	r.invalidate()
	return nil
}

// Remove deletes a ban by target+kind and invalidates the cache.
func (r *Registry) Remove(ctx context.Context, kind TargetKind, target string) error {
	if err := r.kv.HDel(ctx, hashKey(kind), target); err != nil {
		return fmt.Errorf("bans: remove: %w", err)
	}
	r.invalidate()
	return nil
}

// List returns every active (non-expired) ban across all target kinds.
func (r *Registry) List(ctx context.Context) ([]Record, error) {
	now := time.Now()
	var out []Record
	for _, kind := range []TargetKind{TargetAgent, TargetIP, TargetCIDR, TargetUserAgent} {
		recs, err := r.all(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if !rec.expired(now) {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func (r *Registry) get(ctx context.Context, kind TargetKind, target string) (Record, bool, error) {
	raw, ok, err := r.kv.HGet(ctx, hashKey(kind), target)
	if err != nil || !ok {
		return Record{}, ok, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (r *Registry) all(ctx context.Context, kind TargetKind) ([]Record, error) {
	fields, err := r.kv.HGetAll(ctx, hashKey(kind))
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(fields))
	for _, raw := range fields {
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Registry) invalidate() {
	r.cacheMu.Lock()
	r.cache = make(map[string]cacheEntry)
	r.cacheMu.Unlock()
}

func violationKey(kind ViolationKind, key string) string {
	return "bans:violations:" + string(kind) + ":" + key
}

// RecordViolation increments a sliding-window counter for key (an agentID
// for rate-limit violations, an IP for invalid-request violations) and, on
// crossing the configured threshold, creates the matching auto-escalation
// ban.
func (r *Registry) RecordViolation(ctx context.Context, kind ViolationKind, key string) error {
	now := time.Now()
	zkey := violationKey(kind, key)
	member := strconv.FormatInt(now.UnixNano(), 10)

	if err := r.kv.ZAdd(ctx, zkey, member, float64(now.UnixMilli())); err != nil {
		return fmt.Errorf("bans: record violation: %w", err)
	}
	if err := r.kv.Expire(ctx, zkey, violationWindow); err != nil {
		return fmt.Errorf("bans: expire violation key: %w", err)
	}

	members, err := r.kv.ZRangeDesc(ctx, zkey)
	if err != nil {
		return fmt.Errorf("bans: count violations: %w", err)
	}

	cutoff := float64(now.Add(-violationWindow).UnixMilli())
	count := 0
	for _, m := range members {
		if m.Score >= cutoff {
			count++
		}
	}

	var threshold int
	switch kind {
	case ViolationRateLimit:
		threshold = r.rateLimitThreshold
	case ViolationInvalidRequest:
		threshold = r.invalidReqThreshold
	}

	if count < threshold {
		return nil
	}

	expires := now.Add(escalationBanTTL).UnixMilli()

	switch kind {
	case ViolationRateLimit:
		return r.Add(ctx, Record{
			Target:     key,
			TargetKind: TargetAgent,
			Mode:       ModeSoft,
			Reason:     "automatic: repeated rate-limit violations",
			ExpiresAt:  &expires,
		})
	case ViolationInvalidRequest:
		return r.Add(ctx, Record{
			Target:     key,
			TargetKind: TargetIP,
			Mode:       ModeHard,
			Reason:     "automatic: repeated invalid requests",
			ExpiresAt:  &expires,
		})
	}

	return nil
}
