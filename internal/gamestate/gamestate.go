// Package gamestate is the relay-side service binding credentials,
// bans, rate limiting and vote buffering together behind the four
// operations the REST surface exposes: getGameState,
// submitAction, getRateLimit, getHistory.
package gamestate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pokegrid/relay/internal/bans"
	"github.com/pokegrid/relay/internal/creds"
	"github.com/pokegrid/relay/internal/protocol"
	"github.com/pokegrid/relay/internal/ratelimit"
	"github.com/pokegrid/relay/internal/votes"
)

var (
	// ErrUnknownGame is returned when no state has ever been pushed for a
	// gameId — the relay never fabricates a placeholder document.
	ErrUnknownGame = errors.New("gamestate: unknown game")
	// ErrBanned is wrapped by the BanError SubmitAction returns for any
	// active ban, hard or soft.
	ErrBanned = errors.New("gamestate: banned")
	// ErrRateLimited is returned by SubmitAction when the token bucket is empty.
	ErrRateLimited = errors.New("gamestate: rate limited")
	// ErrInvalidAction is returned by SubmitAction when action isn't one of
	// the eight legal buttons.
	ErrInvalidAction = errors.New("gamestate: invalid action")
)

// BanError carries the ban decision for callers (HTTP handlers) that need
// the reason/expiry to shape the response body.
type BanError struct {
	Decision bans.Decision
}

func (e *BanError) Error() string { return "gamestate: banned" }
func (e *BanError) Unwrap() error { return ErrBanned }

// RateLimitError carries the limiter result for the same reason.
type RateLimitError struct {
	Result ratelimit.Result
}

func (e *RateLimitError) Error() string { return "gamestate: rate limited" }
func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// Service binds credentials, bans, rate limiting and vote buffering.
type Service struct {
	Creds *creds.Store
	Bans  *bans.Registry
	Limit *ratelimit.Limiter
	Votes *votes.Aggregator

	mu        sync.RWMutex
	states    map[string]protocol.State
	tickIDs   map[string]int64
}

func New(credStore *creds.Store, banRegistry *bans.Registry, limiter *ratelimit.Limiter, voteAgg *votes.Aggregator) *Service {
	return &Service{
		Creds:   credStore,
		Bans:    banRegistry,
		Limit:   limiter,
		Votes:   voteAgg,
		states:  make(map[string]protocol.State),
		tickIDs: make(map[string]int64),
	}
}

// GetGameState returns the last cached state pushed by the home client for
// gameID.
func (s *Service) GetGameState(gameID string) (protocol.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[gameID]
	if !ok {
		return protocol.State{}, ErrUnknownGame
	}
	return st, nil
}

// SetGameState installs a freshly received state_push as the cached state.
func (s *Service) SetGameState(gameID string, st protocol.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[gameID] = st
}

// CurrentTick returns the tick bucket new votes for gameID should be
// recorded against; it is 0 until AdvanceTick is first called for gameID.
func (s *Service) CurrentTick(gameID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickIDs[gameID]
}

// AdvanceTick bumps the tick bucket for gameID and returns the prior
// (now-closing) bucket id, so the caller can flush its votes.
func (s *Service) AdvanceTick(gameID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	prior := s.tickIDs[gameID]
	s.tickIDs[gameID] = prior + 1
	return prior
}

// GetHistory returns the cached state's turnHistory, already capped at
// protocol.MaxTurnHistory by the decoder.
func (s *Service) GetHistory(gameID string) ([]protocol.TurnHistoryEntry, error) {
	st, err := s.GetGameState(gameID)
	if err != nil {
		return nil, err
	}
	return st.TurnHistory, nil
}

// GetRateLimit reports the ceiling configured for the agent's plan. This is
// the agent's configured plan limit, not a live bucket peek — the token
// bucket's Lua script only supports atomic consume, and adding a
// non-consuming peek variant would double every rate-limit check's KV
// round trips for a field of secondary importance.
func (s *Service) GetRateLimit(meta *creds.Metadata) ratelimit.Result {
	return ratelimit.Result{Allowed: true, Remaining: int64(meta.Burst), RetryAfterMs: 0}
}

// SubmitAction validates action, checks bans and rate limit, then records
// the vote in the current tick bucket.
func (s *Service) SubmitAction(ctx context.Context, meta *creds.Metadata, ip, userAgent, gameID string, action protocol.Action, now time.Time) error {
	if !action.Valid() {
		return ErrInvalidAction
	}

	decision, err := s.Bans.CheckBan(ctx, meta.AgentID, ip, userAgent)
	if err != nil {
		return err
	}
	if decision.Banned {
		return &BanError{Decision: decision}
	}

	limits := meta.Plan.Limits()
	result, err := s.Limit.Allow(ctx, meta.AgentID, limits.RPS, limits.Burst, now)
	if err != nil {
		return err
	}
	if !result.Allowed {
		if recErr := s.Bans.RecordViolation(ctx, bans.ViolationRateLimit, meta.AgentID); recErr != nil {
			return recErr
		}
		return &RateLimitError{Result: result}
	}

	tick := s.CurrentTick(gameID)
	return s.Votes.RecordVote(ctx, gameID, tick, meta.AgentID, action, now)
}
