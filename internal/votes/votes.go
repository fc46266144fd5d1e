// Package votes implements the vote aggregator: per-(gameId,tickId)
// one-vote-per-agent dedup, tally, clear, with a ~1h TTL.
package votes

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pokegrid/relay/internal/kvstore"
	"github.com/pokegrid/relay/internal/protocol"
)

const voteTTL = time.Hour

// Result is the outcome of TallyVotes.
type Result struct {
	WinningAction protocol.Action
	VoteCounts    map[protocol.Action]int
	TotalVotes    int
}

// Aggregator is backed by kvstore.Store's ScriptRecordVote script.
type Aggregator struct {
	kv kvstore.Store
}

func New(kv kvstore.Store) *Aggregator {
	return &Aggregator{kv: kv}
}

func votesKey(gameID string, tickID int64) string {
	return fmt.Sprintf("votes:%s:%d", gameID, tickID)
}

func tallyKey(gameID string, tickID int64) string {
	return fmt.Sprintf("tally:%s:%d", gameID, tickID)
}

func tallyFirstKey(gameID string, tickID int64) string {
	return fmt.Sprintf("tallyFirst:%s:%d", gameID, tickID)
}

// RecordVote enforces at-most-one-vote-per-agent-per-tick: last write
// wins, ties on identical (agent, action, ts) are idempotent. action is not validated here; callers (gamestate.Service,
// the relay's /vote handler) reject invalid actions before this point.
func (a *Aggregator) RecordVote(ctx context.Context, gameID string, tickID int64, agentID string, action protocol.Action, ts time.Time) error {
	_, err := a.kv.Eval(ctx, kvstore.ScriptRecordVote,
		[]string{votesKey(gameID, tickID), tallyKey(gameID, tickID), tallyFirstKey(gameID, tickID)},
		[]any{agentID, string(action), ts.UnixMilli(), int(voteTTL.Seconds())},
	)
	if err != nil {
		return fmt.Errorf("votes: record: %w", err)
	}
	return nil
}

// TallyVotes reads the sorted set in descending score order and breaks
// ties by earliest timestamp ascending. With zero recorded
// votes, winningAction falls back to "a".
func (a *Aggregator) TallyVotes(ctx context.Context, gameID string, tickID int64) (Result, error) {
	members, err := a.kv.ZRangeDesc(ctx, tallyKey(gameID, tickID))
	if err != nil {
		return Result{}, fmt.Errorf("votes: tally: %w", err)
	}

	counts := make(map[protocol.Action]int, len(members))
	total := 0
	type scored struct {
		action protocol.Action
		count  int
	}
	var ordered []scored
	for _, m := range members {
		c := int(m.Score)
		if c <= 0 {
			continue
		}
		act := protocol.Action(m.Member)
		counts[act] = c
		total += c
		ordered = append(ordered, scored{action: act, count: c})
	}

	if len(ordered) == 0 {
		return Result{WinningAction: protocol.ActionA, VoteCounts: counts, TotalVotes: 0}, nil
	}

	firsts, err := a.kv.HGetAll(ctx, tallyFirstKey(gameID, tickID))
	if err != nil {
		return Result{}, fmt.Errorf("votes: tally firsts: %w", err)
	}

	// ZRangeDesc already orders by score desc; stable-sort preserves that
	// ordering among equal counts, then break remaining ties by earliest
	// timestamp ascending.
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return firstTS(firsts, ordered[i].action) < firstTS(firsts, ordered[j].action)
	})

	return Result{WinningAction: ordered[0].action, VoteCounts: counts, TotalVotes: total}, nil
}

func firstTS(firsts map[string]string, action protocol.Action) float64 {
	raw, ok := firsts[string(action)]
	if !ok {
		return 1<<62
	}
	var ts float64
	_, _ = fmt.Sscanf(raw, "%f", &ts)
	return ts
}

// RawVotes returns the individually recorded votes for (gameID, tickID) as
// VoteEntry values, the shape the relay forwards to the home client inside
// a VoteBatch — one entry per agent, last-write-wins.
func (a *Aggregator) RawVotes(ctx context.Context, gameID string, tickID int64) ([]protocol.VoteEntry, error) {
	fields, err := a.kv.HGetAll(ctx, votesKey(gameID, tickID))
	if err != nil {
		return nil, fmt.Errorf("votes: raw: %w", err)
	}

	entries := make([]protocol.VoteEntry, 0, len(fields))
	for agentID, raw := range fields {
		action, ts, ok := splitRaw(raw)
		if !ok {
			continue
		}
		entries = append(entries, protocol.VoteEntry{AgentID: agentID, Action: action, Timestamp: ts})
	}
	return entries, nil
}

func splitRaw(raw string) (protocol.Action, int64, bool) {
	idx := strings.LastIndex(raw, ":")
	if idx < 0 {
		return "", 0, false
	}
	ts, err := strconv.ParseInt(raw[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return protocol.Action(raw[:idx]), ts, true
}

// TallyEntries is the pure, in-process counterpart of TallyVotes: given a
// batch of VoteEntry (as received over a vote_batch frame) it dedups by
// agent (last entry per agent wins), counts, and breaks ties by earliest
// timestamp ascending, falling back to "a" with zero votes.
func TallyEntries(entries []protocol.VoteEntry) Result {
	latest := make(map[string]protocol.VoteEntry, len(entries))
	for _, e := range entries {
		cur, ok := latest[e.AgentID]
		if !ok || e.Timestamp >= cur.Timestamp {
			latest[e.AgentID] = e
		}
	}

	counts := make(map[protocol.Action]int)
	firsts := make(map[protocol.Action]int64)
	total := 0
	for _, e := range latest {
		counts[e.Action]++
		total++
		if f, ok := firsts[e.Action]; !ok || e.Timestamp < f {
			firsts[e.Action] = e.Timestamp
		}
	}

	if total == 0 {
		return Result{WinningAction: protocol.ActionA, VoteCounts: counts, TotalVotes: 0}
	}

	type scored struct {
		action protocol.Action
		count  int
	}
	ordered := make([]scored, 0, len(counts))
	for a, c := range counts {
		ordered = append(ordered, scored{action: a, count: c})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return firsts[ordered[i].action] < firsts[ordered[j].action]
	})

	return Result{WinningAction: ordered[0].action, VoteCounts: counts, TotalVotes: total}
}

// ClearVotes deletes all keys for (gameID, tickID).
func (a *Aggregator) ClearVotes(ctx context.Context, gameID string, tickID int64) error {
	return a.kv.Del(ctx, votesKey(gameID, tickID), tallyKey(gameID, tickID), tallyFirstKey(gameID, tickID))
}
