package votes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokegrid/relay/internal/kvstore"
	"github.com/pokegrid/relay/internal/protocol"
)

func newTestAggregator() *Aggregator {
	return New(kvstore.NewMemory())
}

func TestRecordVoteLastWriteWins(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator()

	base := time.UnixMilli(1000)
	require.NoError(t, agg.RecordVote(ctx, "red-1", 0, "agent-a", protocol.ActionUp, base))
	require.NoError(t, agg.RecordVote(ctx, "red-1", 0, "agent-a", protocol.ActionDown, base.Add(time.Second)))

	result, err := agg.TallyVotes(ctx, "red-1", 0)
	require.NoError(t, err)
	assert.Equal(t, protocol.ActionDown, result.WinningAction)
	assert.Equal(t, 1, result.TotalVotes)
	assert.Equal(t, 1, result.VoteCounts[protocol.ActionDown])
	assert.Equal(t, 0, result.VoteCounts[protocol.ActionUp])
}

func TestTallyVotesMajorityWins(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator()
	base := time.UnixMilli(1000)

	require.NoError(t, agg.RecordVote(ctx, "red-1", 3, "a1", protocol.ActionA, base))
	require.NoError(t, agg.RecordVote(ctx, "red-1", 3, "a2", protocol.ActionA, base.Add(time.Millisecond)))
	require.NoError(t, agg.RecordVote(ctx, "red-1", 3, "a3", protocol.ActionB, base.Add(2*time.Millisecond)))

	result, err := agg.TallyVotes(ctx, "red-1", 3)
	require.NoError(t, err)
	assert.Equal(t, protocol.ActionA, result.WinningAction)
	assert.Equal(t, 3, result.TotalVotes)
}

func TestTallyVotesTieBreaksOnEarliestTimestamp(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator()
	base := time.UnixMilli(5000)

	require.NoError(t, agg.RecordVote(ctx, "red-1", 7, "a1", protocol.ActionLeft, base.Add(10*time.Millisecond)))
	require.NoError(t, agg.RecordVote(ctx, "red-1", 7, "a2", protocol.ActionRight, base))

	result, err := agg.TallyVotes(ctx, "red-1", 7)
	require.NoError(t, err)
	assert.Equal(t, protocol.ActionRight, result.WinningAction, "right was cast first so it should win the 1-1 tie")
}

func TestTallyVotesFallsBackToAWithNoVotes(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator()

	result, err := agg.TallyVotes(ctx, "red-1", 99)
	require.NoError(t, err)
	assert.Equal(t, protocol.ActionA, result.WinningAction)
	assert.Equal(t, 0, result.TotalVotes)
}

func TestRawVotesAndClearVotes(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator()
	base := time.UnixMilli(2000)

	require.NoError(t, agg.RecordVote(ctx, "red-1", 1, "a1", protocol.ActionUp, base))
	require.NoError(t, agg.RecordVote(ctx, "red-1", 1, "a2", protocol.ActionDown, base))

	entries, err := agg.RawVotes(ctx, "red-1", 1)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, agg.ClearVotes(ctx, "red-1", 1))

	entries, err = agg.RawVotes(ctx, "red-1", 1)
	require.NoError(t, err)
	assert.Empty(t, entries)

	result, err := agg.TallyVotes(ctx, "red-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalVotes)
}

func TestTallyEntriesDedupsByAgentKeepingLatest(t *testing.T) {
	base := time.UnixMilli(1000).UnixMilli()
	entries := []protocol.VoteEntry{
		{AgentID: "a1", Action: protocol.ActionUp, Timestamp: base},
		{AgentID: "a1", Action: protocol.ActionDown, Timestamp: base + 500},
		{AgentID: "a2", Action: protocol.ActionDown, Timestamp: base + 100},
	}

	result := TallyEntries(entries)
	assert.Equal(t, protocol.ActionDown, result.WinningAction)
	assert.Equal(t, 2, result.TotalVotes)
	assert.Equal(t, 0, result.VoteCounts[protocol.ActionUp])
	assert.Equal(t, 2, result.VoteCounts[protocol.ActionDown])
}

func TestTallyEntriesTieBreaksOnEarliestTimestamp(t *testing.T) {
	base := time.UnixMilli(9000).UnixMilli()
	entries := []protocol.VoteEntry{
		{AgentID: "a1", Action: protocol.ActionLeft, Timestamp: base + 10},
		{AgentID: "a2", Action: protocol.ActionRight, Timestamp: base},
	}

	result := TallyEntries(entries)
	assert.Equal(t, protocol.ActionRight, result.WinningAction)
}

func TestTallyEntriesEmptyFallsBackToA(t *testing.T) {
	result := TallyEntries(nil)
	assert.Equal(t, protocol.ActionA, result.WinningAction)
	assert.Equal(t, 0, result.TotalVotes)
}
