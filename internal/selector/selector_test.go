package selector

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bad33ndj3/mcp-memory-engine/internal/memory"
)

func chunk(id string, tags []string, content string, importance int, age time.Duration, now time.Time) memory.Chunk {
	return memory.Chunk{
		ID:         id,
		Content:    content,
		Tags:       tags,
		Importance: importance,
		Timestamp:  now.Add(-age),
	}.Normalize()
}

// T1: every returned Signals field is within [0,1], and Score is finite.
func TestSelectSignalsStayInUnitRange(t *testing.T) {
	now := time.Now()
	memories := []memory.Chunk{
		chunk("m1", []string{"systems"}, "distributed consensus raft leader election", 8, time.Hour, now),
		chunk("m2", []string{"cooking"}, "onion soup recipe garlic", 3, 30*24*time.Hour, now),
		chunk("m3", []string{"systems", "networking"}, "raft quorum replication log", 9, 2*time.Hour, now),
	}
	kernel := memory.Kernel{ID: "k1", Name: "infra", Prompt: "raft consensus", Keywords: []string{"systems"}}

	sel := New()
	rnd := rand.New(rand.NewSource(1))
	got := sel.Select(rnd, memories, kernel, map[string]memory.Rating{}, now, Options{Limit: 3})

	require.NotEmpty(t, got)
	for _, s := range got {
		require.GreaterOrEqual(t, s.Signals.Importance, 0.0)
		require.LessOrEqual(t, s.Signals.Importance, 1.0)
		require.GreaterOrEqual(t, s.Signals.TagRelevance, 0.0)
		require.LessOrEqual(t, s.Signals.TagRelevance, 1.0)
		require.GreaterOrEqual(t, s.Signals.Recency, 0.0)
		require.LessOrEqual(t, s.Signals.Recency, 1.0)
		require.GreaterOrEqual(t, s.Signals.Centrality, 0.0)
		require.LessOrEqual(t, s.Signals.Centrality, 1.0)
		require.GreaterOrEqual(t, s.Signals.Thompson, 0.0)
		require.LessOrEqual(t, s.Signals.Thompson, 1.0)
	}
}

// T5/S1: tag pre-filtering excludes candidates with no keyword overlap
// when the kernel has keywords and the filter leaves a non-empty set.
func TestSelectPrefiltersByTagOverlap(t *testing.T) {
	now := time.Now()
	memories := []memory.Chunk{
		chunk("systems-1", []string{"systems"}, "raft consensus protocol", 5, time.Hour, now),
		chunk("cooking-1", []string{"cooking"}, "onion soup recipe", 5, time.Hour, now),
	}
	kernel := memory.Kernel{ID: "k1", Keywords: []string{"systems"}}

	sel := New()
	rnd := rand.New(rand.NewSource(2))
	got := sel.Select(rnd, memories, kernel, map[string]memory.Rating{}, now, Options{Limit: 10})

	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.MemoryID)
	}
	require.Contains(t, ids, "systems-1")
	require.NotContains(t, ids, "cooking-1")
}

// S2: when no candidate's tags overlap the kernel's keywords, the filter
// excludes every candidate and Select returns an empty result.
func TestSelectReturnsEmptyWhenTagFilterExcludesEverything(t *testing.T) {
	now := time.Now()
	memories := []memory.Chunk{
		chunk("m1", []string{"cooking"}, "onion soup recipe", 5, time.Hour, now),
		chunk("m2", []string{"travel"}, "flight itinerary notes", 5, time.Hour, now),
	}
	kernel := memory.Kernel{ID: "k1", Keywords: []string{"systems"}}

	sel := New()
	rnd := rand.New(rand.NewSource(3))
	got := sel.Select(rnd, memories, kernel, map[string]memory.Rating{}, now, Options{Limit: 10})

	require.Empty(t, got)
}

// S3: BypassTagFilter scores the full input even with matching keywords
// present.
func TestSelectBypassTagFilterScoresEverything(t *testing.T) {
	now := time.Now()
	memories := []memory.Chunk{
		chunk("m1", []string{"systems"}, "raft consensus", 5, time.Hour, now),
		chunk("m2", []string{"cooking"}, "onion soup", 5, time.Hour, now),
	}
	kernel := memory.Kernel{ID: "k1", Keywords: []string{"systems"}}

	sel := New()
	rnd := rand.New(rand.NewSource(4))
	got := sel.Select(rnd, memories, kernel, map[string]memory.Rating{}, now, Options{Limit: 10, BypassTagFilter: true})
	require.Len(t, got, 2)
}

// T6: Select never returns more than Options.Limit results, and never
// more than the number of eligible candidates.
func TestSelectRespectsLimit(t *testing.T) {
	now := time.Now()
	memories := make([]memory.Chunk, 0, 5)
	for i := 0; i < 5; i++ {
		memories = append(memories, chunk(string(rune('a'+i)), []string{"systems"}, "raft consensus protocol term", 5, time.Hour, now))
	}
	kernel := memory.Kernel{ID: "k1", Keywords: []string{"systems"}}

	sel := New()
	rnd := rand.New(rand.NewSource(5))
	got := sel.Select(rnd, memories, kernel, map[string]memory.Rating{}, now, Options{Limit: 2})
	require.Len(t, got, 2)
}

// T7: a missing rating entry is treated as an uninformed prior (mu=0,
// sigma=1) rather than erroring or panicking.
func TestSelectHandlesMissingRatingAsUninformedPrior(t *testing.T) {
	now := time.Now()
	memories := []memory.Chunk{
		chunk("m1", []string{"systems"}, "raft consensus protocol", 5, time.Hour, now),
	}
	kernel := memory.Kernel{ID: "k1", Keywords: []string{"systems"}}

	sel := New()
	rnd := rand.New(rand.NewSource(6))
	require.NotPanics(t, func() {
		sel.Select(rnd, memories, kernel, nil, now, Options{Limit: 5})
	})
}

// S7: higher-rated memories (informed rating with high mu) tend to
// outrank lower-rated ones with otherwise identical signals, within a
// sample large enough to average out Thompson noise.
func TestSelectFavorsHigherRatedMemoryOnAverage(t *testing.T) {
	now := time.Now()
	memories := []memory.Chunk{
		chunk("high", []string{"systems"}, "raft consensus protocol term", 5, time.Hour, now),
		chunk("low", []string{"systems"}, "raft consensus protocol term", 5, time.Hour, now),
	}
	kernel := memory.Kernel{ID: "k1", Keywords: []string{"systems"}}
	ratings := map[string]memory.Rating{
		memory.Key("high", "k1"): {MemoryID: "high", KernelID: "k1", Mu: 5, Sigma: 0.2, Uses: 10},
		memory.Key("low", "k1"):  {MemoryID: "low", KernelID: "k1", Mu: -5, Sigma: 0.2, Uses: 10},
	}

	firstPlace := map[string]int{}
	sel := New()
	for seed := int64(0); seed < 20; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		got := sel.Select(rnd, memories, kernel, ratings, now, Options{Limit: 2})
		require.NotEmpty(t, got)
		firstPlace[got[0].MemoryID]++
	}
	require.Greater(t, firstPlace["high"], firstPlace["low"])
}

func TestSelectDefaultLimitIsApplied(t *testing.T) {
	now := time.Now()
	memories := make([]memory.Chunk, 0, 25)
	for i := 0; i < 25; i++ {
		memories = append(memories, chunk(string(rune('a'+i)), []string{"systems"}, "raft consensus protocol term quorum", 5, time.Hour, now))
	}
	kernel := memory.Kernel{ID: "k1", Keywords: []string{"systems"}}

	sel := New()
	rnd := rand.New(rand.NewSource(7))
	got := sel.Select(rnd, memories, kernel, map[string]memory.Rating{}, now, Options{})
	require.Len(t, got, DefaultLimit)
}
