package diversity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWeightedSampleIndicesReturnsDistinctIndices(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	weights := []float64{5, 1, 1, 1, 1}
	got := WeightedSampleIndices(rnd, weights, 3)

	require.Len(t, got, 3)
	seen := map[int]bool{}
	for _, idx := range got {
		require.False(t, seen[idx], "index %d sampled twice", idx)
		seen[idx] = true
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, len(weights))
	}
}

func TestWeightedSampleIndicesClampsKToLength(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	got := WeightedSampleIndices(rnd, []float64{1, 1}, 10)
	require.Len(t, got, 2)
}

func TestWeightedSampleIndicesZeroKReturnsNil(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	require.Nil(t, WeightedSampleIndices(rnd, []float64{1, 2}, 0))
}

// All non-positive weights: every draw falls back to the last remaining
// index instead of failing.
func TestWeightedSampleIndicesAllNonPositiveWeightsUsesFallback(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	got := WeightedSampleIndices(rnd, []float64{0, -1, 0}, 3)
	require.Len(t, got, 3)
	seen := map[int]bool{}
	for _, idx := range got {
		require.False(t, seen[idx])
		seen[idx] = true
	}
}

type item struct {
	id      string
	score   float64
	content string
}

func TestSelectByMMRReproducesScoreOrderWhenLambdaOne(t *testing.T) {
	candidates := []item{
		{"a", 0.9, "distributed consensus raft protocol leader election"},
		{"b", 0.8, "distributed consensus raft protocol leader election"},
		{"c", 0.5, "cooking recipes onion soup"},
	}
	got := SelectByMMR(candidates,
		func(i item) float64 { return i.score },
		func(i item) string { return i.content },
		1.0, 3)

	require.Len(t, got, 3)
	require.Equal(t, "a", got[0].id)
	require.Equal(t, "b", got[1].id)
	require.Equal(t, "c", got[2].id)
}

func TestSelectByMMRPenalizesRedundantContent(t *testing.T) {
	candidates := []item{
		{"a", 0.9, "distributed consensus raft protocol leader election term"},
		{"b", 0.75, "distributed consensus raft protocol leader election quorum"},
		{"c", 0.6, "cooking recipes onion soup garlic"},
	}
	got := SelectByMMR(candidates,
		func(i item) float64 { return i.score },
		func(i item) string { return i.content },
		DefaultLambda, 2)

	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].id)
	// "c" is further from "a" in content than the near-duplicate "b", so
	// at lambda=0.7 it can win the second slot despite the lower score.
	require.Equal(t, "c", got[1].id)
}

func TestSelectByMMRNeverDuplicatesAndRespectsLimit(t *testing.T) {
	candidates := []item{
		{"a", 0.9, "alpha"},
		{"b", 0.8, "beta"},
	}
	got := SelectByMMR(candidates,
		func(i item) float64 { return i.score },
		func(i item) string { return i.content },
		DefaultLambda, 10)
	require.Len(t, got, 2)
}
