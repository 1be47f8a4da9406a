package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeDropsPunctuationStopwordsAndShortTokens(t *testing.T) {
	got := Tokenize("The Quick, Fox-jumps! (over) a 2-legged dog.")
	require.Equal(t, []string{"quick", "fox", "jumps", "over", "legged", "dog"}, got)
}

func TestTokenizeEmpty(t *testing.T) {
	require.Empty(t, Tokenize(""))
	require.Empty(t, Tokenize("the a an of"))
}

// T3: tokenize(join(tokenize(x))) = tokenize(x) up to the stop-word filter
// applied once — re-tokenizing already-filtered text is a no-op.
func TestTokenizeIdempotent(t *testing.T) {
	x := "Distributed Consensus, Raft Algorithm! The quick brown fox."
	once := Tokenize(x)
	twice := Tokenize(strings.Join(once, " "))
	require.Equal(t, once, twice)
}

func TestShinglesBelowWindow(t *testing.T) {
	set := Shingles([]string{"a", "b"}, 3)
	require.Empty(t, set)
}

func TestShinglesSlidingWindow(t *testing.T) {
	set := Shingles([]string{"a", "b", "c", "d"}, 3)
	require.Len(t, set, 2)
	_, ok := set["a b c"]
	require.True(t, ok)
	_, ok = set["b c d"]
	require.True(t, ok)
}

func TestJaccardSimilarityEmptyBothZero(t *testing.T) {
	require.Equal(t, 0.0, JaccardSimilarity("a b", "c d"))
}

func TestJaccardSimilarityIdentical(t *testing.T) {
	sim := JaccardSimilarity("distributed consensus raft algorithm", "distributed consensus raft algorithm")
	require.Equal(t, 1.0, sim)
}

func TestJaccardSimilarityPartialOverlap(t *testing.T) {
	sim := JaccardSimilarity("distributed consensus raft protocol", "distributed consensus raft election")
	require.Greater(t, sim, 0.0)
	require.Less(t, sim, 1.0)
}
