// Package diversity implements the two diversity-preserving stages of
// selection: weighted sampling without replacement (oversampling a
// candidate pool biased toward composite score) and Maximal Marginal
// Relevance re-ranking (trading off score against redundancy with
// already-chosen content). Grounded on the teacher's indexer worker-pool
// style of small, injectable, side-effect-free helpers
// (internal/indexer/indexer.go) — the pack has no direct MMR precedent, so
// the algorithm itself follows spec.md §4.5.
package diversity

import (
	"math"

	"github.com/bad33ndj3/mcp-memory-engine/internal/rng"
	"github.com/bad33ndj3/mcp-memory-engine/internal/text"
)

// DefaultLambda is the MMR relevance/diversity trade-off: higher favors
// relevance, lower favors novelty.
const DefaultLambda = 0.7

// WeightedSampleIndices draws k distinct indices from weights without
// replacement. Negative or zero weights are treated as probability 0 but
// the item remains eligible: if every remaining item has non-positive
// weight, or a floating-point walk overshoots the cumulative sum, the
// fallback clamps to the last remaining index rather than erroring.
func WeightedSampleIndices(rnd rng.Source, weights []float64, k int) []int {
	n := len(weights)
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}

	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = i
	}

	result := make([]int, 0, k)
	for len(result) < k && len(remaining) > 0 {
		total := 0.0
		for _, idx := range remaining {
			if weights[idx] > 0 {
				total += weights[idx]
			}
		}

		pick := len(remaining) - 1
		if total > 0 {
			target := rnd.Float64() * total
			cum := 0.0
			for pi, idx := range remaining {
				if weights[idx] > 0 {
					cum += weights[idx]
				}
				if cum >= target {
					pick = pi
					break
				}
			}
		}

		result = append(result, remaining[pick])
		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}
	return result
}

// SelectByMMR greedily re-ranks candidates (already ordered by descending
// score) by Maximal Marginal Relevance: at each step it picks the
// remaining candidate maximizing lambda*score - (1-lambda)*maxSimilarity
// to the content already selected. Ties resolve to the earlier candidate
// in the input order, which reproduces score-descending order when
// lambda == 1.
func SelectByMMR[T any](candidates []T, score func(T) float64, content func(T) string, lambda float64, limit int) []T {
	n := len(candidates)
	if limit > n {
		limit = n
	}
	if limit <= 0 {
		return nil
	}

	used := make([]bool, n)
	selected := make([]T, 0, limit)
	selectedContent := make([]string, 0, limit)

	for len(selected) < limit {
		bestIdx := -1
		bestMMR := math.Inf(-1)

		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			c := content(candidates[i])
			maxSim := 0.0
			for _, sc := range selectedContent {
				if s := text.JaccardSimilarity(c, sc); s > maxSim {
					maxSim = s
				}
			}
			mmr := lambda*score(candidates[i]) - (1-lambda)*maxSim
			if mmr > bestMMR {
				bestMMR = mmr
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			break
		}
		used[bestIdx] = true
		selected = append(selected, candidates[bestIdx])
		selectedContent = append(selectedContent, content(candidates[bestIdx]))
	}

	return selected
}
