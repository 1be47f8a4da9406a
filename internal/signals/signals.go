// Package signals computes the scalar, [0,1]-valued signals fused into a
// candidate's composite utility: importance, tag relevance, recency, and
// centrality. Each function is a pure, total mapping — no signal here ever
// returns outside [0,1] (T1).
package signals

import (
	"math"
	"strings"
	"time"
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Importance maps a 1..10 raw importance rating to [0,1].
func Importance(raw int) float64 {
	return clamp01((float64(raw) - 1) / 9)
}

// TagRelevance is the fraction of kernel keywords that appear in the
// memory's tag set, case-insensitively. 0 if either side is empty.
func TagRelevance(tags, keywords []string) float64 {
	if len(tags) == 0 || len(keywords) == 0 {
		return 0
	}

	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagSet[strings.ToLower(t)] = struct{}{}
	}

	matched := 0
	for _, k := range keywords {
		if _, ok := tagSet[strings.ToLower(k)]; ok {
			matched++
		}
	}
	return clamp01(float64(matched) / float64(len(keywords)))
}

// recencyHalfLifeMs is the decay time constant: 14 days in milliseconds.
// Recency falls to 1/e (about 0.37) at this age, not to one half.
const recencyHalfLifeMs = 14 * 86_400_000.0

// Recency is an exponential decay exp(-age/14 days) over age in
// milliseconds, so a 14-day-old memory scores about 0.37. Future
// timestamps (negative age) are floored at age 0.
func Recency(timestamp, now time.Time) float64 {
	ageMs := float64(now.Sub(timestamp).Milliseconds())
	if ageMs < 0 {
		ageMs = 0
	}
	return clamp01(math.Exp(-ageMs / recencyHalfLifeMs))
}

// Spin returns 1.25 when the memory's tags overlap the kernel's keywords,
// else 1.0 — the multiplier Centrality applies to association degree.
func Spin(tags, keywords []string) float64 {
	if len(tags) == 0 || len(keywords) == 0 {
		return 1.0
	}
	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagSet[t] = struct{}{}
	}
	for _, k := range keywords {
		if _, ok := tagSet[k]; ok {
			return 1.25
		}
	}
	return 1.0
}

// Centrality maps an association-edge count to [0,1]: min(1, (degree*spin)/10).
func Centrality(associationCount int, spin float64) float64 {
	return clamp01(float64(associationCount) * spin / 10)
}
