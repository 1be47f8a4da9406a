// Package rating implements the Bayesian (mean, variance) utility estimate
// per (memoryId, kernelId): Thompson-sampling exploration and a
// Kalman-style scalar posterior update. Grounded on the teacher's
// dependency-injection idiom (an explicit Tuning struct and an injected
// rng.Source instead of package-level state) rather than any single
// example file — the pack carries no reference Bayesian bandit, so this
// package follows spec.md §4.4 directly, styled the way the teacher
// structures a small, self-contained scoring component (search.BM25Config).
package rating

import (
	"math"
	"time"

	"github.com/bad33ndj3/mcp-memory-engine/internal/memory"
	"github.com/bad33ndj3/mcp-memory-engine/internal/rng"
)

// Tuning holds the Kalman-update constants and the sigma clamp bounds.
type Tuning struct {
	SigmaObs   float64 // observation noise std dev
	SigmaDrift float64 // additive drift term keeping sigma from collapsing
	SigmaMin   float64
	SigmaMax   float64
}

// DefaultTuning matches spec.md §4.4 exactly.
func DefaultTuning() Tuning {
	return Tuning{
		SigmaObs:   1.0,
		SigmaDrift: 0.01,
		SigmaMin:   0.1,
		SigmaMax:   2.0,
	}
}

// Initialize returns a fresh rating: mu=0, sigma=1.0, uses=0.
func Initialize(memoryID, kernelID string) memory.Rating {
	return memory.NewRating(memoryID, kernelID)
}

// boxMuller draws one standard normal sample via the Box–Muller transform,
// clamping both uniforms away from 0 to guard log(0).
func boxMuller(r rng.Source) float64 {
	u1 := r.Float64()
	if u1 < 1e-9 {
		u1 = 1e-9
	}
	u2 := r.Float64()
	if u2 < 1e-9 {
		u2 = 1e-9
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// ThompsonSample draws once from Normal(mu, sigma) using the shared RNG
// seam, returning mu + sigma*z for a single standard-normal z.
func ThompsonSample(r rng.Source, mu, sigma float64) float64 {
	return mu + sigma*boxMuller(r)
}

// MapToUnit affine-maps a Thompson sample onto [0,1] via clamp((z+1)/2,0,1),
// treating z as already in a roughly [-1,1] posterior-relative range.
func MapToUnit(z float64) float64 {
	v := (z + 1) / 2
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Update applies a Kalman-style scalar posterior update for a reward
// observation in {-1,0,1}, clamping sigma to [tuning.SigmaMin,
// tuning.SigmaMax] after adding the drift term (spec.md's fixed
// clamp-after-drift order).
func Update(r memory.Rating, reward int, now time.Time, tuning Tuning) memory.Rating {
	v := r.Sigma * r.Sigma
	obsVar := tuning.SigmaObs * tuning.SigmaObs

	k := v / (v + obsVar)
	muPrime := r.Mu + k*(float64(reward)-r.Mu)

	sigmaPrime := math.Sqrt(math.Max(1e-6, (1-k)*v)) + tuning.SigmaDrift
	sigmaPrime = clamp(sigmaPrime, tuning.SigmaMin, tuning.SigmaMax)

	return memory.Rating{
		MemoryID:      r.MemoryID,
		KernelID:      r.KernelID,
		Mu:            muPrime,
		Sigma:         sigmaPrime,
		Uses:          r.Uses + 1,
		LastUpdatedAt: now,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
