// Package rng defines the single RNG seam shared by Thompson sampling,
// weighted oversampling, and anywhere else the selection core needs a
// random draw. Nothing in the core reads from an unseedable global
// source directly — callers inject a Source so selection runs are
// reproducible given a seed (spec.md §5, §9).
package rng

import "math/rand"

// Source is the minimal random interface the core depends on.
// *math/rand.Rand satisfies it without an adapter.
type Source interface {
	Float64() float64
}

// New returns a process-local PRNG seeded deterministically, suitable for
// tests that need to pin a sequence.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
