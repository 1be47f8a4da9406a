// Package testutil provides shared test fixtures: a fixed Clock, a
// deterministic rng.Source, and small builders for memory.Chunk and
// memory.Kernel values. Grounded on the teacher's own testutil/mocks.go
// (MockClock's "fixed time, overridable, sane zero-value default"
// shape), generalized from document/cache mocks to this domain's data
// model.
package testutil

import (
	"time"

	"github.com/bad33ndj3/mcp-memory-engine/internal/memory"
)

// FixedClock returns a fixed time for reproducible tests.
type FixedClock struct {
	Time time.Time
}

// NewFixedClock returns a clock fixed at t. If t is zero, uses
// 2024-01-01 00:00:00 UTC.
func NewFixedClock(t time.Time) FixedClock {
	if t.IsZero() {
		t = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return FixedClock{Time: t}
}

func (c FixedClock) Now() time.Time { return c.Time }

// FixedSource is a deterministic rng.Source cycling through a fixed
// sequence of floats, for tests pinning Thompson-sample or
// weighted-sampling draws.
type FixedSource struct {
	Values []float64
	i      int
}

// NewFixedSource returns a source cycling through values. A single 0.5
// is used if values is empty.
func NewFixedSource(values ...float64) *FixedSource {
	if len(values) == 0 {
		values = []float64{0.5}
	}
	return &FixedSource{Values: values}
}

func (s *FixedSource) Float64() float64 {
	v := s.Values[s.i%len(s.Values)]
	s.i++
	return v
}

// SampleChunk builds a Chunk with sane defaults for tests that only care
// about a subset of fields.
func SampleChunk(id string, tags []string, content string, importance int, timestamp time.Time) memory.Chunk {
	return memory.Chunk{
		ID:         id,
		Content:    content,
		Tags:       tags,
		Importance: importance,
		Timestamp:  timestamp,
	}.Normalize()
}

// SampleKernel builds a Kernel with the given keywords and a generic
// name/prompt.
func SampleKernel(id string, keywords []string) memory.Kernel {
	return memory.Kernel{
		ID:       id,
		Name:     "test-kernel",
		Prompt:   "test prompt",
		Keywords: keywords,
	}
}
