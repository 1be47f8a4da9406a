// Package selector orchestrates a single selection call: it pre-filters
// candidates by tag overlap, builds corpus statistics over the filtered
// set, fuses six per-candidate signals into a composite score, oversamples
// by weighted sampling, and re-ranks the oversampled pool by Maximal
// Marginal Relevance down to the caller's limit. Grounded on
// internal/indexer.Indexer's functional-Option orchestrator shape
// (Options configuring a struct of injected collaborators, a single public
// entry point doing the multi-stage pipeline) generalized from file
// indexing to memory selection.
package selector

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/bad33ndj3/mcp-memory-engine/internal/diversity"
	"github.com/bad33ndj3/mcp-memory-engine/internal/lexical"
	"github.com/bad33ndj3/mcp-memory-engine/internal/memory"
	"github.com/bad33ndj3/mcp-memory-engine/internal/rating"
	"github.com/bad33ndj3/mcp-memory-engine/internal/rng"
	"github.com/bad33ndj3/mcp-memory-engine/internal/signals"
	"github.com/bad33ndj3/mcp-memory-engine/internal/text"
)

// DefaultLimit is the number of memories returned when Options.Limit is
// left at its zero value.
const DefaultLimit = 20

// DefaultOversampleMultiplier controls how many candidates survive
// weighted sampling before MMR re-ranking: min(multiplier*limit, pool).
const DefaultOversampleMultiplier = 3

// Options configures a single Select call.
type Options struct {
	// Limit is the number of memories to return. Zero means DefaultLimit.
	Limit int
	// BypassTagFilter skips the tag pre-filter stage, scoring the entire
	// input set.
	BypassTagFilter bool
	// QueryTerms are extra terms appended to the kernel's query text,
	// e.g. the live conversation turn.
	QueryTerms []string
}

// Selector runs the selection pipeline with a fixed configuration of
// weights and algorithm tuning, injected once at construction.
type Selector struct {
	weights              Weights
	logger               *slog.Logger
	mmrLambda            float64
	oversampleMultiplier int
	bm25Tuning           lexical.Tuning
	ratingTuning         rating.Tuning
}

// Option configures a Selector.
type Option func(*Selector)

// WithWeights overrides the signal-fusion weights. Default is
// DefaultWeights().
func WithWeights(w Weights) Option {
	return func(s *Selector) { s.weights = w }
}

// WithLogger overrides the Selector's logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) { s.logger = logger }
}

// WithMMRLambda overrides the MMR relevance/diversity trade-off. Default
// is diversity.DefaultLambda.
func WithMMRLambda(lambda float64) Option {
	return func(s *Selector) { s.mmrLambda = lambda }
}

// WithOversampleMultiplier overrides the oversample pool size multiplier.
// Default is DefaultOversampleMultiplier.
func WithOversampleMultiplier(m int) Option {
	return func(s *Selector) { s.oversampleMultiplier = m }
}

// WithBM25Tuning overrides the BM25 k1/b constants. Default is
// lexical.DefaultTuning().
func WithBM25Tuning(t lexical.Tuning) Option {
	return func(s *Selector) { s.bm25Tuning = t }
}

// WithRatingTuning stores a Kalman-update tuning on the Selector. Select
// does not read it: a never-before-seen rating always starts from
// rating.Initialize's fixed prior (mu=0, sigma=1.0). Default is
// rating.DefaultTuning().
func WithRatingTuning(t rating.Tuning) Option {
	return func(s *Selector) { s.ratingTuning = t }
}

// New returns a Selector with default weights and tuning, as overridden
// by opts.
func New(opts ...Option) *Selector {
	s := &Selector{
		weights:              DefaultWeights(),
		logger:               slog.Default(),
		mmrLambda:            diversity.DefaultLambda,
		oversampleMultiplier: DefaultOversampleMultiplier,
		bm25Tuning:           lexical.DefaultTuning(),
		ratingTuning:         rating.DefaultTuning(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// scored is the working representation of one candidate as it moves
// through the pipeline: the source chunk, its composite score, and its
// per-signal breakdown.
type scored struct {
	chunk   memory.Chunk
	score   float64
	signals memory.Signals
}

// Select runs the full pipeline against memories for kernel, using rnd
// for Thompson sampling and weighted oversampling, ratings as the current
// posterior table (a missing entry is lazily initialized, never
// persisted by Select itself), and now as the recency reference point.
func (s *Selector) Select(rnd rng.Source, memories []memory.Chunk, kernel memory.Kernel, ratings map[string]memory.Rating, now time.Time, opts Options) []memory.Selected {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	keywords := kernel.NormalizedKeywords()
	filtered := s.prefilter(memories, keywords, opts.BypassTagFilter)

	docsTokens := make([][]string, len(filtered))
	for i, c := range filtered {
		docsTokens[i] = text.Tokenize(c.Content)
	}
	df := lexical.BuildDocumentFrequencies(docsTokens)
	avgDocLen := averageLength(docsTokens)
	n := len(filtered)

	queryText := kernel.QueryText(opts.QueryTerms)
	queryTokens := text.Tokenize(queryText)

	candidates := make([]scored, len(filtered))
	for i, c := range filtered {
		candidates[i] = s.score(c, docsTokens[i], queryTokens, df, n, avgDocLen, keywords, kernel, ratings, rnd, now)
	}

	oversampleCount := s.oversampleMultiplier * limit
	if oversampleCount > len(candidates) {
		oversampleCount = len(candidates)
	}

	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		weights[i] = c.score
	}
	sampledIdx := diversity.WeightedSampleIndices(rnd, weights, oversampleCount)

	pool := make([]scored, len(sampledIdx))
	for i, idx := range sampledIdx {
		pool[i] = candidates[idx]
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].score > pool[j].score })

	final := diversity.SelectByMMR(pool,
		func(c scored) float64 { return c.score },
		func(c scored) string { return c.chunk.Content },
		s.mmrLambda, limit)

	out := make([]memory.Selected, len(final))
	for i, c := range final {
		out[i] = memory.Selected{
			MemoryID: c.chunk.ID,
			Content:  c.chunk.Content,
			Tags:     c.chunk.Tags,
			Score:    c.score,
			Signals:  c.signals,
		}
	}
	return out
}

// prefilter keeps only memories whose tags overlap keywords. If bypass is
// set, or the kernel carries no keywords, the full input set is scored
// instead. Otherwise the filter is strict: no tag overlap means no
// candidates survive, and Select returns an empty result.
func (s *Selector) prefilter(memories []memory.Chunk, keywords []string, bypass bool) []memory.Chunk {
	if bypass || len(keywords) == 0 {
		return memories
	}

	out := make([]memory.Chunk, 0, len(memories))
	for _, c := range memories {
		if c.TagsOverlap(keywords) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Selector) score(
	c memory.Chunk,
	docTokens []string,
	queryTokens []string,
	df map[string]int,
	n int,
	avgDocLen float64,
	keywords []string,
	kernel memory.Kernel,
	ratings map[string]memory.Rating,
	rnd rng.Source,
	now time.Time,
) scored {
	key := memory.Key(c.ID, kernel.ID)
	r, ok := ratings[key]
	if !ok {
		r = rating.Initialize(c.ID, kernel.ID)
	}

	bm25Raw := lexical.Score(queryTokens, docTokens, df, n, avgDocLen, s.bm25Tuning)
	lexicalSignal := clamp01(math.Log1p(bm25Raw) / 5)

	importance := signals.Importance(c.Importance)
	tagRelevance := signals.TagRelevance(c.Tags, keywords)
	recency := signals.Recency(c.Timestamp, now)
	spin := signals.Spin(c.Tags, keywords)
	centrality := signals.Centrality(len(c.Associations), spin)

	thompsonRaw := rating.ThompsonSample(rnd, r.Mu, r.Sigma)
	thompson := rating.MapToUnit(thompsonRaw)

	sig := memory.Signals{
		Importance:   importance,
		TagRelevance: tagRelevance,
		Lexical:      lexicalSignal,
		Recency:      recency,
		Centrality:   centrality,
		Thompson:     thompson,
	}
	composite := s.weights.Composite(importance, tagRelevance, lexicalSignal, recency, centrality, thompson)

	return scored{chunk: c, score: composite, signals: sig}
}

func averageLength(docs [][]string) float64 {
	if len(docs) == 0 {
		return 0
	}
	total := 0
	for _, d := range docs {
		total += len(d)
	}
	return float64(total) / float64(len(docs))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
