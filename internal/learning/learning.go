// Package learning wires feedback events into rating updates: it loads
// and saves the rating table and interaction log through an injected
// storage.Store, applies a reward to the relevant (memory, kernel) rating,
// and applies a bare usage event as a reward of +1. Grounded on
// internal/indexer's Option-pattern orchestrator (functional options over
// a struct holding injected collaborators) generalized from file indexing
// to feedback processing.
package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bad33ndj3/mcp-memory-engine/internal/memory"
	"github.com/bad33ndj3/mcp-memory-engine/internal/rating"
	"github.com/bad33ndj3/mcp-memory-engine/internal/storage"
)

// RatingsKey and InteractionsKey are the storage.Store setting keys the
// loop persists under.
const (
	RatingsKey      = "memory.ratings"
	InteractionsKey = "memory.interactions"
)

// MaxInteractions bounds the interaction log to its most recent entries.
const MaxInteractions = 1000

// Clock abstracts wall-clock time so tests can pin Interaction and Rating
// timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts Interaction.ID generation so tests can pin IDs.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator is the production IDGenerator.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// Loop persists ratings and interactions through a storage.Store and
// applies feedback to the Bayesian rating estimate.
type Loop struct {
	store  storage.Store
	clock  Clock
	ids    IDGenerator
	tuning rating.Tuning
	logger *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock overrides the Loop's Clock. Default is SystemClock.
func WithClock(c Clock) Option {
	return func(l *Loop) { l.clock = c }
}

// WithIDGenerator overrides the Loop's IDGenerator. Default is
// UUIDGenerator.
func WithIDGenerator(g IDGenerator) Option {
	return func(l *Loop) { l.ids = g }
}

// WithTuning overrides the Kalman-update tuning. Default is
// rating.DefaultTuning().
func WithTuning(t rating.Tuning) Option {
	return func(l *Loop) { l.tuning = t }
}

// WithLogger overrides the Loop's logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// New returns a Loop persisting through store.
func New(store storage.Store, opts ...Option) *Loop {
	l := &Loop{
		store:  store,
		clock:  SystemClock{},
		ids:    UUIDGenerator{},
		tuning: rating.DefaultTuning(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ratingRow is the on-disk JSON-array representation of one rating-table
// entry. The table is serialized as an array, not a map, so field order
// is stable across writes; the compound key is reconstructed on load via
// memory.Key.
type ratingRow struct {
	MemoryID      string    `json:"memory_id"`
	KernelID      string    `json:"kernel_id"`
	Mu            float64   `json:"mu"`
	Sigma         float64   `json:"sigma"`
	Uses          int       `json:"uses"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// LoadRatings reads the rating table from storage, keyed by
// memory.Key(memoryID, kernelID). A missing key yields an empty table;
// corrupt JSON is treated as an empty table with a logged warning, not a
// hard failure —
// learning resumes from an uninformed prior rather than blocking
// selection.
func (l *Loop) LoadRatings(ctx context.Context) (map[string]memory.Rating, error) {
	raw, err := l.store.GetSetting(ctx, RatingsKey)
	if err != nil {
		if err == storage.ErrNotFound {
			return map[string]memory.Rating{}, nil
		}
		return nil, fmt.Errorf("load ratings: %w", err)
	}

	var rows []ratingRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		l.logger.Warn("rating table corrupt, resetting", "error", err)
		return map[string]memory.Rating{}, nil
	}

	out := make(map[string]memory.Rating, len(rows))
	for _, r := range rows {
		out[memory.Key(r.MemoryID, r.KernelID)] = memory.Rating{
			MemoryID:      r.MemoryID,
			KernelID:      r.KernelID,
			Mu:            r.Mu,
			Sigma:         r.Sigma,
			Uses:          r.Uses,
			LastUpdatedAt: r.LastUpdatedAt,
		}
	}
	return out, nil
}

// SaveRatings serializes the rating table as a JSON array, ordered by key
// for a stable diff, and persists it.
func (l *Loop) SaveRatings(ctx context.Context, ratings map[string]memory.Rating) error {
	keys := make([]string, 0, len(ratings))
	for k := range ratings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]ratingRow, 0, len(ratings))
	for _, k := range keys {
		r := ratings[k]
		rows = append(rows, ratingRow{
			MemoryID:      r.MemoryID,
			KernelID:      r.KernelID,
			Mu:            r.Mu,
			Sigma:         r.Sigma,
			Uses:          r.Uses,
			LastUpdatedAt: r.LastUpdatedAt,
		})
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal ratings: %w", err)
	}
	if err := l.store.SaveSetting(ctx, RatingsKey, data); err != nil {
		return fmt.Errorf("save ratings: %w", err)
	}
	return nil
}

// LoadInteractions reads the interaction log from storage. A missing key
// yields an empty log; corrupt JSON is treated as an empty log with a
// logged warning.
func (l *Loop) LoadInteractions(ctx context.Context) ([]memory.Interaction, error) {
	raw, err := l.store.GetSetting(ctx, InteractionsKey)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("load interactions: %w", err)
	}

	var interactions []memory.Interaction
	if err := json.Unmarshal(raw, &interactions); err != nil {
		l.logger.Warn("interaction log corrupt, resetting", "error", err)
		return nil, nil
	}
	return interactions, nil
}

func (l *Loop) saveInteractions(ctx context.Context, interactions []memory.Interaction) error {
	if len(interactions) > MaxInteractions {
		interactions = interactions[len(interactions)-MaxInteractions:]
	}
	data, err := json.Marshal(interactions)
	if err != nil {
		return fmt.Errorf("marshal interactions: %w", err)
	}
	if err := l.store.SaveSetting(ctx, InteractionsKey, data); err != nil {
		return fmt.Errorf("save interactions: %w", err)
	}
	return nil
}

// ApplyFeedback records a reward interaction for (memoryID, kernelID) and
// updates the corresponding rating via a Kalman-style posterior update.
// reward must be one of -1, 0, 1.
func (l *Loop) ApplyFeedback(ctx context.Context, memoryID, kernelID, contextID string, reward int) (memory.Rating, error) {
	ratings, err := l.LoadRatings(ctx)
	if err != nil {
		return memory.Rating{}, err
	}

	key := memory.Key(memoryID, kernelID)
	current, ok := ratings[key]
	if !ok {
		current = rating.Initialize(memoryID, kernelID)
	}

	now := l.clock.Now()
	updated := rating.Update(current, reward, now, l.tuning)
	ratings[key] = updated

	if err := l.SaveRatings(ctx, ratings); err != nil {
		return memory.Rating{}, err
	}

	interactions, err := l.LoadInteractions(ctx)
	if err != nil {
		return memory.Rating{}, err
	}
	interactions = append(interactions, memory.Interaction{
		ID:        l.ids.NewID(),
		MemoryID:  memoryID,
		KernelID:  kernelID,
		ContextID: contextID,
		Reward:    reward,
		Timestamp: now,
	})
	if err := l.saveInteractions(ctx, interactions); err != nil {
		return memory.Rating{}, err
	}

	return updated, nil
}

// RecordUsage records that a memory was surfaced to a kernel. It is
// equivalent to ApplyFeedback with reward=+1: surfacing a memory is itself
// a mild positive signal, bumping the rating's uses and nudging mu upward
// via the same Kalman update.
func (l *Loop) RecordUsage(ctx context.Context, memoryID, kernelID, contextID string) error {
	_, err := l.ApplyFeedback(ctx, memoryID, kernelID, contextID, 1)
	return err
}
