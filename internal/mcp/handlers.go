// Package mcp exposes the selection engine over the Model Context
// Protocol: a small in-process registry for candidate memories, and
// handlers for putting memories in, running a selection, and recording
// feedback. Grounded on the teacher's own internal/mcp/handlers.go: a
// Handlers struct wrapping the domain collaborator plus a logger, one
// method per tool, args/result structs with jsonschema_description tags,
// structured log lines bracketing each call.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bad33ndj3/mcp-memory-engine/internal/learning"
	"github.com/bad33ndj3/mcp-memory-engine/internal/memory"
	"github.com/bad33ndj3/mcp-memory-engine/internal/rng"
	"github.com/bad33ndj3/mcp-memory-engine/internal/selector"
)

// Registry holds the candidate memories a selection call draws from. It
// is process-local and unbounded; a deployment with a real memory store
// behind it can satisfy the same shape without changing the handlers.
type Registry struct {
	mu     sync.RWMutex
	chunks map[string]memory.Chunk
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{chunks: make(map[string]memory.Chunk)}
}

// Put stores or overwrites a chunk.
func (r *Registry) Put(c memory.Chunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks[c.ID] = c
}

// All returns every registered chunk, in no particular order.
func (r *Registry) All() []memory.Chunk {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]memory.Chunk, 0, len(r.chunks))
	for _, c := range r.chunks {
		out = append(out, c)
	}
	return out
}

// PutArgs defines the arguments for the memory_put tool.
type PutArgs struct {
	ID           string   `json:"id" jsonschema_description:"Unique identifier for this memory"`
	Content      string   `json:"content" jsonschema_description:"The memory's text content"`
	Tags         []string `json:"tags,omitempty" jsonschema_description:"Tags used for pre-filtering and relevance signals"`
	Importance   int      `json:"importance,omitempty" jsonschema_description:"Raw importance rating, 1-10 (default 5)"`
	Associations int      `json:"associations,omitempty" jsonschema_description:"Number of associated memories (used for centrality)"`
}

// SelectArgs defines the arguments for the memory_select tool.
type SelectArgs struct {
	KernelID   string   `json:"kernel_id" jsonschema_description:"Identifier for the requesting kernel/thread"`
	Name       string   `json:"name,omitempty" jsonschema_description:"Short name for the kernel's current task"`
	Prompt     string   `json:"prompt,omitempty" jsonschema_description:"The kernel's current prompt text, scored lexically"`
	Keywords   []string `json:"keywords,omitempty" jsonschema_description:"Keywords used for tag pre-filtering and alignment signals"`
	QueryTerms []string `json:"query_terms,omitempty" jsonschema_description:"Extra terms appended to the query text"`
	Limit      int      `json:"limit,omitempty" jsonschema_description:"Max memories to return (default 20)"`
	Bypass     bool     `json:"bypass_tag_filter,omitempty" jsonschema_description:"Score every registered memory, skipping the tag pre-filter"`
}

// FeedbackArgs defines the arguments for the memory_feedback tool.
type FeedbackArgs struct {
	MemoryID  string `json:"memory_id" jsonschema_description:"The memory this feedback is about"`
	KernelID  string `json:"kernel_id" jsonschema_description:"The kernel giving feedback"`
	ContextID string `json:"context_id,omitempty" jsonschema_description:"Identifier for the conversation/turn this feedback came from"`
	Reward    int    `json:"reward" jsonschema_description:"Feedback signal: -1, 0, or 1"`
}

// RecordUsageArgs defines the arguments for the memory_record_usage tool.
type RecordUsageArgs struct {
	MemoryID  string `json:"memory_id" jsonschema_description:"The memory that was surfaced"`
	KernelID  string `json:"kernel_id" jsonschema_description:"The kernel it was surfaced to"`
	ContextID string `json:"context_id,omitempty" jsonschema_description:"Identifier for the conversation/turn"`
}

// Handlers wraps the registry, selector, and learning loop and provides
// MCP tool handlers for them.
type Handlers struct {
	registry *Registry
	selector *selector.Selector
	loop     *learning.Loop
	clock    learning.Clock
	rng      func() rng.Source
	logger   *slog.Logger
}

// NewHandlers creates handlers wiring together the given registry,
// selector, and learning loop. rngFactory produces a fresh RNG source
// per selection call; production callers pass a time-seeded source,
// tests pass a fixed one.
func NewHandlers(reg *Registry, sel *selector.Selector, loop *learning.Loop, clock learning.Clock, rngFactory func() rng.Source, logger *slog.Logger) *Handlers {
	return &Handlers{registry: reg, selector: sel, loop: loop, clock: clock, rng: rngFactory, logger: logger}
}

// MemoryPut handles the memory_put tool call: registers or updates a
// candidate memory.
func (h *Handlers) MemoryPut(ctx context.Context, req *mcp.CallToolRequest, args PutArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.ID) == "" {
		return nil, nil, fmt.Errorf("id is required")
	}
	if strings.TrimSpace(args.Content) == "" {
		return nil, nil, fmt.Errorf("content is required")
	}

	importance := args.Importance
	if importance == 0 {
		importance = 5
	}

	associations := make([]string, args.Associations)
	c := memory.Chunk{
		ID:           args.ID,
		Content:      args.Content,
		Tags:         args.Tags,
		Importance:   importance,
		Timestamp:    h.clock.Now(),
		Associations: associations,
	}.Normalize()

	h.registry.Put(c)
	h.logger.Info("memory_put: stored", "id", c.ID, "tags", c.Tags)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("stored memory %s", c.ID)}},
	}, nil, nil
}

// MemorySelect handles the memory_select tool call: runs the selection
// pipeline over every registered memory and records a usage impression
// for each result returned.
func (h *Handlers) MemorySelect(ctx context.Context, req *mcp.CallToolRequest, args SelectArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.KernelID) == "" {
		return nil, nil, fmt.Errorf("kernel_id is required")
	}

	kernel := memory.Kernel{
		ID:       args.KernelID,
		Name:     args.Name,
		Prompt:   args.Prompt,
		Keywords: args.Keywords,
	}

	ratings, err := h.loop.LoadRatings(ctx)
	if err != nil {
		h.logger.Error("memory_select: load ratings failed", "error", err)
		return nil, nil, err
	}

	memories := h.registry.All()
	now := h.clock.Now()
	results := h.selector.Select(h.rng(), memories, kernel, ratings, now, selector.Options{
		Limit:           args.Limit,
		BypassTagFilter: args.Bypass,
		QueryTerms:      args.QueryTerms,
	})

	for _, r := range results {
		if err := h.loop.RecordUsage(ctx, r.MemoryID, kernel.ID, ""); err != nil {
			h.logger.Warn("memory_select: record usage failed", "memory_id", r.MemoryID, "error", err)
		}
	}

	h.logger.Info("memory_select: success", "kernel_id", kernel.ID, "candidates", len(memories), "returned", len(results))

	body, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal results: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}, results, nil
}

// MemoryFeedback handles the memory_feedback tool call: applies a reward
// to the (memory, kernel) rating.
func (h *Handlers) MemoryFeedback(ctx context.Context, req *mcp.CallToolRequest, args FeedbackArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.MemoryID) == "" || strings.TrimSpace(args.KernelID) == "" {
		return nil, nil, fmt.Errorf("memory_id and kernel_id are required")
	}
	if args.Reward < -1 || args.Reward > 1 {
		return nil, nil, fmt.Errorf("reward must be -1, 0, or 1")
	}

	updated, err := h.loop.ApplyFeedback(ctx, args.MemoryID, args.KernelID, args.ContextID, args.Reward)
	if err != nil {
		h.logger.Error("memory_feedback: failed", "memory_id", args.MemoryID, "error", err)
		return nil, nil, err
	}

	h.logger.Info("memory_feedback: success", "memory_id", args.MemoryID, "kernel_id", args.KernelID, "reward", args.Reward, "mu", updated.Mu, "sigma", updated.Sigma)

	msg := fmt.Sprintf("rating updated: mu=%.4f sigma=%.4f uses=%d", updated.Mu, updated.Sigma, updated.Uses)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}, nil, nil
}

// MemoryRecordUsage handles the memory_record_usage tool call: records
// that a memory was surfaced, which the learning loop applies to the
// rating as a reward of +1.
func (h *Handlers) MemoryRecordUsage(ctx context.Context, req *mcp.CallToolRequest, args RecordUsageArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.MemoryID) == "" || strings.TrimSpace(args.KernelID) == "" {
		return nil, nil, fmt.Errorf("memory_id and kernel_id are required")
	}

	if err := h.loop.RecordUsage(ctx, args.MemoryID, args.KernelID, args.ContextID); err != nil {
		h.logger.Error("memory_record_usage: failed", "memory_id", args.MemoryID, "error", err)
		return nil, nil, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "usage recorded"}},
	}, nil, nil
}
