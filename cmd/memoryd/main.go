// Command memoryd runs the cognitive-memory selection engine as an MCP
// server: memory_put registers candidates, memory_select runs the
// fusion/diversity pipeline, memory_feedback and memory_record_usage
// feed the learning loop. Wiring follows the teacher's own main.go:
// flag-parsed options, a file-based debug logger, dependency
// construction in dependency order, tool registration, then
// server.Run(ctx, &mcp.StdioTransport{}).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bad33ndj3/mcp-memory-engine/internal/config"
	"github.com/bad33ndj3/mcp-memory-engine/internal/learning"
	"github.com/bad33ndj3/mcp-memory-engine/internal/lexical"
	mcphandlers "github.com/bad33ndj3/mcp-memory-engine/internal/mcp"
	"github.com/bad33ndj3/mcp-memory-engine/internal/rating"
	"github.com/bad33ndj3/mcp-memory-engine/internal/rng"
	"github.com/bad33ndj3/mcp-memory-engine/internal/selector"
	"github.com/bad33ndj3/mcp-memory-engine/internal/storage"
)

const (
	serverName      = "mcp-memory-engine"
	serverVersion   = "v0.1.0"
	defaultStoreDir = ".memoryd"
)

// setupLogger creates an slog logger that writes to a debug file in the
// store directory. File format: debug-YYYY-MM-DD.txt
func setupLogger(storeDir string) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create store dir: %w", err)
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(storeDir, fmt.Sprintf("debug-%s.txt", date))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	handler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), file, nil
}

func main() {
	// IMPORTANT: MCP stdio servers must log to stderr only (for standard log package).
	log.SetOutput(os.Stderr)

	storeDir := flag.String("store-dir", defaultStoreDir, "Directory for persisted ratings/interactions and log files")
	configPath := flag.String("config", "", "Path to selection.yaml tuning file (optional)")
	metricsAddr := flag.String("metrics-addr", "", "Address to serve /metrics on, e.g. :9090 (disabled if empty)")
	flag.Parse()

	logger, logFile, err := setupLogger(*storeDir)
	if err != nil {
		log.Printf("Warning: failed to setup file logger: %v", err)
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	} else {
		defer logFile.Close()
	}

	logger.Info("server starting", "name", serverName, "version", serverVersion, "store_dir", *storeDir)

	tuning, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load tuning config", "error", err)
		log.Fatalf("failed to load tuning config: %v", err)
	}

	store, err := storage.NewFileStore(*storeDir)
	if err != nil {
		logger.Error("failed to create store", "error", err)
		log.Fatalf("failed to create store: %v", err)
	}

	ratingTuning := rating.Tuning{
		SigmaObs:   tuning.Kalman.SigmaObs,
		SigmaDrift: tuning.Kalman.SigmaDrift,
		SigmaMin:   tuning.Kalman.SigmaMin,
		SigmaMax:   tuning.Kalman.SigmaMax,
	}
	loop := learning.New(store, learning.WithTuning(ratingTuning), learning.WithLogger(logger))

	sel := selector.New(
		selector.WithWeights(selector.Weights{
			Importance:   tuning.Weights.Importance,
			TagRelevance: tuning.Weights.TagRelevance,
			Lexical:      tuning.Weights.Lexical,
			Recency:      tuning.Weights.Recency,
			Centrality:   tuning.Weights.Centrality,
			Thompson:     tuning.Weights.Thompson,
		}),
		selector.WithMMRLambda(tuning.MMRLambda),
		selector.WithOversampleMultiplier(tuning.OversampleMultiplier),
		selector.WithBM25Tuning(lexical.Tuning{K1: tuning.BM25.K1, B: tuning.BM25.B}),
		selector.WithRatingTuning(ratingTuning),
		selector.WithLogger(logger),
	)

	registry := mcphandlers.NewRegistry()
	rngFactory := func() rng.Source { return rand.New(rand.NewSource(time.Now().UnixNano())) }
	handlers := mcphandlers.NewHandlers(registry, sel, loop, learning.SystemClock{}, rngFactory, logger)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		logger.Info("metrics server listening", "addr", *metricsAddr)
	}

	if err := config.Watch(*configPath, logger, func(t config.Tuning) {
		logger.Info("tuning config reloaded", "mmr_lambda", t.MMRLambda)
	}); err != nil {
		logger.Warn("config hot-reload disabled", "error", err)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, &mcp.ServerOptions{
		Instructions: "Use memory_put to register candidate memories, memory_select to retrieve the best ones for a kernel, and memory_feedback/memory_record_usage to close the learning loop.",
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_put",
		Description: "Register or update a candidate memory available for selection.",
	}, handlers.MemoryPut)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_select",
		Description: "Select the best memories for a kernel's current task, fusing importance, tag relevance, lexical match, recency, centrality, and learned rating.",
	}, handlers.MemorySelect)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_feedback",
		Description: "Apply a reward (-1, 0, or 1) to a (memory, kernel) rating, updating its learned posterior.",
	}, handlers.MemoryFeedback)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_record_usage",
		Description: "Record that a memory was surfaced to a kernel, without an explicit reward.",
	}, handlers.MemoryRecordUsage)

	logger.Info("server ready, waiting for requests")

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		logger.Error("server error", "error", err)
		log.Fatal(err)
	}
}
