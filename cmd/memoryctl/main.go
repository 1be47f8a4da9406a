// Command memoryctl is a local operator CLI over a memoryd profile
// directory's rating table and interaction log: it can apply feedback,
// dump current ratings, and print the resolved tuning config. Grounded
// on sqvect's cmd/sqvect/main.go: package-level cobra.Command vars wired
// together in init(), persistent flags for the shared store path,
// per-command local flags parsed via cmd.Flags().Get*.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bad33ndj3/mcp-memory-engine/internal/config"
	"github.com/bad33ndj3/mcp-memory-engine/internal/learning"
	"github.com/bad33ndj3/mcp-memory-engine/internal/storage"
)

var (
	storeDir   string
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "memoryctl",
	Short: "Operator CLI for the memory selection engine's profile directory",
	Long:  `A command-line interface for inspecting and adjusting a memoryd profile directory's ratings, interactions, and tuning.`,
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <memory-id> <kernel-id> <reward>",
	Short: "Apply a reward (-1, 0, or 1) to a (memory, kernel) rating",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		memoryID, kernelID := args[0], args[1]

		var reward int
		if _, err := fmt.Sscanf(args[2], "%d", &reward); err != nil {
			return fmt.Errorf("invalid reward %q: %w", args[2], err)
		}
		if reward < -1 || reward > 1 {
			return fmt.Errorf("reward must be -1, 0, or 1")
		}

		contextID, _ := cmd.Flags().GetString("context-id")

		loop, err := openLoop()
		if err != nil {
			return err
		}

		updated, err := loop.ApplyFeedback(context.Background(), memoryID, kernelID, contextID, reward)
		if err != nil {
			return fmt.Errorf("apply feedback: %w", err)
		}

		if outputJSON {
			data, _ := json.MarshalIndent(updated, "", "  ")
			fmt.Println(string(data))
		} else {
			fmt.Printf("rating updated: memory=%s kernel=%s mu=%.4f sigma=%.4f uses=%d\n",
				updated.MemoryID, updated.KernelID, updated.Mu, updated.Sigma, updated.Uses)
		}
		return nil
	},
}

var ratingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "List every rating in the profile's rating table",
	RunE: func(cmd *cobra.Command, args []string) error {
		loop, err := openLoop()
		if err != nil {
			return err
		}

		ratings, err := loop.LoadRatings(context.Background())
		if err != nil {
			return fmt.Errorf("load ratings: %w", err)
		}

		keys := make([]string, 0, len(ratings))
		for k := range ratings {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		if outputJSON {
			ordered := make([]interface{}, 0, len(keys))
			for _, k := range keys {
				ordered = append(ordered, ratings[k])
			}
			data, _ := json.MarshalIndent(ordered, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Ratings (%d):\n", len(ratings))
		for _, k := range keys {
			r := ratings[k]
			fmt.Printf("  %s: mu=%.4f sigma=%.4f uses=%d\n", k, r.Mu, r.Sigma, r.Uses)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved tuning configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		tuning, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		data, err := json.MarshalIndent(tuning, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

func openLoop() (*learning.Loop, error) {
	if storeDir == "" {
		return nil, fmt.Errorf("store directory not specified")
	}
	store, err := storage.NewFileStore(storeDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return learning.New(store), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&storeDir, "store-dir", "d", ".memoryd", "memoryd profile directory")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON")

	feedbackCmd.Flags().String("context-id", "", "identifier for the conversation/turn this feedback came from")
	configCmd.Flags().String("config", "", "path to selection.yaml (defaults to the usual search order)")

	rootCmd.AddCommand(feedbackCmd, ratingsCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
