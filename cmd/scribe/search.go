package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ternarybob/scribe/internal/app"
)

var (
	searchLimit int
	searchJSON  bool
	topicsLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withApp(func(ctx context.Context, a *app.App) error {
			results := a.VectorStore.Search(ctx, query, searchLimit)
			if searchJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			if len(results) == 0 {
				fmt.Println("No matching chunks")
				return nil
			}
			for i, r := range results {
				fmt.Printf("%d. [%.3f] %s\n", i+1, r.Score, r.Source)
				fmt.Printf("   %s\n\n", truncate(strings.Join(strings.Fields(r.Text), " "), 200))
			}
			return nil
		})
	},
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Show what the knowledge base covers and recently used topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			fmt.Printf("Chunks: %d\n", a.VectorStore.Count())
			fmt.Printf("Summary: %s\n", a.VectorStore.BriefSummary())

			sources := a.VectorStore.Sources()
			fmt.Printf("\nSources (%d):\n", len(sources))
			for _, s := range sources {
				fmt.Printf("  - %s\n", s)
			}

			previews := a.VectorStore.RecentTopics(topicsLimit)
			fmt.Printf("\nRecent chunks:\n")
			for _, p := range previews {
				fmt.Printf("  - %s (%s)\n", p.Title, p.Source)
			}

			history, err := a.StorageManager.TopicStorage().LoadTopics(ctx)
			if err != nil {
				return err
			}
			recent := history.Recent()
			fmt.Printf("\nUsed topics (%d):\n", len(recent))
			for i := len(recent) - 1; i >= 0; i-- {
				fmt.Printf("  - %s\n", recent[i])
			}
			return nil
		})
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "Maximum number of chunks")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
	topicsCmd.Flags().IntVarP(&topicsLimit, "limit", "n", 10, "Number of recent chunks to preview")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(topicsCmd)
}
