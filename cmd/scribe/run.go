package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/scribe/internal/app"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/pipeline"
)

var (
	runMode       string
	runResearch   bool
	runOutputJSON bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the content pipeline once",
	Long: `Run one pipeline pass: ingest new KB documents, collect items from the
configured sources, write an article and publish it.

Examples:
  # Run with the configured mode
  scribe run

  # Write from the knowledge base only, with deep research
  scribe run --mode kb_only --research`,
	RunE: runPipeline,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed KB documents not yet in the vector store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			n := a.Pipeline.IngestKB(ctx)
			fmt.Printf("Embedded %d document(s), %d chunk(s) in store\n", n, a.VectorStore.Count())
			return nil
		})
	},
}

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", "", "Override pipeline mode (both, kb_only, triggers_only)")
	runCmd.Flags().BoolVar(&runResearch, "research", false, "Enable deep research for this run")
	runCmd.Flags().BoolVar(&runOutputJSON, "json", false, "Output the run result as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	switch runMode {
	case "":
	case pipeline.ModeBoth, pipeline.ModeKBOnly, pipeline.ModeTriggersOnly:
		config.Pipeline.Mode = runMode
	default:
		return fmt.Errorf("invalid mode %q", runMode)
	}
	if runResearch {
		config.Pipeline.DeepResearch = true
	}

	return withApp(func(ctx context.Context, a *app.App) error {
		result := a.Pipeline.Run(ctx)
		if err := printRunResult(result); err != nil {
			return err
		}
		if result.Status == models.RunStatusAborted {
			return fmt.Errorf("run aborted at %s", result.Stage)
		}
		return nil
	})
}

func printRunResult(result models.RunResult) error {
	if runOutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	switch result.Status {
	case models.RunStatusPublished:
		fmt.Printf("Published %q (post %s) in %s\n", result.Title, result.PostID, result.Duration.Round(time.Millisecond))
	case models.RunStatusSkipped:
		fmt.Printf("Skipped: %s\n", result.Message)
	default:
		fmt.Printf("Aborted at %s: %s\n", result.Stage, result.Message)
	}
	return nil
}
