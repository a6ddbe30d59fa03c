package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ternarybob/scribe/internal/app"
	"github.com/ternarybob/scribe/internal/models"
)

var (
	srcType     string
	srcMatch    string
	srcNegative string
	srcSelector string
	srcFetch    bool
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage content sources",
	Long: `Manage the RSS feeds, web pages and web search queries the pipeline collects
candidate items from.

Examples:
  # Add a feed, keeping only items that mention golang and dropping sponsored ones
  scribe sources add https://go.dev/blog/feed.atom --match golang --negative sponsored

  # Add a web search source (comma-separated queries)
  scribe sources add "go release notes, gopher conference" --type web_search

  # Preview what a source would yield
  scribe sources list --fetch`,
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add <url-or-queries>",
	Short: "Add a content source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			source := &models.SourceConfig{
				Type:             models.SourceKind(srcType),
				URL:              args[0],
				MatchKeywords:    srcMatch,
				NegativeKeywords: srcNegative,
				Selector:         srcSelector,
			}
			if err := a.Sources.CreateSource(ctx, source); err != nil {
				return err
			}
			fmt.Printf("Added %s source %s\n", source.Type, source.ID)
			return nil
		})
	},
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List content sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			sources, err := a.Sources.ListSources(ctx)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				fmt.Println("No sources configured")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tURL\tMATCH\tNEGATIVE")
			for _, s := range sources {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Type, truncate(s.URL, 60), s.MatchKeywords, s.NegativeKeywords)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if !srcFetch {
				return nil
			}
			for _, s := range sources {
				adapter, err := a.SourceFactory.Build(s)
				if err != nil {
					fmt.Printf("\n%s: %v\n", s.ID, err)
					continue
				}
				items, err := adapter.Fetch(ctx)
				if err != nil {
					fmt.Printf("\n%s: %v\n", s.ID, err)
					continue
				}
				fmt.Printf("\n%s: %d item(s)\n", s.ID, len(items))
				for _, item := range items {
					fmt.Printf("  - %s\n", truncate(item.Title, 100))
				}
			}
			return nil
		})
	},
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a content source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.Sources.DeleteSource(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed %s\n", args[0])
			return nil
		})
	},
}

func init() {
	sourcesAddCmd.Flags().StringVar(&srcType, "type", string(models.SourceKindRSS), "Source type (rss, web, web_search)")
	sourcesAddCmd.Flags().StringVar(&srcMatch, "match", "", "Comma-separated keywords an item must contain")
	sourcesAddCmd.Flags().StringVar(&srcNegative, "negative", "", "Comma-separated keywords that exclude an item")
	sourcesAddCmd.Flags().StringVar(&srcSelector, "selector", "", "CSS selector for links on web sources")
	sourcesListCmd.Flags().BoolVar(&srcFetch, "fetch", false, "Fetch every source and list the items it yields")

	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesRemoveCmd)
	rootCmd.AddCommand(sourcesCmd)
}

// truncate shortens s to max runes for table output
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
