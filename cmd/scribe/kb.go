package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ternarybob/scribe/internal/app"
)

var kbIngest bool

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage knowledge base documents",
	Long: `Manage the documents the vector store is built from. Supported formats are
spreadsheets (.xlsx, .csv, .tsv), PDF, Word (.docx) and plain text or Markdown.

Examples:
  # Add documents and embed them right away
  scribe kb add handbook.pdf pricing.xlsx --ingest

  # List documents and their embedding state
  scribe kb list`,
}

var kbAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Add documents to the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			for _, path := range args {
				entry, err := a.Documents.AddFile(ctx, path)
				if err != nil {
					return err
				}
				fmt.Printf("Added %s (%s)\n", entry.Name, entry.ID)
			}
			if kbIngest {
				n := a.Pipeline.IngestKB(ctx)
				fmt.Printf("Embedded %d document(s), %d chunk(s) in store\n", n, a.VectorStore.Count())
			}
			return nil
		})
	},
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge base documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			entries, err := a.Documents.ListEntries(ctx)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No KB documents")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tADDED\tEMBEDDED")
			for _, e := range entries {
				embedded := "no"
				if e.Embedded {
					embedded = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Date.Format("2006-01-02 15:04"), embedded)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\n%d chunk(s) in vector store\n", a.VectorStore.Count())
			return nil
		})
	},
}

var kbRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a document from the knowledge base",
	Long: `Remove a document entry and its copied file. Chunks already embedded stay in
the vector store until "scribe kb clear".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.Documents.RemoveEntry(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed %s\n", args[0])
			return nil
		})
	},
}

var kbClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every document and empty the vector store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			removed, err := a.Documents.RemoveAll(ctx)
			if err != nil {
				return err
			}
			if err := a.VectorStore.Clear(ctx); err != nil {
				return err
			}
			fmt.Printf("Removed %d document(s) and cleared the vector store\n", removed)
			return nil
		})
	},
}

func init() {
	kbAddCmd.Flags().BoolVar(&kbIngest, "ingest", false, "Embed the added documents immediately")

	kbCmd.AddCommand(kbAddCmd)
	kbCmd.AddCommand(kbListCmd)
	kbCmd.AddCommand(kbRemoveCmd)
	kbCmd.AddCommand(kbClearCmd)
	rootCmd.AddCommand(kbCmd)
}
