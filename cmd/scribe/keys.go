package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ternarybob/scribe/internal/app"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage provider API keys",
	Long: `Manage API keys for completion, embedding, search, image and publishing
providers. Environment variables take precedence over stored keys.`,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show where each key resolves from",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			statuses, err := a.KVService.Status(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSOURCE\tVALUE\tSTORED")
			for _, s := range statuses {
				source := s.Source
				if s.EnvVar != "" {
					source = fmt.Sprintf("%s (%s)", s.Source, s.EnvVar)
				}
				stored := ""
				if !s.UpdatedAt.IsZero() {
					stored = s.UpdatedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, source, s.Masked, stored)
			}
			return w.Flush()
		})
	},
}

var keysSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Store an API key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.KVService.Set(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Stored %s\n", args[0])
			return nil
		})
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a stored API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.KVService.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		})
	},
}

var keysImportCmd = &cobra.Command{
	Use:   "import <env-file>",
	Short: "Store the known API keys found in a .env file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		return withApp(func(ctx context.Context, a *app.App) error {
			n, err := a.KVService.ImportEnv(ctx, f)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d key(s) from %s\n", n, args[0])
			return nil
		})
	},
}

func init() {
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysSetCmd)
	keysCmd.AddCommand(keysDeleteCmd)
	keysCmd.AddCommand(keysImportCmd)
	rootCmd.AddCommand(keysCmd)
}
