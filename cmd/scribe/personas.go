package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ternarybob/scribe/internal/app"
)

var personaSamples []string

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "Manage writing personas",
	Long: `Manage the writing voices articles are generated in. The four built-in
personas cannot be deleted.

Examples:
  scribe personas list
  scribe personas add "Si Teknis" "Precise, example-driven explainer" --sample "Let's look at the numbers."
  scribe personas use "Si Teknis"`,
}

var personasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List personas",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			personas, err := a.Personas.List(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ACTIVE\tNAME\tBUILT-IN\tDESCRIPTION")
			for _, p := range personas {
				active, builtIn := "", ""
				if p.Active {
					active = "*"
				}
				if p.IsProtected() {
					builtIn = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", active, p.Name, builtIn, truncate(p.Desc, 70))
			}
			return w.Flush()
		})
	},
}

var personasAddCmd = &cobra.Command{
	Use:   "add <name> <description>",
	Short: "Add a custom persona",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			persona, err := a.Personas.Add(ctx, args[0], args[1], personaSamples)
			if err != nil {
				return err
			}
			fmt.Printf("Added persona %s\n", persona.Name)
			return nil
		})
	},
}

var personasUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make a persona the active voice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.Personas.Activate(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Active persona: %s\n", args[0])
			return nil
		})
	},
}

var personasDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a custom persona",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.Personas.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted persona %s\n", args[0])
			return nil
		})
	},
}

func init() {
	personasAddCmd.Flags().StringArrayVar(&personaSamples, "sample", nil, "Writing sample in the persona's voice (repeatable)")

	personasCmd.AddCommand(personasListCmd)
	personasCmd.AddCommand(personasAddCmd)
	personasCmd.AddCommand(personasUseCmd)
	personasCmd.AddCommand(personasDeleteCmd)
	rootCmd.AddCommand(personasCmd)
}
