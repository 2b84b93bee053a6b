package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/your-org/genie/internal/app"
	"github.com/your-org/genie/internal/audit"
	"github.com/your-org/genie/internal/version"
)

func newOllamaModelsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ollama-models",
		Short: "List models installed on the configured Ollama server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				models, err := a.Ollama.ListInstalled(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tMODEL\tMODIFIED")
				for _, m := range models {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, m.Model, m.ModifiedAt.Format("2006-01-02 15:04"))
				}
				return tw.Flush()
			})
		},
	}
}

func newAuditExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit-export <audit.jsonl> [output.csv]",
		Short: "Convert the registry audit log to CSV",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := "audit.csv"
			if len(args) > 1 {
				out = args[1]
			}
			n, err := audit.ExportFile(args[0], out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "audit export complete: %d event(s) %s -> %s\n", n, args[0], out)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				return printJSON(cmd.OutOrStdout(), version.Get())
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
