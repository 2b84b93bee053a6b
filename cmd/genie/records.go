package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/genie/internal/trace"
)

func newRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect execution records written to OUTPUT_DIR",
	}
	cmd.AddCommand(newRecordsShowCmd())
	return cmd
}

func newRecordsShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <record.json>",
		Short: "Print one execution record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := trace.LoadFromFile(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), tr)
			}
			return printRecord(cmd.OutOrStdout(), tr)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw record")
	return cmd
}

func printRecord(w io.Writer, tr trace.ExecutionTrace) error {
	var b strings.Builder
	fmt.Fprintf(&b, "record %s (%s) model=%s\n", tr.ID, tr.Kind, tr.ModelName)
	fmt.Fprintf(&b, "started %s, took %s\n", tr.StartTime.UTC().Format(time.RFC3339), tr.TotalLatency)
	for _, s := range tr.Steps {
		fmt.Fprintf(&b, "\n[%d] %s (%s)\n", s.Index, s.UserPrompt, s.Duration)
		if s.ExcludedTerm != "" {
			fmt.Fprintf(&b, "    excluded term: %s\n", s.ExcludedTerm)
		}
		if s.Error != "" {
			fmt.Fprintf(&b, "    error: %s\n", s.Error)
			continue
		}
		fmt.Fprintf(&b, "    %s\n", s.Response)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
