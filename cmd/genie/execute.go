package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/your-org/genie/internal/app"
	"github.com/your-org/genie/internal/executor"
	"github.com/your-org/genie/pkg/adapters"
)

func newExecuteCmd(g *globalFlags) *cobra.Command {
	req := adapters.ExecutionRequest{}
	var format string
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Send one prompt to a registered model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.OutputFormat = adapters.Format(format)
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				text, err := a.Orchestrator.Execute(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.ModelID, "model", "", "registered model id")
	f.StringVar(&req.SystemPrompt, "system", "", "system prompt")
	f.StringVar(&req.UserPrompt, "prompt", "", "user prompt")
	f.IntVar(&req.ResponseMaxLength, "max-length", adapters.Unbounded, "word limit, -1 for none")
	f.BoolVar(&req.ListFormatResponse, "list", false, "ask for a numbered list")
	f.StringVar(&req.ExcludedTerm, "exclude", "", "term the response must not mention")
	f.StringVar(&format, "format", string(adapters.FormatText), "text or json")
	f.Float64Var(&req.Temperature, "temperature", app.RequestTemperature, "sampling temperature in [0,1]")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func newMetamorphicCmd(g *globalFlags) *cobra.Command {
	req := executor.MetamorphicRequest{}
	var mode string
	cmd := &cobra.Command{
		Use:   "metamorphic",
		Short: "Run a comparison or consistency test against one model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Mode = executor.Mode(mode)
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				res, err := a.Orchestrator.ExecuteMetamorphic(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.ModelID, "model", "", "registered model id")
	f.StringVar(&req.Prompt1, "prompt1", "", "baseline prompt")
	f.StringVar(&req.Prompt2, "prompt2", "", "variant prompt")
	f.IntVar(&req.ResponseMaxLength, "max-length", adapters.Unbounded, "word limit, -1 for none")
	f.BoolVar(&req.ListFormatResponse, "list", false, "ask for a numbered list")
	f.StringSliceVar(&req.ExcludedTerms, "exclude", nil, "candidate terms; the first found in each prompt is excluded")
	f.Float64Var(&req.Temperature, "temperature", app.RequestTemperature, "sampling temperature in [0,1]")
	f.StringVar(&mode, "type", string(executor.ModeComparison), "comparison or consistency")
	for _, name := range []string{"model", "prompt1", "prompt2"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
