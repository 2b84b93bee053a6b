package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/your-org/genie/internal/app"
	"github.com/your-org/genie/internal/apperr"
	"github.com/your-org/genie/internal/registry"
)

func newModelsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect and edit the model registry",
	}
	cmd.AddCommand(
		newModelsListCmd(g),
		newModelsDetailsCmd(g),
		newModelsAddCmd(g),
		newModelsUpdateCmd(g),
		newModelsRemoveCmd(g),
	)
	return cmd
}

func newModelsListCmd(g *globalFlags) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered model ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				ids, err := a.Store.ListIDs(ctx, registry.Category(category))
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "openai, gemini or ollama")
	return cmd
}

func newModelsDetailsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "details",
		Short: "Print the registry document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				doc, err := a.Store.Details(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), doc)
			})
		},
	}
}

func newModelsAddCmd(g *globalFlags) *cobra.Command {
	var in registry.AddInput
	var category string
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Register a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.ID = args[0]
			in.Category = registry.Category(category)
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				if err := a.Store.Add(ctx, in); err != nil {
					return err
				}
				if in.Category == registry.Ollama {
					e, _, err := a.Store.LocalEntry(ctx, in.ID)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), e)
				}
				return printJSON(cmd.OutOrStdout(), registry.Entry{ID: in.ID, Category: in.Category})
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "openai, gemini or ollama")
	cmd.Flags().StringVar(&in.ProviderName, "name", "", "model name on the ollama server (defaults to the id)")
	cmd.Flags().StringVar(&in.Endpoint, "base-url", "", "explicit ollama endpoint")
	cmd.Flags().IntVar(&in.Port, "port", 0, "ollama port when the endpoint is composed")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newModelsUpdateCmd(g *globalFlags) *cobra.Command {
	var in registry.UpdateInput
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the name or endpoint of a local model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.ID = args[0]
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				if err := a.Store.Update(ctx, in); err != nil {
					return err
				}
				e, _, err := a.Store.LocalEntry(ctx, in.ID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), e)
			})
		},
	}
	cmd.Flags().StringVar(&in.ProviderName, "name", "", "new model name")
	cmd.Flags().StringVar(&in.Endpoint, "base-url", "", "explicit ollama endpoint")
	cmd.Flags().IntVar(&in.Port, "port", 0, "ollama port when the endpoint is composed")
	return cmd
}

func newModelsRemoveCmd(g *globalFlags) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a model from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				if strict {
					ok, err := a.Store.Exists(ctx, id)
					if err != nil {
						return err
					}
					if !ok {
						return apperr.NotFound(id)
					}
				}
				if err := a.Store.Remove(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the id is not registered")
	return cmd
}
