package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/genie/internal/app"
	"github.com/your-org/genie/internal/audit"
	"github.com/your-org/genie/internal/config"
	"github.com/your-org/genie/internal/logger"
)

const cliActor = "cli"

type globalFlags struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "genie: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "genie",
		Short:         "Route prompts to registered LLMs and run metamorphic bias tests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", os.Getenv("GENIE_CONFIG"), "optional YAML config file")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newModelsCmd(g),
		newExecuteCmd(g),
		newMetamorphicCmd(g),
		newOllamaModelsCmd(g),
		newAuditExportCmd(),
		newRecordsCmd(),
		newVersionCmd(),
	)
	return root
}

// withApp builds the app for one command and tears it down afterwards.
func withApp(cmd *cobra.Command, g *globalFlags, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(g.configPath, g.envFile)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = audit.WithActor(ctx, cliActor)

	rt, err := app.StartRuntime(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Shutdown(shutdownCtx)
	}()

	a, err := app.Build(cfg, log, rt.Options)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
