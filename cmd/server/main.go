package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/genie/internal/app"
	"github.com/your-org/genie/internal/config"
	"github.com/your-org/genie/internal/logger"
	"github.com/your-org/genie/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "genie server failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("GENIE_CONFIG"), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath, ".env")
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.StartRuntime(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("runtime shutdown")
		}
	}()

	a, err := app.Build(cfg, log, rt.Options)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	log.Info().
		Str("version", version.Version).
		Str("environment", cfg.Environment).
		Str("models", cfg.ModelsPath).
		Msg("genie starting")
	return a.Serve(ctx, fmt.Sprintf(":%d", cfg.Port), 10*time.Second)
}
