// Package app wires the registry, the provider adapters, the dispatcher and
// the orchestrator into one unit shared by the HTTP server and the CLI.
package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/your-org/genie/internal/audit"
	"github.com/your-org/genie/internal/config"
	"github.com/your-org/genie/internal/coordinator"
	"github.com/your-org/genie/internal/dispatch"
	"github.com/your-org/genie/internal/executor"
	"github.com/your-org/genie/internal/metrics"
	"github.com/your-org/genie/internal/registry"
	"github.com/your-org/genie/pkg/adapters"
	"github.com/your-org/genie/pkg/adapters/gemini"
	"github.com/your-org/genie/pkg/adapters/ollama"
	"github.com/your-org/genie/pkg/adapters/openai"
)

// Options carries the runtime pieces that outlive a single App, such as the
// metrics recorder and tracer owned by the process.
type Options struct {
	Metrics metrics.Recorder
	Tracer  oteltrace.Tracer
	// HTTPClient is shared by the openai and ollama adapters when set.
	HTTPClient *http.Client
}

// App is the assembled service.
type App struct {
	Config       config.Config
	Store        *registry.Store
	Orchestrator *executor.Orchestrator
	Ollama       *ollama.Client

	log    zerolog.Logger
	tracer oteltrace.Tracer
	coord  coordinator.Coordinator
}

// Build constructs every component once from cfg.
func Build(cfg config.Config, log zerolog.Logger, opts Options) (*App, error) {
	mode, err := coordinator.ParseMode(cfg.Lock.Mode)
	if err != nil {
		return nil, err
	}
	coord, err := coordinator.New(coordinator.Options{
		Mode:     mode,
		Dir:      cfg.Lock.Dir,
		RedisURL: cfg.Lock.RedisURL,
		Prefix:   "genie",
	})
	if err != nil {
		return nil, fmt.Errorf("registry lock: %w", err)
	}

	store := registry.NewStore(cfg.ModelsPath,
		registry.WithEndpointResolver(cfg.EndpointResolver()),
		registry.WithCoordinator(coord, cfg.Lock.TTL),
		registry.WithAuditLogger(audit.NewLogger(cfg.AuditLogPath)),
		registry.WithLogger(log.With().Str("component", "registry").Logger()),
	)

	local := ollama.NewClient(store, ollama.Options{
		HTTPClient:  opts.HTTPClient,
		NumContext:  cfg.Ollama.NumContext,
		Environment: cfg.Environment,
		BaseURL:     cfg.Ollama.BaseURL,
		Logger:      log.With().Str("provider", "ollama").Logger(),
	})
	providers := map[registry.Category]adapters.Provider{
		registry.OpenAI: openai.NewClient(cfg.OpenAI.APIKey, openai.Options{
			BaseURL:    cfg.OpenAI.BaseURL,
			HTTPClient: opts.HTTPClient,
			Logger:     log.With().Str("provider", "openai").Logger(),
		}),
		registry.Gemini: gemini.NewClient(cfg.Gemini.APIKey, gemini.Options{
			BaseURL:    cfg.Gemini.BaseURL,
			ProxyURL:   cfg.Gemini.ProxyURL,
			HTTPClient: opts.HTTPClient,
			Logger:     log.With().Str("provider", "gemini").Logger(),
		}),
		registry.Ollama: local,
	}

	dispatcher, err := dispatch.New(store, providers, log.With().Str("component", "dispatch").Logger())
	if err != nil {
		return nil, err
	}

	orchOpts := []executor.Option{
		executor.WithOutputDir(cfg.OutputDir),
		executor.WithLogger(log.With().Str("component", "executor").Logger()),
	}
	if opts.Metrics != nil {
		orchOpts = append(orchOpts, executor.WithMetrics(opts.Metrics))
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("genie")
	}
	orchOpts = append(orchOpts, executor.WithTracer(tracer))

	return &App{
		Config:       cfg,
		Store:        store,
		Orchestrator: executor.New(dispatcher, orchOpts...),
		Ollama:       local,
		log:          log,
		tracer:       tracer,
		coord:        coord,
	}, nil
}

// Close releases idle adapter connections and the lock backend.
func (a *App) Close() error {
	var errs []error
	if err := a.Ollama.Close(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := a.coord.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
