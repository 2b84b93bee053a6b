package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/your-org/genie/internal/config"
	"github.com/your-org/genie/internal/metrics"
	"github.com/your-org/genie/internal/trace"
	"github.com/your-org/genie/internal/version"
)

// Runtime owns the process-wide tracing and metrics exporters.
type Runtime struct {
	Options Options

	shutdown []func(context.Context) error
}

// StartRuntime sets up tracing and, when serveMetrics is true and metrics are
// enabled, the Prometheus endpoint.
func StartRuntime(ctx context.Context, cfg config.Config, log zerolog.Logger, serveMetrics bool) (*Runtime, error) {
	rt := &Runtime{}

	otelRuntime, err := trace.SetupOTel(ctx, "genie", trace.OTelOptions{
		Enabled:        cfg.Trace.Enabled,
		Endpoint:       cfg.Trace.Endpoint,
		Insecure:       cfg.Trace.Insecure,
		SampleRatio:    cfg.Trace.SampleRatio,
		ServiceVersion: version.Version,
		Environment:    cfg.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	rt.Options.Tracer = otelRuntime.Tracer
	rt.shutdown = append(rt.shutdown, otelRuntime.Shutdown)

	if !serveMetrics || !cfg.Metrics.Enabled {
		rt.Options.Metrics = metrics.NoopRecorder{}
		return rt, nil
	}

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPrometheusRecorder(reg)
	if err != nil {
		_ = rt.Shutdown(ctx)
		return nil, fmt.Errorf("setup prometheus recorder: %w", err)
	}
	srv, err := metrics.StartPrometheusServer(cfg.Metrics.Addr, reg)
	if err != nil {
		_ = rt.Shutdown(ctx)
		return nil, fmt.Errorf("start metrics endpoint: %w", err)
	}
	log.Info().Str("addr", srv.Addr).Msg("metrics endpoint listening")
	rt.Options.Metrics = rec
	rt.shutdown = append(rt.shutdown, func(ctx context.Context) error {
		return metrics.StopServer(ctx, srv)
	})
	return rt, nil
}

// Shutdown flushes spans and stops the metrics endpoint.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(r.shutdown) - 1; i >= 0; i-- {
		if err := r.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
