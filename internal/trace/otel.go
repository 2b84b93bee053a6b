package trace

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// OTelOptions configures SetupOTel.
type OTelOptions struct {
	Enabled bool
	// Endpoint is an OTLP/HTTP collector host:port. Empty exports to stdout.
	Endpoint string
	Insecure bool
	// SampleRatio outside (0, 1) samples every root span.
	SampleRatio    float64
	ServiceVersion string
	Environment    string
}

// OTelRuntime stores initialized tracer and shutdown hook.
type OTelRuntime struct {
	Tracer   oteltrace.Tracer
	Shutdown func(context.Context) error
}

// SetupOTel installs a tracer provider when tracing is enabled and returns
// a no-op runtime otherwise.
func SetupOTel(ctx context.Context, serviceName string, opts OTelOptions) (OTelRuntime, error) {
	if !opts.Enabled {
		return OTelRuntime{
			Tracer:   otel.Tracer(serviceName),
			Shutdown: func(context.Context) error { return nil },
		}, nil
	}

	res, err := newResource(ctx, serviceName, opts)
	if err != nil {
		return OTelRuntime{}, err
	}
	exp, err := newExporter(ctx, opts)
	if err != nil {
		return OTelRuntime{}, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(opts.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	return OTelRuntime{Tracer: tp.Tracer(serviceName), Shutdown: tp.Shutdown}, nil
}

func newResource(ctx context.Context, serviceName string, opts OTelOptions) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{attribute.String("service.name", serviceName)}
	if opts.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", opts.ServiceVersion))
	}
	if opts.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", opts.Environment))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}
	return res, nil
}

func newExporter(ctx context.Context, opts OTelOptions) (sdktrace.SpanExporter, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("otel stdout exporter: %w", err)
		}
		return exp, nil
	}
	httpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if opts.Insecure {
		httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("otel otlp exporter %s: %w", endpoint, err)
	}
	return exp, nil
}

// newSampler keeps the caller's sampling decision for child spans, so an
// upstream service tracing a request through genie sees the whole tree.
func newSampler(ratio float64) sdktrace.Sampler {
	root := sdktrace.AlwaysSample()
	if ratio > 0 && ratio < 1 {
		root = sdktrace.TraceIDRatioBased(ratio)
	}
	return sdktrace.ParentBased(root)
}
