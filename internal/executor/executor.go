// Package executor runs single and metamorphic prompt executions against
// the provider that owns a model.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/genie/internal/apperr"
	"github.com/your-org/genie/internal/metrics"
	"github.com/your-org/genie/internal/prompt"
	"github.com/your-org/genie/internal/trace"
	"github.com/your-org/genie/pkg/adapters"
)

// Mode selects the metamorphic flow.
type Mode string

const (
	ModeComparison  Mode = "comparison"
	ModeConsistency Mode = "consistency"
)

var ErrInvalidMode = fmt.Errorf("%w: metamorphic type must be comparison or consistency", apperr.ErrInvalidInput)

// ParseMode maps the request value to a Mode; empty means comparison.
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ModeComparison, nil
	case ModeComparison, ModeConsistency:
		return m, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidMode, raw)
	}
}

// MetamorphicRequest pairs a baseline prompt with a variant.
type MetamorphicRequest struct {
	ModelID            string
	Prompt1            string
	Prompt2            string
	ResponseMaxLength  int
	ListFormatResponse bool
	ExcludedTerms      []string
	Temperature        float64
	Mode               Mode
}

// MetamorphicResult holds both prompts as executed and their responses.
type MetamorphicResult struct {
	Prompt1   string `json:"prompt_1"`
	Response1 string `json:"response_1"`
	Prompt2   string `json:"prompt_2"`
	Response2 string `json:"response_2"`
}

// Resolver returns the adapter owning a model id.
type Resolver interface {
	Resolve(ctx context.Context, modelID string) (adapters.Provider, error)
}

// Orchestrator is the execution entrypoint.
type Orchestrator struct {
	resolver  Resolver
	metrics   metrics.Recorder
	tracer    oteltrace.Tracer
	outputDir string
	log       zerolog.Logger
	now       func() time.Time
}

type Option func(*Orchestrator)

func WithMetrics(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.metrics = r
		}
	}
}

func WithTracer(t oteltrace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithOutputDir saves an execution record for every successful run.
func WithOutputDir(dir string) Option {
	return func(o *Orchestrator) { o.outputDir = dir }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func New(resolver Resolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver: resolver,
		metrics:  metrics.NoopRecorder{},
		tracer:   otel.Tracer("genie/executor"),
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute sends one request to the provider owning req.ModelID and returns
// its text unchanged.
func (o *Orchestrator) Execute(ctx context.Context, req adapters.ExecutionRequest) (string, error) {
	ctx, span := o.tracer.Start(ctx, "executor.Execute",
		oteltrace.WithAttributes(attribute.String("genie.model", req.ModelID)))
	defer span.End()

	provider, err := o.resolver.Resolve(ctx, req.ModelID)
	if err != nil {
		return "", spanError(span, err)
	}
	span.SetAttributes(attribute.String("genie.provider", provider.Name()))

	rec := trace.NewRecorder("execute", req.ModelID, o.now())
	text, err := o.call(ctx, provider, req, 1, rec)
	if err != nil {
		return "", spanError(span, err)
	}
	o.save(rec)
	return text, nil
}

// ExecuteMetamorphic runs both prompts against one resolved provider.
// Comparison mode issues the calls concurrently; consistency mode feeds the
// first response into a yes/no judgment question.
func (o *Orchestrator) ExecuteMetamorphic(ctx context.Context, req MetamorphicRequest) (MetamorphicResult, error) {
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return MetamorphicResult{}, err
	}

	ctx, span := o.tracer.Start(ctx, "executor.ExecuteMetamorphic",
		oteltrace.WithAttributes(
			attribute.String("genie.model", req.ModelID),
			attribute.String("genie.mode", string(mode)),
		))
	defer span.End()

	res, err := o.runMetamorphic(ctx, mode, req)
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		spanError(span, err)
	}
	o.metrics.ObserveMetamorphic(string(mode), status)
	return res, err
}

func (o *Orchestrator) runMetamorphic(ctx context.Context, mode Mode, req MetamorphicRequest) (MetamorphicResult, error) {
	provider, err := o.resolver.Resolve(ctx, req.ModelID)
	if err != nil {
		return MetamorphicResult{}, err
	}

	rec := trace.NewRecorder(string(mode), req.ModelID, o.now())
	first := adapters.ExecutionRequest{
		ModelID:            req.ModelID,
		UserPrompt:         req.Prompt1,
		ResponseMaxLength:  req.ResponseMaxLength,
		ListFormatResponse: req.ListFormatResponse,
		ExcludedTerm:       prompt.SelectExcludedTerm(req.Prompt1, req.ExcludedTerms),
		OutputFormat:       adapters.FormatText,
		Temperature:        req.Temperature,
	}

	var res MetamorphicResult
	switch mode {
	case ModeComparison:
		second := first
		second.UserPrompt = req.Prompt2
		second.ExcludedTerm = prompt.SelectExcludedTerm(req.Prompt2, req.ExcludedTerms)

		// Both calls run to completion; prompt 1's failure is reported first.
		var r1, r2 string
		var err1, err2 error
		var g errgroup.Group
		g.Go(func() error {
			r1, err1 = o.call(ctx, provider, first, 1, rec)
			return nil
		})
		g.Go(func() error {
			r2, err2 = o.call(ctx, provider, second, 2, rec)
			return nil
		})
		_ = g.Wait()
		if err1 != nil {
			return MetamorphicResult{}, err1
		}
		if err2 != nil {
			return MetamorphicResult{}, err2
		}
		res = MetamorphicResult{Prompt1: req.Prompt1, Response1: r1, Prompt2: req.Prompt2, Response2: r2}

	case ModeConsistency:
		r1, err := o.call(ctx, provider, first, 1, rec)
		if err != nil {
			return MetamorphicResult{}, err
		}
		second := adapters.ExecutionRequest{
			ModelID:           req.ModelID,
			UserPrompt:        prompt.ConsistencyQuestion(req.Prompt2, r1),
			ResponseMaxLength: adapters.Unbounded,
			OutputFormat:      adapters.FormatText,
			Temperature:       req.Temperature,
		}
		r2, err := o.call(ctx, provider, second, 2, rec)
		if err != nil {
			return MetamorphicResult{}, err
		}
		res = MetamorphicResult{Prompt1: req.Prompt1, Response1: r1, Prompt2: second.UserPrompt, Response2: r2}
	}

	o.save(rec)
	return res, nil
}

func (o *Orchestrator) call(ctx context.Context, p adapters.Provider, req adapters.ExecutionRequest, index int, rec *trace.Recorder) (string, error) {
	start := o.now()
	text, err := p.SendPromptToModel(ctx, req)
	elapsed := o.now().Sub(start)

	step := trace.Step{
		Index:        index,
		UserPrompt:   req.UserPrompt,
		ExcludedTerm: req.ExcludedTerm,
		Response:     text,
		Duration:     elapsed,
	}
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		step.Error = err.Error()
	}
	rec.AddStep(step)
	o.metrics.ObserveCall(p.Name(), req.ModelID, status, elapsed)

	o.log.Info().
		Str("provider", p.Name()).
		Str("model", req.ModelID).
		Int("step", index).
		Dur("duration", elapsed).
		Str("status", status).
		Msg("provider call")
	return text, err
}

func (o *Orchestrator) save(rec *trace.Recorder) {
	if o.outputDir == "" {
		return
	}
	path, err := trace.SaveToDir(o.outputDir, rec.Finalize(o.now()))
	if err != nil {
		o.log.Warn().Err(err).Msg("save execution record")
		return
	}
	o.log.Debug().Str("path", path).Msg("execution record saved")
}

func spanError(span oteltrace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
