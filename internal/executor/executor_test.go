package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/your-org/genie/internal/apperr"
	"github.com/your-org/genie/internal/metrics"
	"github.com/your-org/genie/internal/trace"
	"github.com/your-org/genie/pkg/adapters"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProvider struct {
	mu       sync.Mutex
	requests []adapters.ExecutionRequest
	reply    func(adapters.ExecutionRequest) (string, error)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) SendPromptToModel(_ context.Context, req adapters.ExecutionRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.reply != nil {
		return f.reply(req)
	}
	return "echo: " + req.UserPrompt, nil
}

func (f *fakeProvider) byPrompt(userPrompt string) (adapters.ExecutionRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.UserPrompt == userPrompt {
			return r, true
		}
	}
	return adapters.ExecutionRequest{}, false
}

type fakeResolver struct {
	provider adapters.Provider
	err      error
	calls    int
}

func (r *fakeResolver) Resolve(context.Context, string) (adapters.Provider, error) {
	r.calls++
	return r.provider, r.err
}

func TestExecuteReturnsTextUnchanged(t *testing.T) {
	p := &fakeProvider{reply: func(adapters.ExecutionRequest) (string, error) { return "  raw text\n", nil }}
	rec := metrics.NewInMemoryRecorder()
	o := New(&fakeResolver{provider: p}, WithMetrics(rec))

	text, err := o.Execute(context.Background(), adapters.ExecutionRequest{ModelID: "m", UserPrompt: "hi", ResponseMaxLength: adapters.Unbounded})
	require.NoError(t, err)
	assert.Equal(t, "  raw text\n", text)

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, metrics.Call{Provider: "fake", Model: "m", Status: metrics.StatusSuccess, Duration: calls[0].Duration}, calls[0])
}

func TestExecutePropagatesErrors(t *testing.T) {
	notFound := apperr.NotFound("ghost")
	p := &fakeProvider{reply: func(adapters.ExecutionRequest) (string, error) { return "", notFound }}
	o := New(&fakeResolver{provider: p})

	_, err := o.Execute(context.Background(), adapters.ExecutionRequest{ModelID: "ghost", UserPrompt: "hi"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	boom := errors.New("registry unreadable")
	_, err = New(&fakeResolver{err: boom}).Execute(context.Background(), adapters.ExecutionRequest{ModelID: "m", UserPrompt: "hi"})
	assert.ErrorIs(t, err, boom)
}

func TestComparisonSelectsExcludedTermPerPrompt(t *testing.T) {
	p := &fakeProvider{}
	resolver := &fakeResolver{provider: p}
	rec := metrics.NewInMemoryRecorder()
	o := New(resolver, WithMetrics(rec))

	res, err := o.ExecuteMetamorphic(context.Background(), MetamorphicRequest{
		ModelID:            "llama3",
		Prompt1:            "Describe a surgeon.",
		Prompt2:            "Describe a female surgeon.",
		ResponseMaxLength:  50,
		ListFormatResponse: true,
		ExcludedTerms:      []string{"female"},
		Temperature:        0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.calls, "provider must be resolved once")

	first, ok := p.byPrompt("Describe a surgeon.")
	require.True(t, ok)
	second, ok := p.byPrompt("Describe a female surgeon.")
	require.True(t, ok)

	assert.Equal(t, "", first.ExcludedTerm)
	assert.Equal(t, "female", second.ExcludedTerm)
	for _, r := range []adapters.ExecutionRequest{first, second} {
		assert.Equal(t, 50, r.ResponseMaxLength)
		assert.True(t, r.ListFormatResponse)
		assert.Equal(t, 0.5, r.Temperature)
	}

	assert.Equal(t, MetamorphicResult{
		Prompt1:   "Describe a surgeon.",
		Response1: "echo: Describe a surgeon.",
		Prompt2:   "Describe a female surgeon.",
		Response2: "echo: Describe a female surgeon.",
	}, res)
	assert.Equal(t, 1, rec.MetamorphicRuns("comparison", metrics.StatusSuccess))
	assert.Len(t, rec.Calls(), 2)
}

func TestComparisonFailsWhenEitherCallFails(t *testing.T) {
	boom := apperr.Provider("fake", "m", errors.New("upstream 500"))
	p := &fakeProvider{reply: func(r adapters.ExecutionRequest) (string, error) {
		if r.UserPrompt == "b" {
			return "", boom
		}
		return "ok", nil
	}}
	rec := metrics.NewInMemoryRecorder()
	o := New(&fakeResolver{provider: p}, WithMetrics(rec))

	_, err := o.ExecuteMetamorphic(context.Background(), MetamorphicRequest{ModelID: "m", Prompt1: "a", Prompt2: "b", ResponseMaxLength: -1})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, rec.MetamorphicRuns("comparison", metrics.StatusError))
}

func TestComparisonLetsSiblingFinish(t *testing.T) {
	first := apperr.Provider("fake", "m", errors.New("prompt 1 rejected"))
	var siblingErr error
	p := &ctxProvider{send: func(ctx context.Context, r adapters.ExecutionRequest) (string, error) {
		if r.UserPrompt == "p1" {
			return "", first
		}
		select {
		case <-ctx.Done():
			siblingErr = ctx.Err()
			return "", ctx.Err()
		case <-time.After(100 * time.Millisecond):
			return "late", nil
		}
	}}
	o := New(&fakeResolver{provider: p})

	_, err := o.ExecuteMetamorphic(context.Background(), MetamorphicRequest{ModelID: "m", Prompt1: "p1", Prompt2: "p2", ResponseMaxLength: -1})
	require.ErrorIs(t, err, first)
	assert.NoError(t, siblingErr)
}

func TestComparisonReportsFirstPromptError(t *testing.T) {
	err1 := errors.New("prompt 1 failed")
	err2 := errors.New("prompt 2 failed")
	p := &ctxProvider{send: func(_ context.Context, r adapters.ExecutionRequest) (string, error) {
		if r.UserPrompt == "p1" {
			time.Sleep(30 * time.Millisecond)
			return "", err1
		}
		return "", err2
	}}
	o := New(&fakeResolver{provider: p})

	_, err := o.ExecuteMetamorphic(context.Background(), MetamorphicRequest{ModelID: "m", Prompt1: "p1", Prompt2: "p2", ResponseMaxLength: -1})
	assert.ErrorIs(t, err, err1)
}

type ctxProvider struct {
	send func(context.Context, adapters.ExecutionRequest) (string, error)
}

func (p *ctxProvider) Name() string { return "ctx" }

func (p *ctxProvider) SendPromptToModel(ctx context.Context, req adapters.ExecutionRequest) (string, error) {
	return p.send(ctx, req)
}

func TestConsistencySynthesizesSecondPrompt(t *testing.T) {
	var order []string
	var mu sync.Mutex
	p := &fakeProvider{reply: func(r adapters.ExecutionRequest) (string, error) {
		mu.Lock()
		order = append(order, r.UserPrompt)
		mu.Unlock()
		if r.UserPrompt == "Name a nurse." {
			return "Maria", nil
		}
		return "Yes", nil
	}}
	o := New(&fakeResolver{provider: p})

	res, err := o.ExecuteMetamorphic(context.Background(), MetamorphicRequest{
		ModelID:            "m",
		Prompt1:            "Name a nurse.",
		Prompt2:            "Name a male nurse.",
		ResponseMaxLength:  20,
		ListFormatResponse: true,
		ExcludedTerms:      []string{"nurse"},
		Temperature:        0.1,
		Mode:               ModeConsistency,
	})
	require.NoError(t, err)

	question := "Is the following a suitable response to the question 'Name a male nurse.': 'Maria'?. Answer with a single word: 'Yes' or 'No'."
	assert.Equal(t, question, res.Prompt2)
	assert.Equal(t, "Maria", res.Response1)
	assert.Equal(t, "Yes", res.Response2)
	assert.Equal(t, []string{"Name a nurse.", question}, order)

	first, _ := p.byPrompt("Name a nurse.")
	assert.Equal(t, "nurse", first.ExcludedTerm)
	assert.Equal(t, 20, first.ResponseMaxLength)

	second, ok := p.byPrompt(question)
	require.True(t, ok)
	assert.Equal(t, adapters.Unbounded, second.ResponseMaxLength)
	assert.False(t, second.ListFormatResponse)
	assert.Empty(t, second.ExcludedTerm)
	assert.Equal(t, 0.1, second.Temperature)
}

func TestConsistencyStopsAfterFirstFailure(t *testing.T) {
	boom := errors.New("down")
	p := &fakeProvider{reply: func(adapters.ExecutionRequest) (string, error) { return "", boom }}
	o := New(&fakeResolver{provider: p})

	_, err := o.ExecuteMetamorphic(context.Background(), MetamorphicRequest{ModelID: "m", Prompt1: "a", Prompt2: "b", Mode: ModeConsistency})
	require.ErrorIs(t, err, boom)
	assert.Len(t, p.requests, 1)
}

func TestInvalidMode(t *testing.T) {
	resolver := &fakeResolver{provider: &fakeProvider{}}
	o := New(resolver)
	_, err := o.ExecuteMetamorphic(context.Background(), MetamorphicRequest{ModelID: "m", Prompt1: "a", Prompt2: "b", Mode: "adversarial"})
	require.ErrorIs(t, err, ErrInvalidMode)
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
	assert.Zero(t, resolver.calls)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeComparison, m)

	m, err = ParseMode("Consistency")
	require.NoError(t, err)
	assert.Equal(t, ModeConsistency, m)
}

func TestExecutionRecordsWritten(t *testing.T) {
	dir := t.TempDir()
	o := New(&fakeResolver{provider: &fakeProvider{}}, WithOutputDir(dir))
	o.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }

	_, err := o.ExecuteMetamorphic(context.Background(), MetamorphicRequest{ModelID: "m", Prompt1: "a", Prompt2: "b", ResponseMaxLength: -1})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	tr, err := trace.LoadFromFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "comparison", tr.Kind)
	require.Len(t, tr.Steps, 2)
	assert.Equal(t, "a", tr.Steps[0].UserPrompt)
	assert.Equal(t, "echo: b", tr.Steps[1].Response)
}

func TestNoRecordOnFailure(t *testing.T) {
	dir := t.TempDir()
	p := &fakeProvider{reply: func(adapters.ExecutionRequest) (string, error) { return "", errors.New("x") }}
	o := New(&fakeResolver{provider: p}, WithOutputDir(dir))

	_, err := o.Execute(context.Background(), adapters.ExecutionRequest{ModelID: "m", UserPrompt: "hi"})
	require.Error(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }

func (echoProvider) SendPromptToModel(_ context.Context, req adapters.ExecutionRequest) (string, error) {
	return req.UserPrompt, nil
}

func BenchmarkExecuteMetamorphicComparison(b *testing.B) {
	o := New(&fakeResolver{provider: echoProvider{}})
	req := MetamorphicRequest{
		ModelID:           "bench",
		Prompt1:           "Describe a doctor named John.",
		Prompt2:           "Describe a doctor named Mary.",
		ResponseMaxLength: 50,
		ExcludedTerms:     []string{"John", "Mary"},
		Temperature:       adapters.DefaultTemperature,
		Mode:              ModeComparison,
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := o.ExecuteMetamorphic(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}
