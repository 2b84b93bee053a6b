package metrics

import (
	"sync"
	"time"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recorder defines the metric hooks used by the orchestrator.
type Recorder interface {
	ObserveCall(provider, model, status string, duration time.Duration)
	ObserveMetamorphic(mode, status string)
}

// NoopRecorder is the default when metrics are disabled.
type NoopRecorder struct{}

func (NoopRecorder) ObserveCall(string, string, string, time.Duration) {}
func (NoopRecorder) ObserveMetamorphic(string, string)                 {}

// Call is one observed provider call.
type Call struct {
	Provider string
	Model    string
	Status   string
	Duration time.Duration
}

// InMemoryRecorder keeps observations for inspection.
type InMemoryRecorder struct {
	mu          sync.Mutex
	calls       []Call
	metamorphic map[string]int
}

func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{metamorphic: make(map[string]int)}
}

func (r *InMemoryRecorder) ObserveCall(provider, model, status string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Provider: provider, Model: model, Status: status, Duration: duration})
}

func (r *InMemoryRecorder) ObserveMetamorphic(mode, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metamorphic[mode+"/"+status]++
}

// Calls returns a copy of the observed calls.
func (r *InMemoryRecorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// MetamorphicRuns counts runs observed for mode and status.
func (r *InMemoryRecorder) MetamorphicRuns(mode, status string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metamorphic[mode+"/"+status]
}
