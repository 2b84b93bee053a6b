package trace

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recorder collects steps from concurrent calls and finalizes them in
// index order.
type Recorder struct {
	mu    sync.Mutex
	trace ExecutionTrace
}

func NewRecorder(kind, modelName string, start time.Time) *Recorder {
	return &Recorder{trace: ExecutionTrace{
		ID:        uuid.NewString(),
		Kind:      kind,
		ModelName: modelName,
		StartTime: start,
	}}
}

func (r *Recorder) AddStep(step Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace.Steps = append(r.trace.Steps, step)
}

func (r *Recorder) Finalize(end time.Time) ExecutionTrace {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.trace
	out.EndTime = end
	out.TotalLatency = end.Sub(r.trace.StartTime)
	out.Steps = append([]Step(nil), r.trace.Steps...)
	sort.SliceStable(out.Steps, func(i, j int) bool { return out.Steps[i].Index < out.Steps[j].Index })
	return out
}
