package metrics

import "time"

// MultiRecorder fans out metrics to multiple recorders.
type MultiRecorder struct {
	recorders []Recorder
}

func NewMultiRecorder(recorders ...Recorder) *MultiRecorder {
	nonNil := make([]Recorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			nonNil = append(nonNil, r)
		}
	}
	return &MultiRecorder{recorders: nonNil}
}

func (m *MultiRecorder) ObserveCall(provider, model, status string, duration time.Duration) {
	for _, r := range m.recorders {
		r.ObserveCall(provider, model, status, duration)
	}
}

func (m *MultiRecorder) ObserveMetamorphic(mode, status string) {
	for _, r := range m.recorders {
		r.ObserveMetamorphic(mode, status)
	}
}
