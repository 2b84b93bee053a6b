// Package trace records executions to disk and sets up OpenTelemetry.
package trace

import "time"

// ExecutionTrace captures one execution and every provider call it made.
type ExecutionTrace struct {
	ID           string        `json:"id"`
	Kind         string        `json:"kind"`
	ModelName    string        `json:"modelName"`
	Steps        []Step        `json:"steps"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      time.Time     `json:"endTime"`
	TotalLatency time.Duration `json:"totalLatency"`
}

// Step is a single provider call.
type Step struct {
	Index        int           `json:"index"`
	UserPrompt   string        `json:"userPrompt"`
	ExcludedTerm string        `json:"excludedTerm,omitempty"`
	Response     string        `json:"response,omitempty"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration"`
}
