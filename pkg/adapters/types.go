package adapters

import (
	"context"
	"fmt"

	"github.com/your-org/genie/internal/apperr"
	"github.com/your-org/genie/internal/prompt"
)

// Format is the output shape requested from a model.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

const (
	// Unbounded disables the response length limit.
	Unbounded = prompt.Unbounded
	// DefaultTemperature leaves sampling temperature to the provider.
	DefaultTemperature = -1.0
)

// ExecutionRequest is a provider-agnostic prompt execution.
type ExecutionRequest struct {
	ModelID            string
	SystemPrompt       string
	UserPrompt         string
	ResponseMaxLength  int
	ListFormatResponse bool
	ExcludedTerm       string
	OutputFormat       Format
	Temperature        float64
}

// Validate checks the invariants every adapter relies on.
func (r ExecutionRequest) Validate() error {
	switch {
	case r.ModelID == "":
		return fmt.Errorf("%w: model id is empty", apperr.ErrInvalidInput)
	case r.UserPrompt == "":
		return ErrEmptyPrompt
	case r.ResponseMaxLength != Unbounded && r.ResponseMaxLength <= 0:
		return fmt.Errorf("%w: response max length must be positive or %d", apperr.ErrInvalidInput, Unbounded)
	case r.Temperature != DefaultTemperature && (r.Temperature < 0 || r.Temperature > 1):
		return fmt.Errorf("%w: temperature must be within [0,1] or %v", apperr.ErrInvalidInput, DefaultTemperature)
	}
	switch r.OutputFormat {
	case "", FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: unknown output format %q", apperr.ErrInvalidInput, r.OutputFormat)
	}
}

// SystemMessage is the augmented instruction text followed by the caller's
// system prompt. Empty means no system message.
func (r ExecutionRequest) SystemMessage() string {
	return prompt.System(prompt.Build(r.ResponseMaxLength, r.ListFormatResponse, r.ExcludedTerm), r.SystemPrompt)
}

// HasTemperature reports whether the caller pinned a temperature.
func (r ExecutionRequest) HasTemperature() bool {
	return r.Temperature != DefaultTemperature
}

func (r ExecutionRequest) WantsJSON() bool {
	return r.OutputFormat == FormatJSON
}

// Provider is the common interface all model adapters satisfy.
type Provider interface {
	Name() string
	SendPromptToModel(ctx context.Context, req ExecutionRequest) (string, error)
}
