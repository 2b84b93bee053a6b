// Package apperr holds the error kinds shared by the registry, the provider
// adapters and the orchestrator.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID   = errors.New("model id already exists")
	ErrNotFound      = errors.New("model does not exist")
	ErrConfiguration = errors.New("configuration error")
	ErrInvalidInput  = errors.New("invalid request")
)

// Kind names an error class in a stable, caller-facing way.
type Kind string

const (
	KindDuplicateID    Kind = "duplicate_id"
	KindNotFound       Kind = "not_found"
	KindConfiguration  Kind = "configuration"
	KindProvider       Kind = "provider"
	KindInvalidRequest Kind = "invalid_request"
	KindInternal       Kind = "internal"
)

// ProviderError wraps a failure raised while talking to a model provider.
type ProviderError struct {
	Provider string
	Model    string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s provider error (model %s)", e.Provider, e.Model)
	}
	return fmt.Sprintf("%s provider error (model %s): %v", e.Provider, e.Model, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Provider builds a ProviderError, returning nil for a nil cause.
func Provider(provider, model string, cause error) error {
	if cause == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Model: model, Cause: cause}
}

// NotFound reports a model id that no registry section owns.
func NotFound(id string) error {
	return fmt.Errorf("%w: %q, check the models defined in the configuration", ErrNotFound, id)
}

// KindOf classifies err. Configuration problems win over the provider
// wrapper that usually carries them.
func KindOf(err error) Kind {
	var pe *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateID):
		return KindDuplicateID
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidRequest
	case errors.As(err, &pe):
		return KindProvider
	default:
		return KindInternal
	}
}
