package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/genie/internal/registry"
	"github.com/your-org/genie/pkg/adapters"
)

type fakeCatalog struct {
	doc registry.Document
	err error
}

func (f fakeCatalog) Details(context.Context) (registry.Document, error) { return f.doc, f.err }

type namedProvider string

func (p namedProvider) Name() string { return string(p) }

func (p namedProvider) SendPromptToModel(context.Context, adapters.ExecutionRequest) (string, error) {
	return string(p), nil
}

func providers() map[registry.Category]adapters.Provider {
	return map[registry.Category]adapters.Provider{
		registry.OpenAI: namedProvider("openai"),
		registry.Gemini: namedProvider("gemini"),
		registry.Ollama: namedProvider("ollama"),
	}
}

func TestResolve(t *testing.T) {
	catalog := fakeCatalog{doc: registry.Document{
		OpenAI: []string{"gpt-4o"},
		Gemini: []string{"gemini-1.5-flash"},
		Ollama: registry.LocalModels{{ID: "llama3", Name: "llama3:8b", URL: "http://localhost:11434"}},
	}}
	d, err := New(catalog, providers(), zerolog.Nop())
	require.NoError(t, err)

	for model, want := range map[string]string{
		"gpt-4o":           "openai",
		"gemini-1.5-flash": "gemini",
		"llama3":           "ollama",
		"never-registered": "ollama",
	} {
		p, err := d.Resolve(context.Background(), model)
		require.NoError(t, err)
		assert.Equal(t, want, p.Name(), model)
	}
}

func TestResolveRegistryFailure(t *testing.T) {
	boom := errors.New("disk gone")
	d, err := New(fakeCatalog{err: boom}, providers(), zerolog.Nop())
	require.NoError(t, err)

	_, err = d.Resolve(context.Background(), "gpt-4o")
	assert.ErrorIs(t, err, boom)
}

func TestNewRequiresEveryCategory(t *testing.T) {
	p := providers()
	delete(p, registry.Gemini)
	_, err := New(fakeCatalog{}, p, zerolog.Nop())
	assert.Error(t, err)
}
