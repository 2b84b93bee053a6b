// Package dispatch maps a model id to the adapter of the provider owning it.
package dispatch

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/your-org/genie/internal/registry"
	"github.com/your-org/genie/pkg/adapters"
)

// Catalog is the registry view the dispatcher needs.
type Catalog interface {
	Details(ctx context.Context) (registry.Document, error)
}

// Dispatcher holds one adapter per category.
type Dispatcher struct {
	catalog   Catalog
	providers map[registry.Category]adapters.Provider
	log       zerolog.Logger
}

// New requires an adapter for every category.
func New(catalog Catalog, providers map[registry.Category]adapters.Provider, log zerolog.Logger) (*Dispatcher, error) {
	if catalog == nil {
		return nil, fmt.Errorf("dispatch: catalog is nil")
	}
	for _, c := range registry.Categories {
		if providers[c] == nil {
			return nil, fmt.Errorf("dispatch: no provider for category %q", c)
		}
	}
	return &Dispatcher{catalog: catalog, providers: providers, log: log}, nil
}

// Resolve checks the openai list, then the gemini list, and falls back to
// ollama. Ids nobody owns therefore fail inside the ollama adapter.
func (d *Dispatcher) Resolve(ctx context.Context, modelID string) (adapters.Provider, error) {
	doc, err := d.catalog.Details(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispatch %q: %w", modelID, err)
	}

	category := registry.Ollama
	switch {
	case slices.Contains(doc.OpenAI, modelID):
		category = registry.OpenAI
	case slices.Contains(doc.Gemini, modelID):
		category = registry.Gemini
	}
	d.log.Debug().Str("model", modelID).Str("category", string(category)).Msg("dispatch")
	return d.providers[category], nil
}
