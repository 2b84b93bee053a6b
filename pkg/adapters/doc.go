// Package adapters defines the provider-agnostic execution request and the
// interface every model provider implements.
//
// Subpackages:
//   - ollama (self-hosted models, endpoint from the registry)
//   - openai
//   - gemini
package adapters
