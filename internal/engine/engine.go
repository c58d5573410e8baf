// Package engine abstracts the local inference backend. The pipeline treats
// generation as an opaque function from prompt to completion with a token
// budget; embedding lives behind the same boundary because the vector index
// collaborator computes embeddings through it.
package engine

import "context"

// Engine is the boundary to the language model service.
type Engine interface {
	// Generate sends the prompt to the generation model and returns the raw
	// completion text. maxTokens caps the completion length.
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)

	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// IsRunning reports whether the inference backend is reachable.
	IsRunning(ctx context.Context) bool
}
