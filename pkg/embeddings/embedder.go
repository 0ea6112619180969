// Package embeddings defines the text embedding capability hybrid memory
// depends on, plus the provider implementations under its sub-packages.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding of length Dimensions().
	// Identical input yields identical output for the life of the embedder.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the fixed size of every vector Embed produces.
	Dimensions() int

	// Close releases any resources held by the embedder.
	Close() error
}
