// Package embedding provides text embedding providers for catalog similarity
// search.
package embedding

import "context"

// Provider defines a text embeddings provider.
// Implementations must be concurrency-safe.
type Provider interface {
	// Name returns the provider name (e.g., "openai").
	Name() string
	// Dimensions returns the embedding dimensionality this provider produces.
	Dimensions() int
	// Embed returns one embedding per input string, in input order.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}
