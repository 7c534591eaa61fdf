// Package catalog provides the curated dish catalog and vector similarity
// search over its embeddings.
package catalog

import "context"

// Entry is one curated catalog dish with its precomputed embedding. The
// vector is computed from "title. description", the same convention queries
// are embedded with.
type Entry struct {
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"image_url"`
	Vector      []float32 `json:"vector"`
}

// Match is a catalog entry scored against a query vector.
type Match struct {
	Entry Entry
	// Score is cosine similarity in [-1, 1].
	Score float64
}

// Searcher performs nearest-neighbour search over catalog embeddings.
// Implementations must be concurrency-safe.
type Searcher interface {
	// Search returns up to k entries ordered by descending similarity to the
	// query vector. Ties keep catalog insertion order.
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	// Size returns the number of entries currently indexed.
	Size() int
}
