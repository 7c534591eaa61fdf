package catalog

import (
	"context"
	"math"
	"sort"
	"sync"
)

// InMemoryIndex is a brute-force vector index with cosine similarity.
// The catalog is small (thousands of dishes), so a linear scan beats the
// operational cost of an external vector store.
type InMemoryIndex struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemoryIndex constructs an empty index.
func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{}
}

// Replace swaps the stored entries atomically. Vectors are copied so callers
// may reuse their slices.
func (idx *InMemoryIndex) Replace(entries []Entry) {
	copied := make([]Entry, len(entries))
	for i, e := range entries {
		e.Vector = append([]float32(nil), e.Vector...)
		copied[i] = e
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = copied
}

// Size returns the current number of entries stored.
func (idx *InMemoryIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Search performs cosine similarity against all stored entries and returns
// the top-k matches, highest score first. Equal scores keep catalog insertion
// order so results are deterministic across runs.
func (idx *InMemoryIndex) Search(_ context.Context, vector []float32, k int) ([]Match, error) {
	idx.mu.RLock()
	entries := idx.entries
	idx.mu.RUnlock()

	if len(entries) == 0 || len(vector) == 0 || k <= 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		matches = append(matches, Match{
			Entry: e,
			Score: cosineSimilarity(vector, e.Vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// cosineSimilarity accumulates in float64 to keep precision over long
// vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		fa := float64(a[i])
		fb := float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
