package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIndex_Search(t *testing.T) {
	idx := NewInMemoryIndex()
	idx.Replace([]Entry{
		{Key: "salmon", Title: "Grilled Salmon", ImageURL: "https://img/salmon.jpg", Vector: []float32{1, 0, 0}},
		{Key: "steak", Title: "Ribeye Steak", ImageURL: "https://img/steak.jpg", Vector: []float32{0, 1, 0}},
		{Key: "soup", Title: "Tomato Soup", ImageURL: "https://img/soup.jpg", Vector: []float32{0, 0, 1}},
	})

	matches, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "salmon", matches[0].Entry.Key)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestInMemoryIndex_SearchTiesKeepInsertionOrder(t *testing.T) {
	idx := NewInMemoryIndex()
	// b and a score identically against the query; b was inserted first.
	idx.Replace([]Entry{
		{Key: "b", ImageURL: "https://img/b.jpg", Vector: []float32{1, 0}},
		{Key: "a", ImageURL: "https://img/a.jpg", Vector: []float32{1, 0}},
		{Key: "c", ImageURL: "https://img/c.jpg", Vector: []float32{0, 1}},
	})

	matches, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "b", matches[0].Entry.Key)
	assert.Equal(t, "a", matches[1].Entry.Key)
	assert.Equal(t, "c", matches[2].Entry.Key)
}

func TestInMemoryIndex_EmptyIndex(t *testing.T) {
	idx := NewInMemoryIndex()

	matches, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, 0, idx.Size())
}

func TestInMemoryIndex_ReplaceSwapsAtomically(t *testing.T) {
	idx := NewInMemoryIndex()
	idx.Replace([]Entry{{Key: "old", ImageURL: "https://img/old.jpg", Vector: []float32{1}}})
	require.Equal(t, 1, idx.Size())

	idx.Replace([]Entry{
		{Key: "new1", ImageURL: "https://img/new1.jpg", Vector: []float32{1}},
		{Key: "new2", ImageURL: "https://img/new2.jpg", Vector: []float32{0.5}},
	})
	assert.Equal(t, 2, idx.Size())

	matches, err := idx.Search(context.Background(), []float32{1}, 10)
	require.NoError(t, err)
	for _, m := range matches {
		assert.NotEqual(t, "old", m.Entry.Key)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, []float32{1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
