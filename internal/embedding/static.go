package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// StaticProvider produces deterministic pseudo-embeddings derived from the
// input text. It exists for development and tests where no embeddings API is
// configured; identical inputs always produce identical vectors.
type StaticProvider struct {
	dims int
}

// NewStatic creates a deterministic embeddings provider with the given
// dimensionality.
func NewStatic(dims int) *StaticProvider {
	if dims <= 0 {
		dims = 64
	}
	return &StaticProvider{dims: dims}
}

// Name returns the provider name.
func (p *StaticProvider) Name() string { return "static" }

// Dimensions returns the configured dimensionality.
func (p *StaticProvider) Dimensions() int { return p.dims }

// Embed derives a unit vector from a hash of each input.
func (p *StaticProvider) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, input := range inputs {
		out[i] = p.vector(input)
	}
	return out, nil
}

func (p *StaticProvider) vector(input string) []float32 {
	v := make([]float32, p.dims)
	seed := sha256.Sum256([]byte(input))

	var norm float64
	for i := range v {
		// Stretch the 32-byte digest across the vector by re-hashing
		// with the component index.
		var buf [36]byte
		copy(buf[:32], seed[:])
		binary.BigEndian.PutUint32(buf[32:], uint32(i))
		h := sha256.Sum256(buf[:])
		raw := binary.BigEndian.Uint32(h[:4])
		v[i] = float32(raw)/float32(math.MaxUint32) - 0.5
		norm += float64(v[i]) * float64(v[i])
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range v {
			v[i] = float32(float64(v[i]) / norm)
		}
	}
	return v
}
