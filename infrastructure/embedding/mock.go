// Package embedding provides the embedding backends: a deterministic
// mock generator and a resilience decorator for injected providers.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
)

// DefaultDimensions is the vector size of the mock generator.
const DefaultDimensions = 64

// MockProvider generates deterministic pseudo-random unit vectors from
// the input text. Equal texts always embed to equal vectors, which is
// enough for tests and for offline operation.
type MockProvider struct {
	dimensions int
}

// NewMockProvider creates a mock generator. A non-positive dimension
// falls back to the default.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &MockProvider{dimensions: dimensions}
}

// EmbedTexts derives one unit vector per text.
func (m *MockProvider) EmbedTexts(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = m.embed(t)
	}
	return out, nil
}

func (m *MockProvider) embed(text string) []float64 {
	sum := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	rng := rand.New(rand.NewSource(seed))

	v := make([]float64, m.dimensions)
	var norm float64
	for i := range v {
		v[i] = rng.Float64()*2 - 1
		norm += v[i] * v[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}
