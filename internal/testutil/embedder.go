package testutil

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbedder produces deterministic unit vectors derived from the input
// text. Identical texts map to identical vectors, so similarity search
// behaves predictably in tests without calling a real embedding API.
type MockEmbedder struct {
	Dim int
	// Fail, when set, is returned from every call.
	Fail error
}

// NewMockEmbedder creates a MockEmbedder with the given dimensionality.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{Dim: dim}
}

// EmbedDocuments returns one deterministic vector per input text.
func (m *MockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if m.Fail != nil {
		return nil, m.Fail
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = m.vector(text)
	}
	return vecs, nil
}

// EmbedQuery returns a deterministic vector for the query text.
func (m *MockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if m.Fail != nil {
		return nil, m.Fail
	}
	return m.vector(text), nil
}

// vector hashes the text into a reproducible pseudo-random unit vector.
func (m *MockEmbedder) vector(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, m.Dim)
	var norm float64
	for i := range vec {
		// xorshift64 keeps the sequence reproducible per seed.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float32(int64(seed%2000)-1000) / 1000
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
