package embedding

import (
	"context"
	"math"
)

// MockEmbedder is a deterministic embedder for tests. The same text always
// gets the same unit-length embedding, and texts sharing words land nearby.
type MockEmbedder struct {
	dimensions   int
	modelID      string
	multilingual bool
}

// NewMockEmbedder returns an embedder producing deterministic embeddings of
// the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions, modelID: "mock/test-model"}
}

// NewMockMultilingualEmbedder returns a mock whose model ID registers as
// multilingual, for cross-lingual fallback tests.
func NewMockMultilingualEmbedder(dimensions int) *MockEmbedder {
	m := NewMockEmbedder(dimensions)
	m.modelID = "mock/multilingual-test-model"
	m.multilingual = true
	return m
}

// Embed returns a deterministic embedding: the normalized sum of per-word
// hash vectors, so texts with overlapping vocabulary are similar.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float64, e.dimensions)
	for _, word := range SplitWords(text) {
		h := HashString(word)
		for i := 0; i < e.dimensions; i++ {
			emb[i] += math.Sin(float64(h*(i+3)) * 0.123)
		}
	}
	var sum float64
	for _, v := range emb {
		sum += v * v
	}
	out := make([]float32, e.dimensions)
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i, v := range emb {
			out[i] = float32(v * norm)
		}
	}
	return out, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int { return e.dimensions }

// ModelID returns the mock model identifier.
func (e *MockEmbedder) ModelID() string { return e.modelID }

// Multilingual reports whether this mock pretends to be multilingual.
func (e *MockEmbedder) Multilingual() bool { return e.multilingual }

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error { return nil }
