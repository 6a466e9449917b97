// Package semantic provides embedding vector indexes and similarity search.
package semantic

import (
	"context"
	"fmt"
)

// Result is a single semantic hit: a chunk and its cosine similarity.
type Result struct {
	ChunkID string
	Score   float64
}

// Index stores chunk embeddings and answers nearest-neighbor queries.
// Vectors are unit-normalized, so inner product equals cosine similarity.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Close() error
}

// ModelMismatchError reports that persisted vectors belong to a different
// embedding model (or dimensionality) than the one configured. The semantic
// index must be rebuilt, never reinterpreted; the lexical index is unaffected.
type ModelMismatchError struct {
	WantModel string
	GotModel  string
	WantDims  int
	GotDims   int
}

func (e *ModelMismatchError) Error() string {
	if e.WantModel != "" || e.GotModel != "" {
		return fmt.Sprintf("embedding model mismatch: index built with %q, configured %q", e.GotModel, e.WantModel)
	}
	return fmt.Sprintf("embedding dimension mismatch: index has %d, configured %d", e.GotDims, e.WantDims)
}

// InnerProduct computes the dot product of two equal-length vectors in
// float64 for stable accumulation.
func InnerProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
