// Package embedding provides text embedding via ONNX, model metadata, and caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. The model identifier and
// dimensionality are part of the contract: cached vectors are only valid for
// the exact model that produced them.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds many texts in one call; required for build throughput.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelID() string
	Close() error
}
