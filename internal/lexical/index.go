// Package lexical provides the BM25 chunk index.
package lexical

import (
	"context"

	"github.com/locus-search/locus/internal/models"
)

// Result is a single lexical hit: a chunk and its raw BM25 score.
type Result struct {
	ChunkID string
	Score   float64
}

// Searcher is the query-side view of the lexical index.
type Searcher interface {
	// Query returns up to k chunks ranked by BM25 score. Ties are broken by
	// chunk insertion sequence, so ordering is stable across runs.
	Query(ctx context.Context, text string, k int) ([]*Result, error)
}

// Index is the full lexical index contract: chunk-granular BM25 with
// incremental per-document update.
type Index interface {
	Searcher
	// Add indexes a batch of chunks.
	Add(ctx context.Context, chunks []*models.Chunk) error
	// RemoveDocument removes one document's chunks; corpus-wide term
	// statistics are maintained by the underlying index, so this is a true
	// incremental update.
	RemoveDocument(ctx context.Context, chunkIDs []string) error
	ChunkCount() (uint64, error)
	Close() error
}
