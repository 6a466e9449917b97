package lexical

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	index "github.com/blevesearch/bleve_index_api"

	"github.com/locus-search/locus/internal/models"
)

// BleveIndex implements Index using Bleve with BM25 scoring.
type BleveIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	// seq maps chunk ID to its corpus insertion sequence, the deterministic
	// tie-break for equal scores.
	seq map[string]int
}

// chunkDoc is the indexed document shape. Only chunk text is searchable.
type chunkDoc struct {
	Text string `json:"text"`
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.ScoringModel = index.BM25Scoring

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so literal
	// queries match exact words.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	im.DefaultMapping = docMapping
	return im
}

// New creates a lexical index. With an empty path the index lives in memory;
// otherwise it is created on disk at path (the cache layer commits the
// directory atomically).
func New(path string) (*BleveIndex, error) {
	im := newMapping()
	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		idx, err = bleve.New(path, im)
	}
	if err != nil {
		return nil, fmt.Errorf("create lexical index: %w", err)
	}
	return &BleveIndex{index: idx, seq: make(map[string]int)}, nil
}

// Open opens a persisted lexical index snapshot at path. Chunk sequences are
// not stored by Bleve; the caller restores them from the cache manifest via
// SetSequences.
func Open(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("lexical snapshot missing: %w", err)
	}
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}
	return &BleveIndex{index: idx, seq: make(map[string]int)}, nil
}

// SetSequences restores the insertion-sequence tie-break table after opening
// a persisted snapshot.
func (b *BleveIndex) SetSequences(chunks []*models.Chunk) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range chunks {
		b.seq[ch.ID] = ch.Seq
	}
}

// Add indexes a batch of chunks.
func (b *BleveIndex) Add(ctx context.Context, chunks []*models.Chunk) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.index.NewBatch()
	for _, ch := range chunks {
		if err := batch.Index(ch.ID, chunkDoc{Text: ch.Text}); err != nil {
			return fmt.Errorf("batch chunk %s: %w", ch.ID, err)
		}
		b.seq[ch.ID] = ch.Seq
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}
	return nil
}

// RemoveDocument removes the given chunk IDs in one batch.
func (b *BleveIndex) RemoveDocument(ctx context.Context, chunkIDs []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.index.NewBatch()
	for _, id := range chunkIDs {
		batch.Delete(id)
		delete(b.seq, id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("remove chunks: %w", err)
	}
	return nil
}

// Query runs a match query over chunk text and returns up to k results
// ordered by BM25 score, ties broken by insertion sequence.
func (b *BleveIndex) Query(ctx context.Context, text string, k int) ([]*Result, error) {
	if k <= 0 {
		return nil, nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	q := bleve.NewMatchQuery(text)
	q.SetField("text")
	req := bleve.NewSearchRequest(q)
	req.Size = k
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	out := make([]*Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if hit.Score <= 0 {
			continue
		}
		out = append(out, &Result{ChunkID: hit.ID, Score: hit.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return b.seq[out[i].ChunkID] < b.seq[out[j].ChunkID]
	})
	return out, nil
}

// ChunkCount returns the number of indexed chunks.
func (b *BleveIndex) ChunkCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.DocCount()
}

// TermChunkFrequency returns the number of chunks containing term, used by
// corpus statistics tests.
func (b *BleveIndex) TermChunkFrequency(term string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q := bleve.NewTermQuery(term)
	q.SetField("text")
	req := bleve.NewSearchRequest(q)
	req.Size = 0
	res, err := b.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("term frequency: %w", err)
	}
	return int(res.Total), nil
}

// Close closes the underlying Bleve index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}
