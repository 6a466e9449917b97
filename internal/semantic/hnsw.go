package semantic

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWIndex is an approximate nearest-neighbor index backed by an HNSW
// graph. It trades exactness for sublinear search and suits corpora too
// large for brute-force scanning. Deletions are lazy: removed IDs are
// masked at query time and purged on the next full rebuild.
type HNSWIndex struct {
	dimensions int
	graph      *hnsw.Graph[string]
	deleted    map[string]bool
	size       int
	mu         sync.RWMutex
}

type hnswMeta struct {
	Dimensions int
	Deleted    map[string]bool
	Size       int
}

// NewHNSWIndex creates an HNSW index with cosine distance.
func NewHNSWIndex(dimensions int) (*HNSWIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	g := hnsw.NewGraph[string]()
	g.M = 16
	g.EfSearch = 64
	g.Distance = hnsw.CosineDistance
	return &HNSWIndex{
		dimensions: dimensions,
		graph:      g,
		deleted:    make(map[string]bool),
	}, nil
}

func (h *HNSWIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != h.dimensions {
			return &ModelMismatchError{WantDims: h.dimensions, GotDims: len(vectors[i])}
		}
		h.graph.Add(hnsw.MakeNode(id, vectors[i]))
		if h.deleted[id] {
			delete(h.deleted, id)
		} else {
			h.size++
		}
	}
	return nil
}

func (h *HNSWIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if len(query) != h.dimensions {
		return nil, &ModelMismatchError{WantDims: h.dimensions, GotDims: len(query)}
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if k <= 0 || h.size == 0 {
		return nil, nil
	}
	// Over-fetch to compensate for lazily deleted entries in the graph.
	fetch := k + len(h.deleted)
	nodes := h.graph.Search(query, fetch)
	results := make([]*Result, 0, k)
	for _, node := range nodes {
		if h.deleted[node.Key] {
			continue
		}
		results = append(results, &Result{
			ChunkID: node.Key,
			Score:   InnerProduct(query, node.Value),
		})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

func (h *HNSWIndex) Remove(ctx context.Context, ids []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		if !h.deleted[id] {
			h.deleted[id] = true
			h.size--
		}
	}
	return nil
}

// Save persists the graph plus a sidecar meta file holding the deletion
// mask. Both writes are temp-and-rename.
func (h *HNSWIndex) Save(path string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create graph file: %w", err)
	}
	if err := h.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close graph file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit graph file: %w", err)
	}

	metaPath := path + ".meta"
	metaTmp := metaPath + ".tmp"
	mf, err := os.Create(metaTmp)
	if err != nil {
		return fmt.Errorf("create meta file: %w", err)
	}
	meta := hnswMeta{Dimensions: h.dimensions, Deleted: h.deleted, Size: h.size}
	if err := gob.NewEncoder(mf).Encode(&meta); err != nil {
		mf.Close()
		os.Remove(metaTmp)
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := mf.Close(); err != nil {
		os.Remove(metaTmp)
		return fmt.Errorf("close meta file: %w", err)
	}
	if err := os.Rename(metaTmp, metaPath); err != nil {
		os.Remove(metaTmp)
		return fmt.Errorf("commit meta file: %w", err)
	}
	return nil
}

func (h *HNSWIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	mf, err := os.Open(path + ".meta")
	if err != nil {
		return fmt.Errorf("open meta file: %w", err)
	}
	var meta hnswMeta
	decErr := gob.NewDecoder(mf).Decode(&meta)
	mf.Close()
	if decErr != nil {
		return fmt.Errorf("decode meta: %w", decErr)
	}
	if meta.Dimensions != h.dimensions {
		return &ModelMismatchError{WantDims: h.dimensions, GotDims: meta.Dimensions}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open graph file: %w", err)
	}
	defer f.Close()
	g := hnsw.NewGraph[string]()
	g.M = 16
	g.EfSearch = 64
	g.Distance = hnsw.CosineDistance
	if err := g.Import(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph = g
	if meta.Deleted != nil {
		h.deleted = meta.Deleted
	} else {
		h.deleted = make(map[string]bool)
	}
	h.size = meta.Size
	return nil
}

func (h *HNSWIndex) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *HNSWIndex) Dimensions() int { return h.dimensions }

func (h *HNSWIndex) Close() error { return nil }
