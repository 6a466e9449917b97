package semantic

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(vals ...float32) []float32 {
	var norm float64
	for _, v := range vals {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func TestMemoryIndexSearchOrder(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	err = idx.Add(ctx,
		[]string{"a", "b", "c"},
		[][]float32{
			unit(1, 0, 0),
			unit(0, 1, 0),
			unit(1, 1, 0),
		})
	require.NoError(t, err)

	results, err := idx.Search(ctx, unit(1, 0.1, 0), 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.Equal(t, "c", results[1].ChunkID)
	assert.Equal(t, "b", results[2].ChunkID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryIndexTieBreakInsertionOrder(t *testing.T) {
	idx, err := NewMemoryIndex(2)
	require.NoError(t, err)

	ctx := context.Background()
	// Identical vectors score identically; earlier insertion wins.
	v := unit(1, 1)
	require.NoError(t, idx.Add(ctx, []string{"second", "first"}, [][]float32{v, v}))

	results, err := idx.Search(ctx, unit(1, 1), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "second", results[0].ChunkID)
	assert.Equal(t, "first", results[1].ChunkID)
}

func TestMemoryIndexRemove(t *testing.T) {
	idx, err := NewMemoryIndex(2)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, idx.Add(ctx,
		[]string{"keep", "drop"},
		[][]float32{unit(1, 0), unit(0, 1)}))
	require.NoError(t, idx.Remove(ctx, []string{"drop"}))
	assert.Equal(t, 1, idx.Size())

	results, err := idx.Search(ctx, unit(0, 1), 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "keep", results[0].ChunkID)
}

func TestMemoryIndexSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")

	idx, err := NewMemoryIndex(3)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx,
		[]string{"doc:x:p1:c0", "doc:x:p2:c0"},
		[][]float32{unit(1, 2, 3), unit(3, 2, 1)}))
	require.NoError(t, idx.Save(path))

	loaded, err := NewMemoryIndex(3)
	require.NoError(t, err)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 2, loaded.Size())

	want, err := idx.Search(ctx, unit(1, 2, 3), 2)
	require.NoError(t, err)
	got, err := loaded.Search(ctx, unit(1, 2, 3), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, want[0].ChunkID, got[0].ChunkID)
	assert.InDelta(t, want[0].Score, got[0].Score, 1e-6)
}

func TestMemoryIndexLoadDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")

	idx, err := NewMemoryIndex(4)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(),
		[]string{"a"}, [][]float32{unit(1, 0, 0, 0)}))
	require.NoError(t, idx.Save(path))

	other, err := NewMemoryIndex(8)
	require.NoError(t, err)
	err = other.Load(path)
	require.Error(t, err)
	var mismatch *ModelMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 8, mismatch.WantDims)
	assert.Equal(t, 4, mismatch.GotDims)
}

func TestMemoryIndexLoadRejectsOversizedIDLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")

	// Valid header (dims=3, n=1) followed by an absurd ID length.
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(3)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(1)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0xFFFFFFFF)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	idx, err := NewMemoryIndex(3)
	require.NoError(t, err)
	err = idx.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read id len")
	assert.Equal(t, 0, idx.Size())
}

func TestHNSWIndexSearch(t *testing.T) {
	idx, err := NewHNSWIndex(3)
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	require.NoError(t, idx.Add(ctx,
		[]string{"a", "b", "c"},
		[][]float32{
			unit(1, 0, 0),
			unit(0, 1, 0),
			unit(0, 0, 1),
		}))
	assert.Equal(t, 3, idx.Size())

	results, err := idx.Search(ctx, unit(1, 0.1, 0), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestHNSWIndexLazyRemove(t *testing.T) {
	idx, err := NewHNSWIndex(2)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, idx.Add(ctx,
		[]string{"a", "b"},
		[][]float32{unit(1, 0), unit(0, 1)}))
	require.NoError(t, idx.Remove(ctx, []string{"a"}))
	assert.Equal(t, 1, idx.Size())

	results, err := idx.Search(ctx, unit(1, 0), 2)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ChunkID)
	}
}

func TestHNSWIndexSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.hnsw")

	idx, err := NewHNSWIndex(3)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx,
		[]string{"a", "b"},
		[][]float32{unit(1, 0, 0), unit(0, 1, 0)}))
	require.NoError(t, idx.Remove(ctx, []string{"b"}))
	require.NoError(t, idx.Save(path))

	loaded, err := NewHNSWIndex(3)
	require.NoError(t, err)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 1, loaded.Size())

	results, err := loaded.Search(ctx, unit(0, 1, 0), 2)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "b", r.ChunkID)
	}
}

func TestFactory(t *testing.T) {
	mem, err := New("memory", 4)
	require.NoError(t, err)
	assert.IsType(t, &MemoryIndex{}, mem)

	def, err := New("", 4)
	require.NoError(t, err)
	assert.IsType(t, &MemoryIndex{}, def)

	approx, err := New("hnsw", 4)
	require.NoError(t, err)
	assert.IsType(t, &HNSWIndex{}, approx)

	_, err = New("faiss", 4)
	assert.Error(t, err)
}
