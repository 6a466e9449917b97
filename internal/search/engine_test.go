package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/locus-search/locus/internal/cache"
	"github.com/locus-search/locus/internal/corpus"
	"github.com/locus-search/locus/internal/embedding"
	"github.com/locus-search/locus/internal/extract"
	"github.com/locus-search/locus/internal/fingerprint"
	"github.com/locus-search/locus/internal/models"
)

type fakeExtractor struct {
	pages map[string][]extract.PageContent
}

func (f *fakeExtractor) Extract(path string) ([]extract.PageContent, error) {
	pages, ok := f.pages[filepath.Base(path)]
	if !ok {
		return nil, &extract.ExtractionError{Path: path, Err: os.ErrNotExist}
	}
	return pages, nil
}

func pad(s string) string {
	return s + strings.Repeat(" filler", 10)
}

// buildSnapshot runs a real build over the fake extractor's pages and
// returns the servable snapshot.
func buildSnapshot(t *testing.T, ex *fakeExtractor, emb embedding.Embedder, mode models.IndexMode, names ...string) *corpus.Snapshot {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(paths[i], []byte(name), 0644))
	}

	store, err := cache.NewStore(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	loader := corpus.NewLoader(ex, nil, fingerprint.ModeMetadata, zap.NewNop())
	orch := corpus.NewOrchestrator(loader, store, emb, "memory", zap.NewNop())
	t.Cleanup(func() { orch.Close() })

	require.NoError(t, orch.Open(context.Background(), paths, models.BuildOptions{Mode: mode}))
	snap := orch.Snapshot()
	require.NotNil(t, snap)
	return snap
}

func franceExtractor() *fakeExtractor {
	return &fakeExtractor{pages: map[string][]extract.PageContent{
		"france.pdf": {
			{Number: 1, Text: pad("the capital of France is Paris")},
			{Number: 2, Text: pad("Paris hosts the famous tower called the Eiffel tower")},
		},
	}}
}

func TestSearchLiteralBiasFindsCapitalPage(t *testing.T) {
	snap := buildSnapshot(t, franceExtractor(), embedding.NewMockEmbedder(64), models.ModeFast, "france.pdf")
	engine := NewEngine(embedding.NewMockEmbedder(64), zap.NewNop())

	resp, err := engine.Search(context.Background(), snap, models.SearchQuery{
		Query:  "capital of France",
		Fusion: models.FusionBlend,
		Bias:   1.0,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, 1, resp.Results[0].Page)
	assert.False(t, resp.SemanticOnly)
}

func TestSearchSemanticBiasFindsTowerPage(t *testing.T) {
	snap := buildSnapshot(t, franceExtractor(), embedding.NewMockEmbedder(64), models.ModeFast, "france.pdf")
	engine := NewEngine(embedding.NewMockEmbedder(64), zap.NewNop())

	resp, err := engine.Search(context.Background(), snap, models.SearchQuery{
		Query:  "famous tower Paris",
		Fusion: models.FusionBlend,
		Bias:   0.0,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, 2, resp.Results[0].Page)
}

func TestSearchRRFCombinesSignals(t *testing.T) {
	snap := buildSnapshot(t, franceExtractor(), embedding.NewMockEmbedder(64), models.ModeFast, "france.pdf")
	engine := NewEngine(embedding.NewMockEmbedder(64), zap.NewNop())

	resp, err := engine.Search(context.Background(), snap, models.SearchQuery{
		Query: "capital of France",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	top := resp.Results[0]
	assert.Equal(t, 1, top.Page)
	assert.Greater(t, top.Breakdown.LexicalRank, 0)
	assert.Greater(t, top.Breakdown.SemanticRank, 0)
}

// hundredChunkExtractor builds 100 one-chunk pages. Page 46 (chunk index 45)
// holds only English stopwords: the lexical analyzer drops them all, so a
// stopword query has zero lexical overlap while the embedding still matches.
func hundredChunkExtractor() *fakeExtractor {
	pages := make([]extract.PageContent, 100)
	for i := range pages {
		pages[i] = extract.PageContent{
			Number: i + 1,
			Text:   pad(fmt.Sprintf("topic%d content about subject%d material", i, i)),
		}
	}
	pages[45].Text = strings.Repeat("of the and to is ", 6)
	return &fakeExtractor{pages: map[string][]extract.PageContent{"big.pdf": pages}}
}

func TestFastModeMissesPurelySemanticMatch(t *testing.T) {
	emb := embedding.NewMockEmbedder(64)
	snap := buildSnapshot(t, hundredChunkExtractor(), emb, models.ModeFast, "big.pdf")
	require.Len(t, snap.Corpus.Chunks, 100)
	engine := NewEngine(emb, zap.NewNop())

	resp, err := engine.Search(context.Background(), snap, models.SearchQuery{
		Query: "of the and to is",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestDeepModeFindsPurelySemanticMatch(t *testing.T) {
	emb := embedding.NewMockEmbedder(64)
	snap := buildSnapshot(t, hundredChunkExtractor(), emb, models.ModeDeep, "big.pdf")
	engine := NewEngine(emb, zap.NewNop())

	resp, err := engine.Search(context.Background(), snap, models.SearchQuery{
		Query: "of the and to is",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, 46, resp.Results[0].Page)
	assert.Equal(t, 0, resp.Results[0].Breakdown.LexicalRank)
}

func TestCrossLingualSemanticOnlyFallback(t *testing.T) {
	emb := embedding.NewMockMultilingualEmbedder(64)
	snap := buildSnapshot(t, franceExtractor(), emb, models.ModeFast, "france.pdf")
	engine := NewEngine(emb, zap.NewNop())

	// No query term survives into the lexical index; with a multilingual
	// model the engine answers from the semantic signal alone.
	resp, err := engine.Search(context.Background(), snap, models.SearchQuery{
		Query: "turmverliebte hauptstadtfrage",
	})
	require.NoError(t, err)
	assert.True(t, resp.SemanticOnly)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.Equal(t, 0, r.Breakdown.LexicalRank)
		assert.Greater(t, r.Breakdown.SemanticRank, 0)
	}
}

func TestKeywordOnlyEngine(t *testing.T) {
	snap := buildSnapshot(t, franceExtractor(), embedding.NewMockEmbedder(64), models.ModeFast, "france.pdf")
	engine := NewEngine(nil, zap.NewNop())

	resp, err := engine.Search(context.Background(), snap, models.SearchQuery{
		Query: "Eiffel tower",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, 2, resp.Results[0].Page)
	assert.Equal(t, 0, resp.Results[0].Breakdown.SemanticRank)
	assert.False(t, resp.SemanticOnly)
}

func TestSearchGroupsByPageWithoutReordering(t *testing.T) {
	snap := buildSnapshot(t, franceExtractor(), embedding.NewMockEmbedder(64), models.ModeFast, "france.pdf")
	engine := NewEngine(embedding.NewMockEmbedder(64), zap.NewNop())

	resp, err := engine.Search(context.Background(), snap, models.SearchQuery{
		Query: "Paris",
		TopK:  10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Groups)

	// The first group owns the overall top result, and group order follows
	// each group's best chunk rank.
	assert.Equal(t, resp.Results[0].ChunkID, resp.Groups[0].Results[0].ChunkID)
	prevBest := 0
	for _, g := range resp.Groups {
		require.NotEmpty(t, g.Results)
		assert.Greater(t, g.Results[0].Rank, prevBest)
		prevBest = g.Results[0].Rank
		for i := 1; i < len(g.Results); i++ {
			assert.Greater(t, g.Results[i].Rank, g.Results[i-1].Rank)
		}
	}
}

func TestSearchValidatesQuery(t *testing.T) {
	snap := buildSnapshot(t, franceExtractor(), embedding.NewMockEmbedder(64), models.ModeFast, "france.pdf")
	engine := NewEngine(embedding.NewMockEmbedder(64), zap.NewNop())

	_, err := engine.Search(context.Background(), snap, models.SearchQuery{Query: ""})
	assert.Error(t, err)

	_, err = engine.Search(context.Background(), snap, models.SearchQuery{Query: "x", Bias: 2})
	assert.Error(t, err)

	_, err = engine.Search(context.Background(), nil, models.SearchQuery{Query: "x"})
	assert.Error(t, err)
}
