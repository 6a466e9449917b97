package embedding

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	a, err := e.Embed(context.Background(), "paris eiffel tower")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(context.Background(), "paris eiffel tower")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding differs at %d", i)
		}
	}
}

func TestMockEmbedder_SharedVocabularyIsCloser(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "capital of france")
	near, _ := e.Embed(ctx, "the capital of france is paris")
	far, _ := e.Embed(ctx, "quarterly revenue spreadsheet totals")
	if dot(q, near) <= dot(q, far) {
		t.Error("overlapping vocabulary should score higher than disjoint")
	}
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i] * b[i])
	}
	return s
}

// countingEmbedder counts inner Embed calls to verify cache hits.
type countingEmbedder struct {
	*MockEmbedder
	calls int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt64(&c.calls, 1)
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt64(&c.calls, int64(len(texts)))
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_AvoidsRecompute(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(32)}
	cached := NewCachedEmbedder(inner, 100)
	ctx := context.Background()

	if _, err := cached.Embed(ctx, "same text"); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.Embed(ctx, "same text"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}

	if _, err := cached.EmbedBatch(ctx, []string{"same text", "new text"}); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("batch should only embed the miss, inner calls = %d", inner.calls)
	}
}

func TestCatalog(t *testing.T) {
	info, ok := Lookup(DefaultModelID)
	if !ok {
		t.Fatalf("default model %s missing from catalog", DefaultModelID)
	}
	if info.Dimensions != 384 {
		t.Errorf("bge-small-en dimensions = %d, want 384", info.Dimensions)
	}
	if IsMultilingual(DefaultModelID) {
		t.Error("bge-small-en should not be multilingual")
	}
	if !IsMultilingual("BAAI/bge-m3") {
		t.Error("bge-m3 should be multilingual")
	}
	if !IsMultilingual("someorg/multilingual-embed") {
		t.Error("name heuristic should mark unknown multilingual models")
	}
	if got := QueryText(DefaultModelID, "x"); got != "query: x" {
		t.Errorf("QueryText = %q", got)
	}
	if got := PassageText("unknown/model", "x"); got != "x" {
		t.Errorf("unknown models get no prefix, got %q", got)
	}
}
