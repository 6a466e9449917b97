// Package search serves queries against a corpus snapshot, combining
// lexical and semantic retrieval through the fusion layer.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/locus-search/locus/internal/corpus"
	"github.com/locus-search/locus/internal/embedding"
	"github.com/locus-search/locus/internal/fusion"
	"github.com/locus-search/locus/internal/lexical"
	"github.com/locus-search/locus/internal/models"
	"github.com/locus-search/locus/internal/semantic"
)

// crossLingualSample bounds the fast-mode fallback when lexical overlap is
// structurally impossible: the first chunks in insertion order are embedded
// and ranked semantically. The sample is deterministic, not random, so
// repeated queries agree.
const crossLingualSample = 100

// Engine answers search queries against snapshots. A nil embedder degrades
// the engine to keyword-only operation.
type Engine struct {
	embedder embedding.Embedder
	logger   *zap.Logger
}

// NewEngine creates a search engine.
func NewEngine(embedder embedding.Embedder, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{embedder: embedder, logger: logger}
}

// Search runs one query against the snapshot. Ranking is computed at chunk
// granularity; page grouping happens after and never reorders chunks.
func (e *Engine) Search(ctx context.Context, snap *corpus.Snapshot, q models.SearchQuery) (*models.SearchResponse, error) {
	if snap == nil {
		return nil, fmt.Errorf("no index loaded")
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	lexResults, err := snap.Lexical.Query(ctx, q.Query, q.Candidates)
	if err != nil {
		return nil, fmt.Errorf("lexical query: %w", err)
	}
	lexCands := make([]fusion.Candidate, len(lexResults))
	for i, r := range lexResults {
		lexCands[i] = fusion.Candidate{ChunkID: r.ChunkID, Score: r.Score}
	}

	if e.embedder == nil {
		// Keyword-only operation: no model loaded, serve the BM25 ranking.
		resp := e.respond(snap, q, e.lexicalOnly(lexCands, q.TopK), false, start)
		return resp, nil
	}

	semanticOnly := len(lexCands) == 0 && embedding.IsMultilingual(e.embedder.ModelID())

	var semCands []fusion.Candidate
	if semanticOnly {
		semCands, err = e.semanticSweep(ctx, snap, q)
	} else {
		semCands, err = e.semanticLeg(ctx, snap, q, lexResults)
	}
	if err != nil {
		return nil, err
	}

	var fused []*fusion.Result
	if semanticOnly {
		fused = e.semanticOnlyResults(semCands)
	} else {
		fuser := fusion.New(snap.Corpus.Seq)
		fused, err = fuser.Fuse(q.Fusion, lexCands, semCands, q.Bias)
		if err != nil {
			return nil, err
		}
	}

	if len(fused) > q.TopK {
		fused = fused[:q.TopK]
	}
	resp := e.respond(snap, q, fused, semanticOnly, start)

	e.logger.Debug("query served",
		zap.String("query", q.Query),
		zap.Int("lexical_candidates", len(lexCands)),
		zap.Int("semantic_candidates", len(semCands)),
		zap.Bool("semantic_only", semanticOnly),
		zap.Int64("elapsed_ms", resp.QueryTimeMS))
	return resp, nil
}

// semanticLeg produces the semantic ranking for fusion. In deep mode it
// queries the prebuilt vector index; in fast mode it embeds only the BM25
// candidates on demand, so chunks the lexical stage never surfaced stay
// unembedded.
func (e *Engine) semanticLeg(ctx context.Context, snap *corpus.Snapshot, q models.SearchQuery, lexResults []*lexical.Result) ([]fusion.Candidate, error) {
	qvec, err := e.embedder.Embed(ctx, embedding.QueryText(e.embedder.ModelID(), q.Query))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if snap.Options.Mode == models.ModeDeep && snap.Semantic != nil {
		hits, err := snap.Semantic.Search(ctx, qvec, q.Candidates)
		if err != nil {
			return nil, fmt.Errorf("semantic query: %w", err)
		}
		out := make([]fusion.Candidate, len(hits))
		for i, h := range hits {
			out[i] = fusion.Candidate{ChunkID: h.ChunkID, Score: h.Score}
		}
		return out, nil
	}

	ids := make([]string, 0, len(lexResults))
	for _, r := range lexResults {
		ids = append(ids, r.ChunkID)
	}
	return e.rankByEmbedding(ctx, snap, qvec, ids)
}

// semanticSweep is the fast-mode cross-lingual fallback: rank a bounded,
// deterministic sample of the corpus purely semantically. Deep mode uses the
// full vector index instead.
func (e *Engine) semanticSweep(ctx context.Context, snap *corpus.Snapshot, q models.SearchQuery) ([]fusion.Candidate, error) {
	qvec, err := e.embedder.Embed(ctx, embedding.QueryText(e.embedder.ModelID(), q.Query))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if snap.Options.Mode == models.ModeDeep && snap.Semantic != nil {
		hits, err := snap.Semantic.Search(ctx, qvec, q.Candidates)
		if err != nil {
			return nil, fmt.Errorf("semantic query: %w", err)
		}
		out := make([]fusion.Candidate, len(hits))
		for i, h := range hits {
			out[i] = fusion.Candidate{ChunkID: h.ChunkID, Score: h.Score}
		}
		return out, nil
	}

	n := len(snap.Corpus.Chunks)
	if n > crossLingualSample {
		n = crossLingualSample
	}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = snap.Corpus.Chunks[i].ID
	}
	cands, err := e.rankByEmbedding(ctx, snap, qvec, ids)
	if err != nil {
		return nil, err
	}
	if len(cands) > q.Candidates {
		cands = cands[:q.Candidates]
	}
	return cands, nil
}

// rankByEmbedding embeds the given chunks and orders them by cosine
// similarity to the query vector, ties broken by insertion sequence.
func (e *Engine) rankByEmbedding(ctx context.Context, snap *corpus.Snapshot, qvec []float32, ids []string) ([]fusion.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	texts := make([]string, len(ids))
	for i, id := range ids {
		ch := snap.Corpus.ChunkByID(id)
		if ch == nil {
			return nil, fmt.Errorf("unknown chunk %s", id)
		}
		texts[i] = embedding.PassageText(e.embedder.ModelID(), ch.Text)
	}
	vecs, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed candidates: %w", err)
	}

	cands := make([]fusion.Candidate, len(ids))
	for i, id := range ids {
		cands[i] = fusion.Candidate{ChunkID: id, Score: semantic.InnerProduct(qvec, vecs[i])}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return snap.Corpus.Seq(cands[i].ChunkID) < snap.Corpus.Seq(cands[j].ChunkID)
	})
	return cands, nil
}

func (e *Engine) lexicalOnly(lexCands []fusion.Candidate, topK int) []*fusion.Result {
	if len(lexCands) > topK {
		lexCands = lexCands[:topK]
	}
	out := make([]*fusion.Result, len(lexCands))
	for i, c := range lexCands {
		out[i] = &fusion.Result{
			ChunkID: c.ChunkID,
			Score:   c.Score,
			Breakdown: models.Breakdown{
				LexicalScore: c.Score,
				LexicalRank:  i + 1,
			},
		}
	}
	return out
}

func (e *Engine) semanticOnlyResults(semCands []fusion.Candidate) []*fusion.Result {
	out := make([]*fusion.Result, len(semCands))
	for i, c := range semCands {
		out[i] = &fusion.Result{
			ChunkID: c.ChunkID,
			Score:   c.Score,
			Breakdown: models.Breakdown{
				SemanticScore: c.Score,
				SemanticRank:  i + 1,
			},
		}
	}
	return out
}

func (e *Engine) respond(snap *corpus.Snapshot, q models.SearchQuery, fused []*fusion.Result, semanticOnly bool, start time.Time) *models.SearchResponse {
	results := make([]*models.QueryResult, 0, len(fused))
	for i, f := range fused {
		ch := snap.Corpus.ChunkByID(f.ChunkID)
		if ch == nil {
			continue
		}
		var path string
		if doc := snap.Corpus.DocumentByID(ch.DocumentID); doc != nil {
			path = doc.Path
		}
		results = append(results, &models.QueryResult{
			DocumentID:   ch.DocumentID,
			DocumentPath: path,
			Page:         ch.Page,
			ChunkID:      ch.ID,
			Snippet:      Snippet(ch.Text, q.Query),
			Score:        f.Score,
			Rank:         i + 1,
			Breakdown:    f.Breakdown,
		})
	}
	return &models.SearchResponse{
		Query:        q.Query,
		Results:      results,
		Groups:       models.GroupByPage(results),
		SemanticOnly: semanticOnly,
		QueryTimeMS:  time.Since(start).Milliseconds(),
	}
}
