// Package fusion merges lexical and semantic rankings into one ordered
// result list.
package fusion

import (
	"fmt"
	"sort"

	"github.com/locus-search/locus/internal/models"
)

// DefaultRRFK is the reciprocal rank fusion smoothing constant. k=60 is the
// standard choice across search engines.
const DefaultRRFK = 60

// Candidate is one entry of an input ranking, ordered best-first.
type Candidate struct {
	ChunkID string
	Score   float64
}

// Result is a fused chunk with its combined score and the per-signal
// contribution breakdown.
type Result struct {
	ChunkID   string
	Score     float64
	Breakdown models.Breakdown
}

// Fuser combines a lexical and a semantic ranking. Both policies produce a
// strict total order: equal scores fall back to chunk insertion order, via
// the seq lookup.
type Fuser struct {
	K   int
	Seq func(chunkID string) int
}

// New creates a Fuser with the default RRF constant. seq maps a chunk ID to
// its global insertion sequence and is used for deterministic tie-breaking;
// unknown IDs should return a large value.
func New(seq func(chunkID string) int) *Fuser {
	return &Fuser{K: DefaultRRFK, Seq: seq}
}

// Fuse merges the two rankings under the given policy. A chunk present in
// either ranking is eligible; one present in both reflects both
// contributions. bias is only consulted by the blend policy.
func (f *Fuser) Fuse(policy models.FusionPolicy, lexical, semantic []Candidate, bias float64) ([]*Result, error) {
	switch policy {
	case models.FusionRRF:
		return f.fuseRRF(lexical, semantic), nil
	case models.FusionBlend:
		return f.fuseBlend(lexical, semantic, bias), nil
	default:
		return nil, fmt.Errorf("unknown fusion policy %q", policy)
	}
}

// fuseRRF scores each chunk as the sum of 1/(K+rank) over the rankings it
// appears in. Absence from a ranking contributes nothing. Scores are
// rank-derived; only relative order is meaningful.
func (f *Fuser) fuseRRF(lexical, semantic []Candidate) []*Result {
	merged := f.collect(lexical, semantic)
	for _, r := range merged {
		if r.Breakdown.LexicalRank > 0 {
			r.Score += 1.0 / float64(f.K+r.Breakdown.LexicalRank)
		}
		if r.Breakdown.SemanticRank > 0 {
			r.Score += 1.0 / float64(f.K+r.Breakdown.SemanticRank)
		}
	}
	f.order(merged)
	return merged
}

// fuseBlend normalizes each ranking to 0-1 percentiles and combines them
// linearly: bias weights the lexical percentile, 1-bias the semantic one.
// A chunk absent from a ranking takes percentile 0 for it, so bias=1.0
// reproduces the lexical order and bias=0.0 the semantic order.
func (f *Fuser) fuseBlend(lexical, semantic []Candidate, bias float64) []*Result {
	merged := f.collect(lexical, semantic)
	nLex := len(lexical)
	nSem := len(semantic)
	for _, r := range merged {
		var lexPct, semPct float64
		if r.Breakdown.LexicalRank > 0 {
			lexPct = percentile(r.Breakdown.LexicalRank, nLex)
		}
		if r.Breakdown.SemanticRank > 0 {
			semPct = percentile(r.Breakdown.SemanticRank, nSem)
		}
		r.Score = bias*lexPct + (1-bias)*semPct
	}
	f.order(merged)
	return merged
}

// percentile maps a 1-indexed rank within a ranking of n candidates onto
// (0,1], best rank getting 1.0. Strictly decreasing in rank, so percentile
// order agrees with ranking order; 0 is reserved for absence.
func percentile(rank, n int) float64 {
	return float64(n-rank+1) / float64(n)
}

func (f *Fuser) collect(lexical, semantic []Candidate) []*Result {
	byID := make(map[string]*Result, len(lexical)+len(semantic))
	var merged []*Result
	get := func(id string) *Result {
		if r, ok := byID[id]; ok {
			return r
		}
		r := &Result{ChunkID: id}
		byID[id] = r
		merged = append(merged, r)
		return r
	}
	for i, c := range lexical {
		r := get(c.ChunkID)
		r.Breakdown.LexicalScore = c.Score
		r.Breakdown.LexicalRank = i + 1
	}
	for i, c := range semantic {
		r := get(c.ChunkID)
		r.Breakdown.SemanticScore = c.Score
		r.Breakdown.SemanticRank = i + 1
	}
	return merged
}

func (f *Fuser) order(results []*Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return f.Seq(results[i].ChunkID) < f.Seq(results[j].ChunkID)
	})
}
