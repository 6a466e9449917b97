package models

import "fmt"

// IndexMode selects the semantic indexing strategy.
type IndexMode string

const (
	// ModeFast defers embedding to query time: only BM25 candidates are
	// embedded and compared. Cheap to build, can miss purely-semantic hits.
	ModeFast IndexMode = "fast"
	// ModeDeep embeds every chunk at build time for exhaustive semantic
	// search.
	ModeDeep IndexMode = "deep"
)

// FusionPolicy selects how lexical and semantic rankings are merged.
type FusionPolicy string

const (
	// FusionRRF is reciprocal rank fusion; scores are rank-derived and only
	// relative order is meaningful.
	FusionRRF FusionPolicy = "rrf"
	// FusionBlend is the percentile blend: per-ranking percentiles combined
	// linearly by the literal bias.
	FusionBlend FusionPolicy = "blend"
)

// BuildOptions are the immutable per-build parameters. They are part of the
// index cache key: any change is treated as a fingerprint mismatch.
type BuildOptions struct {
	Mode         IndexMode `json:"mode" yaml:"mode"`
	ModelID      string    `json:"model_id" yaml:"model_id"`
	OCREnabled   bool      `json:"ocr_enabled" yaml:"ocr_enabled"`
	ChunkSize    int       `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int       `json:"chunk_overlap" yaml:"chunk_overlap"`
}

// Validate checks mode and chunk parameters, applying defaults for zero values.
func (o *BuildOptions) Validate() error {
	if o.Mode == "" {
		o.Mode = ModeFast
	}
	if o.Mode != ModeFast && o.Mode != ModeDeep {
		return fmt.Errorf("unknown index mode %q", o.Mode)
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 800
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = o.ChunkSize / 8
	}
	return nil
}

// SearchQuery is an immutable per-call query configuration.
type SearchQuery struct {
	Query string `json:"query"`
	// TopK is the number of final results (default 5).
	TopK int `json:"top_k,omitempty"`
	// Bias weights lexical vs semantic evidence: 1 = pure literal,
	// 0 = pure semantic. Only the blend policy uses it directly.
	Bias float64 `json:"bias"`
	// Fusion selects the fusion policy (default rrf).
	Fusion FusionPolicy `json:"fusion,omitempty"`
	// Candidates is the BM25 candidate count for fast mode (default 20).
	Candidates int `json:"candidates,omitempty"`
}

// Validate ensures the query has valid fields and applies defaults.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.TopK <= 0 {
		q.TopK = 5
	}
	if q.TopK > 100 {
		q.TopK = 100
	}
	if q.Bias < 0 || q.Bias > 1 {
		return fmt.Errorf("bias must be in [0,1], got %g", q.Bias)
	}
	switch q.Fusion {
	case "":
		q.Fusion = FusionRRF
	case FusionRRF, FusionBlend:
	default:
		return fmt.Errorf("unknown fusion policy %q", q.Fusion)
	}
	if q.Candidates <= 0 {
		q.Candidates = 20
	}
	return nil
}
