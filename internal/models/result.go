package models

// Breakdown records the contribution of each retrieval signal to a result.
// A zero rank means the chunk was absent from that ranking.
type Breakdown struct {
	LexicalScore  float64 `json:"lexical_score"`
	LexicalRank   int     `json:"lexical_rank"`
	SemanticScore float64 `json:"semantic_score"`
	SemanticRank  int     `json:"semantic_rank"`
}

// QueryResult is a single ranked hit. Every result is backed by a chunk.
type QueryResult struct {
	DocumentID   string    `json:"document_id"`
	DocumentPath string    `json:"document_path"`
	Page         int       `json:"page"`
	ChunkID      string    `json:"chunk_id"`
	Snippet      string    `json:"snippet"`
	Score        float64   `json:"score"`
	Rank         int       `json:"rank"`
	Breakdown    Breakdown `json:"breakdown"`
}

// PageGroup collects the results that landed on one (document, page) pair,
// for display. Grouping never changes chunk-level ranking: results inside a
// group keep their fused order, and groups are ordered by their best result.
type PageGroup struct {
	DocumentID   string         `json:"document_id"`
	DocumentPath string         `json:"document_path"`
	Page         int            `json:"page"`
	Results      []*QueryResult `json:"results"`
}

// SearchResponse is the full answer to one search call.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []*QueryResult `json:"results"`
	Groups  []*PageGroup   `json:"groups"`
	// SemanticOnly is set when lexical overlap was structurally impossible
	// (cross-lingual query against a multilingual model) and results come
	// from the semantic signal alone.
	SemanticOnly bool  `json:"semantic_only,omitempty"`
	QueryTimeMS  int64 `json:"query_time_ms"`
}

// GroupByPage groups ranked results by (document, page) preserving order.
func GroupByPage(results []*QueryResult) []*PageGroup {
	var groups []*PageGroup
	byKey := make(map[string]*PageGroup)
	for _, r := range results {
		key := ChunkID(r.DocumentID, r.Page, 0)
		g, ok := byKey[key]
		if !ok {
			g = &PageGroup{
				DocumentID:   r.DocumentID,
				DocumentPath: r.DocumentPath,
				Page:         r.Page,
			}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.Results = append(g.Results, r)
	}
	return groups
}
