package models

import "fmt"

// Chunk is the unit of indexing and retrieval: a bounded span of one page's
// text. A chunk never spans pages, so a hit can always be opened at its page.
// Chunks are derived deterministically from page text and chunking
// parameters; identical inputs always yield identical chunks.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
	// Start and End are byte offsets of the chunk within the page's
	// effective text (Start inclusive, End exclusive).
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
	// Index is the chunk's position within its page.
	Index int `json:"index"`
	// Seq is the global insertion sequence within the corpus, used as the
	// deterministic tie-break in ranking and fusion.
	Seq int `json:"seq"`
}

// ChunkID builds the deterministic chunk identifier. Chunk IDs must be stable
// across rebuilds of identical input so persisted indexes stay valid.
func ChunkID(docID string, page, index int) string {
	return fmt.Sprintf("%s:p%d:c%d", docID, page, index)
}
