package fusion

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locus-search/locus/internal/models"
)

// seqFromID parses "cN" chunk IDs so insertion order follows the numeral.
func seqFromID(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "c"))
	if err != nil {
		return 1 << 30
	}
	return n
}

func candidates(ids ...string) []Candidate {
	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = Candidate{ChunkID: id, Score: float64(len(ids) - i)}
	}
	return out
}

func order(results []*Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ChunkID
	}
	return ids
}

func TestRRFBothListsBeatsSingleList(t *testing.T) {
	f := New(seqFromID)
	// c1 is #1 in both rankings.
	lex := []Candidate{{ChunkID: "c1", Score: 5}, {ChunkID: "c2", Score: 4}}
	sem := []Candidate{{ChunkID: "c1", Score: 0.9}, {ChunkID: "c3", Score: 0.8}}

	results, err := f.Fuse(models.FusionRRF, lex, sem, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "c1", results[0].ChunkID)

	// A top hit in both rankings must strictly beat a top hit in one.
	soloTop, err := f.Fuse(models.FusionRRF,
		[]Candidate{{ChunkID: "c2", Score: 4}},
		nil, 0)
	require.NoError(t, err)
	assert.Greater(t, results[0].Score, soloTop[0].Score)
}

func TestRRFAbsentRankingContributesZero(t *testing.T) {
	f := New(seqFromID)
	results, err := f.Fuse(models.FusionRRF,
		[]Candidate{{ChunkID: "c1", Score: 2}},
		nil, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0/float64(DefaultRRFK+1), results[0].Score, 1e-12)
	assert.Equal(t, 1, results[0].Breakdown.LexicalRank)
	assert.Equal(t, 0, results[0].Breakdown.SemanticRank)
}

func TestBlendPureLexicalReproducesLexicalOrder(t *testing.T) {
	f := New(seqFromID)
	lex := candidates("c3", "c1", "c4")
	sem := candidates("c4", "c3", "c2")

	results, err := f.Fuse(models.FusionBlend, lex, sem, 1.0)
	require.NoError(t, err)
	// Lexical order first; semantic-only chunks trail with score 0.
	assert.Equal(t, []string{"c3", "c1", "c4", "c2"}, order(results))
}

func TestBlendPureSemanticReproducesSemanticOrder(t *testing.T) {
	f := New(seqFromID)
	lex := candidates("c3", "c1", "c4")
	sem := candidates("c4", "c3", "c2")

	results, err := f.Fuse(models.FusionBlend, lex, sem, 0.0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c4", "c3", "c2", "c1"}, order(results))
}

func TestBlendAbsentLegGetsZeroNotDisqualified(t *testing.T) {
	f := New(seqFromID)
	results, err := f.Fuse(models.FusionBlend,
		[]Candidate{{ChunkID: "c1", Score: 3}},
		[]Candidate{{ChunkID: "c2", Score: 0.5}},
		0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Both eligible, each with half its leg's top percentile.
	assert.InDelta(t, 0.5, results[0].Score, 1e-12)
	assert.InDelta(t, 0.5, results[1].Score, 1e-12)
	// Equal scores fall back to insertion order.
	assert.Equal(t, []string{"c1", "c2"}, order(results))
}

func TestFuseTieBreakByInsertionOrder(t *testing.T) {
	f := New(seqFromID)
	// Same ranks in mirrored positions produce identical RRF scores.
	lex := []Candidate{{ChunkID: "c9", Score: 2}, {ChunkID: "c2", Score: 1}}
	sem := []Candidate{{ChunkID: "c2", Score: 0.9}, {ChunkID: "c9", Score: 0.8}}

	results, err := f.Fuse(models.FusionRRF, lex, sem, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, results[0].Score, results[1].Score, 1e-12)
	assert.Equal(t, "c2", results[0].ChunkID)
}

func TestFuseBothContributionsRecorded(t *testing.T) {
	f := New(seqFromID)
	results, err := f.Fuse(models.FusionRRF,
		[]Candidate{{ChunkID: "c1", Score: 7.5}},
		[]Candidate{{ChunkID: "c1", Score: 0.93}},
		0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	b := results[0].Breakdown
	assert.Equal(t, 7.5, b.LexicalScore)
	assert.Equal(t, 1, b.LexicalRank)
	assert.Equal(t, 0.93, b.SemanticScore)
	assert.Equal(t, 1, b.SemanticRank)
}

func TestFuseUnknownPolicy(t *testing.T) {
	f := New(seqFromID)
	_, err := f.Fuse(models.FusionPolicy("vote"), nil, nil, 0)
	assert.Error(t, err)
}
