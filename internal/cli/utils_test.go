package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/locus-search/locus/internal/models"
)

func sampleResponse() *models.SearchResponse {
	results := []*models.QueryResult{
		{
			DocumentID:   "doc-1",
			DocumentPath: "/corpus/report.pdf",
			Page:         3,
			ChunkID:      "doc-1:3:0",
			Snippet:      "the capital of France is Paris",
			Score:        0.9,
			Rank:         1,
			Breakdown: models.Breakdown{
				LexicalScore:  1.2,
				LexicalRank:   1,
				SemanticScore: 0.8,
				SemanticRank:  2,
			},
		},
		{
			DocumentID:   "doc-1",
			DocumentPath: "/corpus/report.pdf",
			Page:         7,
			ChunkID:      "doc-1:7:1",
			Snippet:      "Paris hosts the Eiffel tower",
			Score:        0.4,
			Rank:         2,
			Breakdown: models.Breakdown{
				SemanticScore: 0.7,
				SemanticRank:  1,
			},
		},
	}
	return &models.SearchResponse{
		Query:       "capital of France",
		Results:     results,
		Groups:      models.GroupByPage(results),
		QueryTimeMS: 42,
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	err := WriteSearchResults(&buf, response, OutputJSON)
	if err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != response.Query || decoded.QueryTimeMS != response.QueryTimeMS {
		t.Errorf("decoded query=%q query_time_ms=%d, want query=%q query_time_ms=%d",
			decoded.Query, decoded.QueryTimeMS, response.Query, response.QueryTimeMS)
	}
	if len(decoded.Results) != 2 || decoded.Results[0].ChunkID != "doc-1:3:0" {
		t.Errorf("decoded results: want two results with first chunk doc-1:3:0, got %+v", decoded.Results)
	}
	if len(decoded.Groups) != 2 || decoded.Groups[0].Page != 3 {
		t.Errorf("decoded groups: want two groups with first page 3, got %+v", decoded.Groups)
	}
}

func TestWriteSearchResults_JSON_empty(t *testing.T) {
	response := &models.SearchResponse{Query: "q"}
	var buf bytes.Buffer
	err := WriteSearchResults(&buf, response, OutputJSON)
	if err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("empty response JSON decode: %v", err)
	}
	if len(decoded.Results) != 0 || decoded.SemanticOnly {
		t.Errorf("expected empty response, got %+v", decoded)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	err := WriteSearchResults(&buf, response, OutputText)
	if err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 2 results", "42ms", "/corpus/report.pdf (page 3)", "(page 7)", "#1", "#2", "capital of France is Paris", "Eiffel tower"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
	if strings.Contains(out, "semantic-only") {
		t.Errorf("unexpected semantic-only notice:\n%s", out)
	}
}

func TestWriteSearchResults_text_semanticOnly(t *testing.T) {
	response := sampleResponse()
	response.SemanticOnly = true
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	if !strings.Contains(buf.String(), "semantic-only") {
		t.Errorf("text output missing semantic-only notice:\n%s", buf.String())
	}
}

func TestWriteSearchResults_text_absentRankShownAsDash(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	// The second result was absent from the lexical ranking.
	if !strings.Contains(buf.String(), "lexical 0.0000 @-") {
		t.Errorf("text output missing dash for absent lexical rank:\n%s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate short: got %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("Truncate long: got %q", got)
	}
	if got := Truncate("hello", 0); got != "hello" {
		t.Errorf("Truncate zero max: got %q", got)
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("one two three", 5); got != "one two three" {
		t.Errorf("TruncateWords short: got %q", got)
	}
	if got := TruncateWords("one two three four", 2); got != "one two..." {
		t.Errorf("TruncateWords long: got %q", got)
	}
}
