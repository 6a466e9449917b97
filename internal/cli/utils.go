// Package cli provides CLI utilities for Locus.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/locus-search/locus/internal/models"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms\n", len(response.Results), response.QueryTimeMS)
	if response.SemanticOnly {
		fmt.Fprintln(w, "(no keyword overlap with the corpus; results are semantic-only)")
	}
	fmt.Fprintln(w)
	for _, group := range response.Groups {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%s (page %d)\n", group.DocumentPath, group.Page)
		for _, result := range group.Results {
			writeOneResult(w, result)
		}
	}
}

func writeOneResult(w io.Writer, result *models.QueryResult) {
	fmt.Fprintf(w, "  #%d  Score: %.4f (lexical %.4f @%s, semantic %.4f @%s)\n",
		result.Rank, result.Score,
		result.Breakdown.LexicalScore, rankLabel(result.Breakdown.LexicalRank),
		result.Breakdown.SemanticScore, rankLabel(result.Breakdown.SemanticRank))
	fmt.Fprintf(w, "      %s\n", Truncate(result.Snippet, 200))
}

func rankLabel(rank int) string {
	if rank == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", rank)
}

// PrintSearchResults prints search results to stdout in text format (backward compatible).
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
