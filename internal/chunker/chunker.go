// Package chunker splits page text into overlapping chunks with page
// provenance. Chunking is pure and deterministic: identical input always
// yields byte-identical chunks, which the index cache relies on.
package chunker

import (
	"strings"
	"unicode"

	"github.com/locus-search/locus/internal/models"
)

// sentence terminators, Latin and CJK.
func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '\n', '。', '！', '？', '；':
		return true
	}
	return false
}

// Chunk splits pageText into overlapping windows of about targetSize runes
// with the given overlap. Windows prefer to end on a sentence boundary, then
// on whitespace, and hard-split only for pathological unbroken runs. Spans
// are byte offsets into pageText and chunk text is the exact slice
// pageText[Start:End]. Empty or whitespace-only text yields no chunks.
//
// DocumentID and Seq are left for the corpus loader to fill in.
func Chunk(pageText string, pageNumber, targetSize, overlap int) []*models.Chunk {
	if strings.TrimSpace(pageText) == "" {
		return nil
	}
	if targetSize <= 0 {
		targetSize = 800
	}
	if overlap < 0 || overlap >= targetSize {
		overlap = targetSize / 8
	}

	runes := []rune(pageText)
	// byte offset of each rune index, plus the end offset
	offs := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		offs[i] = pos
		pos += len(string(r))
	}
	offs[len(runes)] = len(pageText)

	var chunks []*models.Chunk
	index := 0
	start := 0
	for start < len(runes) {
		end := start + targetSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = cutPoint(runes, start, end, targetSize)
		}
		text := pageText[offs[start]:offs[end]]
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, &models.Chunk{
				ID:    "", // filled once the owning document is known
				Page:  pageNumber,
				Start: offs[start],
				End:   offs[end],
				Text:  text,
				Index: index,
			})
			index++
		}
		if end >= len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// cutPoint chooses where to end the window [start, hardEnd): the latest
// sentence boundary in the back half, else the latest whitespace, else the
// hard limit itself.
func cutPoint(runes []rune, start, hardEnd, targetSize int) int {
	floor := start + targetSize/2
	for i := hardEnd; i > floor; i-- {
		if isSentenceEnd(runes[i-1]) {
			return i
		}
	}
	for i := hardEnd; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return hardEnd
}
