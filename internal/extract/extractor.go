// Package extract provides per-page text extraction from documents.
package extract

import "fmt"

// PageContent is the raw output of extraction for one page.
type PageContent struct {
	// Number is the 1-based page number.
	Number int
	// Text is the extracted plain text, possibly empty for image-only pages.
	Text string
	// HasImages reports whether the page contains embedded raster images.
	HasImages bool
}

// PageExtractor yields the ordered pages of a document. Implementations fail
// with *ExtractionError on corrupt or encrypted files; the corpus loader
// skips and reports such documents instead of aborting the whole load.
type PageExtractor interface {
	Extract(path string) ([]PageContent, error)
}

// ExtractionError wraps a per-document extraction failure.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
