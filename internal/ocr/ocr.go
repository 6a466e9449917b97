// Package ocr decides when text recognition runs and caches its output.
// The recognizer itself is an external collaborator.
package ocr

import (
	"context"
	"fmt"

	"github.com/locus-search/locus/internal/models"
)

// Recognizer extracts text from a rasterized page image.
type Recognizer interface {
	Recognize(ctx context.Context, pageImage []byte) (string, error)
	Close() error
}

// RecognitionError reports an OCR failure on one page. The page degrades to
// extracted text only; the build continues.
type RecognitionError struct {
	DocumentID string
	Page       int
	Err        error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("ocr failed for %s page %d: %v", e.DocumentID, e.Page, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// DefaultDensityThreshold is the character count under which a page counts
// as image-heavy in fast mode.
const DefaultDensityThreshold = 100

// Policy decides which pages are sent to the recognizer.
type Policy struct {
	// DensityThreshold is the extracted-text length below which a page is
	// considered low-density.
	DensityThreshold int
}

// NewPolicy returns a policy with the default density threshold.
func NewPolicy() *Policy {
	return &Policy{DensityThreshold: DefaultDensityThreshold}
}

// ShouldRecognize reports whether OCR should run for the page under the
// given index mode. Fast mode recognizes only low-density pages that embed
// images; deep mode recognizes every page with images.
func (p *Policy) ShouldRecognize(page *models.Page, mode models.IndexMode) bool {
	if !page.HasImages {
		return false
	}
	if mode == models.ModeDeep {
		return true
	}
	return len(page.Text) < p.DensityThreshold
}
