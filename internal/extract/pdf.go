package extract

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts per-page text and image presence from PDF files.
type PDFExtractor struct{}

// NewPDFExtractor returns a new PDFExtractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract returns the ordered pages of the PDF at path. Pages that fail text
// extraction individually are returned with empty text rather than failing
// the document; only an unreadable file yields an *ExtractionError.
// The pdf library panics on some malformed structures instead of returning an
// error; those panics surface as an *ExtractionError so one corrupt file
// cannot abort a corpus load.
func (e *PDFExtractor) Extract(path string) (pages []PageContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &ExtractionError{Path: path, Err: fmt.Errorf("malformed PDF: %v", r)}
		}
	}()
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: fmt.Errorf("read file: %w", err)}
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: fmt.Errorf("open PDF: %w", err)}
	}
	numPages := r.NumPage()
	pages = make([]PageContent, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		pc := PageContent{Number: i}
		if page.V.IsNull() {
			pages = append(pages, pc)
			continue
		}
		if text, err := page.GetPlainText(nil); err == nil {
			pc.Text = text
		}
		pc.HasImages = pageHasImages(page)
		pages = append(pages, pc)
	}
	return pages, nil
}

// pageHasImages reports whether the page's resource dictionary declares any
// image XObjects.
func pageHasImages(page pdf.Page) bool {
	xobjects := page.V.Key("Resources").Key("XObject")
	if xobjects.IsNull() {
		return false
	}
	for _, name := range xobjects.Keys() {
		obj := xobjects.Key(name)
		if obj.Key("Subtype").Name() == "Image" {
			return true
		}
	}
	return false
}
