// Package models defines core data structures for documents, pages, chunks, and search results.
package models

import "time"

// Document is a single PDF in the corpus. Identity is the file path plus a
// content fingerprint; a changed fingerprint invalidates all derived pages.
type Document struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Fingerprint string    `json:"fingerprint"`
	Pages       []*Page   `json:"pages"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Page is one page of a document. Pages are immutable once extracted for a
// given document fingerprint. Number is 1-based.
type Page struct {
	Number    int    `json:"number"`
	Text      string `json:"text"`
	HasImages bool   `json:"has_images"`
	// ImageHeavy marks pages whose extracted text density is below the
	// configured threshold (OCR candidates in fast mode).
	ImageHeavy bool `json:"image_heavy"`
	// OCRText holds recognized text once OCR has run for this page.
	OCRText string `json:"ocr_text,omitempty"`
}

// EffectiveText returns the text the chunker sees: extracted text, with OCR
// output appended when present.
func (p *Page) EffectiveText() string {
	if p.OCRText == "" {
		return p.Text
	}
	if p.Text == "" {
		return p.OCRText
	}
	return p.Text + "\n" + p.OCRText
}
