package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExtract_missingFile(t *testing.T) {
	e := NewPDFExtractor()
	_, err := e.Extract(filepath.Join(t.TempDir(), "nope.pdf"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *ExtractionError, got %T: %v", err, err)
	}
	if ee.Path == "" {
		t.Error("ExtractionError should carry the path")
	}
}

func TestExtract_notAPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0600); err != nil {
		t.Fatal(err)
	}

	e := NewPDFExtractor()
	_, err := e.Extract(path)
	if err == nil {
		t.Fatal("expected error for non-PDF content")
	}
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *ExtractionError, got %T: %v", err, err)
	}
}

func TestExtract_truncatedPDFDoesNotPanic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "truncated.pdf")
	// A PDF header with a mangled body: depending on where parsing gives up
	// the library errors or panics, and either way Extract must hand back an
	// *ExtractionError.
	body := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\nxref\n0 droppedhere")
	if err := os.WriteFile(path, body, 0600); err != nil {
		t.Fatal(err)
	}

	e := NewPDFExtractor()
	_, err := e.Extract(path)
	if err == nil {
		t.Fatal("expected error for truncated PDF")
	}
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *ExtractionError, got %T: %v", err, err)
	}
}

func TestExtractionError_Unwrap(t *testing.T) {
	inner := os.ErrNotExist
	err := &ExtractionError{Path: "/x/y.pdf", Err: inner}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("ExtractionError should unwrap to its cause")
	}
}
