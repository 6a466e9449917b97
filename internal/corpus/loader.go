// Package corpus loads documents, derives chunks, and orchestrates index
// builds over them.
package corpus

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/locus-search/locus/internal/cache"
	"github.com/locus-search/locus/internal/chunker"
	"github.com/locus-search/locus/internal/extract"
	"github.com/locus-search/locus/internal/fingerprint"
	"github.com/locus-search/locus/internal/models"
	"github.com/locus-search/locus/internal/ocr"
)

// ErrEmptyCorpus is returned when no document in the corpus could be read.
var ErrEmptyCorpus = errors.New("no readable documents in corpus")

// minPageChars is the effective-text length under which a page is treated as
// empty and contributes no chunks. The page itself stays in the document so
// page numbering is preserved.
const minPageChars = 50

// DefaultWorkers bounds concurrent document processing during a load.
const DefaultWorkers = 4

// Corpus is the in-memory result of one load: documents, their chunks in
// global insertion order, and the documents that had to be skipped.
type Corpus struct {
	Fingerprint string
	Documents   []*models.Document
	Chunks      []*models.Chunk
	Skipped     []cache.SkippedDocument

	byChunk map[string]*models.Chunk
	byDoc   map[string]*models.Document
}

// ChunkByID returns the chunk with the given ID, or nil.
func (c *Corpus) ChunkByID(id string) *models.Chunk { return c.byChunk[id] }

// DocumentByID returns the document with the given ID, or nil.
func (c *Corpus) DocumentByID(id string) *models.Document { return c.byDoc[id] }

// Seq returns the global insertion sequence for a chunk ID; unknown IDs sort
// last.
func (c *Corpus) Seq(chunkID string) int {
	if ch, ok := c.byChunk[chunkID]; ok {
		return ch.Seq
	}
	return int(^uint(0) >> 1)
}

// Loader turns document paths into a Corpus: extraction, optional OCR, and
// chunking. Per-document failures are skipped and reported, never fatal.
type Loader struct {
	extractor   extract.PageExtractor
	ocrProc     *ocr.Processor
	density     int
	fingerprint fingerprint.Mode
	workers     int
	logger      *zap.Logger
}

// NewLoader creates a Loader. ocrProc may be nil to disable recognition
// regardless of build options.
func NewLoader(extractor extract.PageExtractor, ocrProc *ocr.Processor, fpMode fingerprint.Mode, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fpMode == "" {
		fpMode = fingerprint.ModeMetadata
	}
	return &Loader{
		extractor:   extractor,
		ocrProc:     ocrProc,
		density:     ocr.DefaultDensityThreshold,
		fingerprint: fpMode,
		workers:     DefaultWorkers,
		logger:      logger,
	}
}

type loadedDoc struct {
	doc  *models.Document
	skip *cache.SkippedDocument
	// fingerprinted paths count toward the corpus fingerprint even when
	// extraction fails, so the identity matches the cheap pre-load check.
	fingerprinted bool
	path          string
}

// Load extracts and chunks the given documents. Paths are deduplicated and
// sorted so chunk sequence numbers do not depend on argument order.
func (l *Loader) Load(ctx context.Context, paths []string, opts models.BuildOptions) (*Corpus, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	paths = dedupe(paths)
	if len(paths) == 0 {
		return nil, ErrEmptyCorpus
	}

	loaded := make([]loadedDoc, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, path := range paths {
		g.Go(func() error {
			loaded[i] = l.loadOne(gctx, path, opts)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	corpus := &Corpus{
		byChunk: make(map[string]*models.Chunk),
		byDoc:   make(map[string]*models.Document),
	}
	fingerprinted := make([]string, 0, len(paths))
	for _, ld := range loaded {
		if ld.fingerprinted {
			fingerprinted = append(fingerprinted, ld.path)
		}
		if ld.skip != nil {
			corpus.Skipped = append(corpus.Skipped, *ld.skip)
			continue
		}
		corpus.Documents = append(corpus.Documents, ld.doc)
		corpus.byDoc[ld.doc.ID] = ld.doc
	}
	if len(corpus.Documents) == 0 {
		return nil, ErrEmptyCorpus
	}

	fp, err := fingerprint.Corpus(fingerprinted, l.fingerprint)
	if err != nil {
		return nil, err
	}
	corpus.Fingerprint = fp

	// Chunk sequentially in document order so Seq is deterministic.
	seq := 0
	for _, doc := range corpus.Documents {
		for _, page := range doc.Pages {
			text := page.EffectiveText()
			if len(strings.TrimSpace(text)) < minPageChars {
				continue
			}
			for _, ch := range chunker.Chunk(text, page.Number, opts.ChunkSize, opts.ChunkOverlap) {
				ch.DocumentID = doc.ID
				ch.ID = models.ChunkID(doc.ID, ch.Page, ch.Index)
				ch.Seq = seq
				seq++
				corpus.Chunks = append(corpus.Chunks, ch)
				corpus.byChunk[ch.ID] = ch
			}
		}
	}

	l.logger.Info("corpus loaded",
		zap.Int("documents", len(corpus.Documents)),
		zap.Int("skipped", len(corpus.Skipped)),
		zap.Int("chunks", len(corpus.Chunks)),
		zap.String("fingerprint", fp[:16]))
	return corpus, nil
}

func (l *Loader) loadOne(ctx context.Context, path string, opts models.BuildOptions) loadedDoc {
	fp, err := fingerprint.Document(path, l.fingerprint)
	if err != nil {
		l.logger.Warn("skipping unreadable document", zap.String("path", path), zap.Error(err))
		return loadedDoc{skip: &cache.SkippedDocument{Path: path, Reason: err.Error()}, path: path}
	}
	pages, err := l.extractor.Extract(path)
	if err != nil {
		l.logger.Warn("skipping document, extraction failed", zap.String("path", path), zap.Error(err))
		return loadedDoc{skip: &cache.SkippedDocument{Path: path, Reason: err.Error()}, fingerprinted: true, path: path}
	}

	doc := &models.Document{
		ID:          fingerprint.DocID(path),
		Path:        path,
		Fingerprint: fp,
		LoadedAt:    time.Now(),
	}
	for _, pc := range pages {
		doc.Pages = append(doc.Pages, &models.Page{
			Number:     pc.Number,
			Text:       pc.Text,
			HasImages:  pc.HasImages,
			ImageHeavy: pc.HasImages && len(pc.Text) < l.density,
		})
	}

	if opts.OCREnabled && l.ocrProc != nil {
		if _, err := l.ocrProc.Process(ctx, doc, opts.Mode); err != nil {
			// Context cancellation; per-page OCR failures never error.
			return loadedDoc{skip: &cache.SkippedDocument{Path: path, Reason: err.Error()}}
		}
	}
	return loadedDoc{doc: doc, fingerprinted: true, path: path}
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
