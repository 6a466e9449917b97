package ocr

import (
	"context"

	"go.uber.org/zap"

	"github.com/locus-search/locus/internal/models"
)

// PageImager rasterizes one page of a document for recognition. Like the
// recognizer it is an external collaborator.
type PageImager interface {
	PageImage(ctx context.Context, documentPath string, page int) ([]byte, error)
}

// Processor runs the OCR policy over a document's pages, consulting the
// cache before invoking the recognizer. Per-page failures degrade that page
// to extracted text; they never abort the build.
type Processor struct {
	policy     *Policy
	cache      *Cache
	recognizer Recognizer
	imager     PageImager
	logger     *zap.Logger
}

// NewProcessor creates a Processor. cache may be nil, in which case every
// eligible page is recognized fresh.
func NewProcessor(policy *Policy, cache *Cache, recognizer Recognizer, imager PageImager, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		policy:     policy,
		cache:      cache,
		recognizer: recognizer,
		imager:     imager,
		logger:     logger,
	}
}

// Process fills OCRText on each page the policy selects. Returns the number
// of pages recognized (cache hits included).
func (p *Processor) Process(ctx context.Context, doc *models.Document, mode models.IndexMode) (int, error) {
	recognized := 0
	for _, page := range doc.Pages {
		if !p.policy.ShouldRecognize(page, mode) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return recognized, err
		}

		if p.cache != nil {
			text, ok, err := p.cache.Get(ctx, doc.Fingerprint, page.Number)
			if err != nil {
				p.logger.Warn("ocr cache read failed",
					zap.String("document", doc.ID),
					zap.Int("page", page.Number),
					zap.Error(err))
			} else if ok {
				page.OCRText = text
				recognized++
				continue
			}
		}

		image, err := p.imager.PageImage(ctx, doc.Path, page.Number)
		if err != nil {
			p.logger.Warn("page rasterization failed, page degrades to extracted text",
				zap.String("document", doc.ID),
				zap.Int("page", page.Number),
				zap.Error(err))
			continue
		}

		text, err := p.recognizer.Recognize(ctx, image)
		if err != nil {
			rerr := &RecognitionError{DocumentID: doc.ID, Page: page.Number, Err: err}
			p.logger.Warn("recognition failed, page degrades to extracted text",
				zap.String("document", doc.ID),
				zap.Int("page", page.Number),
				zap.Error(rerr))
			continue
		}

		page.OCRText = text
		recognized++
		if p.cache != nil {
			if err := p.cache.Put(ctx, doc.Fingerprint, page.Number, text); err != nil {
				p.logger.Warn("ocr cache write failed",
					zap.String("document", doc.ID),
					zap.Int("page", page.Number),
					zap.Error(err))
			}
		}
	}
	return recognized, nil
}
