package extract

import (
	"context"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
)

// Router dispatches a validated document to the extractor for its format.
// Routing is total over the accepted content types; there is no
// "no extractor" path after validation has passed.
type Router struct {
	PDF domain.Extractor
	OCR domain.Extractor
	CSV domain.Extractor
}

func NewRouter(pdf, ocr, csv domain.Extractor) *Router {
	return &Router{PDF: pdf, OCR: ocr, CSV: csv}
}

func (r *Router) Extract(ctx context.Context, d domain.Document) (domain.ExtractionOutcome, error) {
	kind, ok := Route(d.ContentType)
	if !ok {
		// Only reachable when Validate was skipped.
		return domain.ExtractionOutcome{}, domain.Errorf(domain.ErrUnsupportedFormat,
			"no extractor for content type %q", d.ContentType)
	}
	switch kind {
	case domain.ExtractorPDF:
		return r.PDF.Extract(ctx, d)
	case domain.ExtractorOCR:
		return r.OCR.Extract(ctx, d)
	default:
		return r.CSV.Extract(ctx, d)
	}
}
