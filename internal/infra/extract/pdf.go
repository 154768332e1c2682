package extract

import (
	"context"
	"strings"
	"time"
	"unicode"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
)

// PDFExtractor converts digital PDFs to text via pdftotext and scans the
// result for label/value lines. Page order is preserved as encounter
// order (pdftotext separates pages with form feeds).
type PDFExtractor struct {
	Binary  string
	Timeout time.Duration
	runner  Runner
}

func NewPDFExtractor(binary string, timeout time.Duration) *PDFExtractor {
	if binary == "" {
		binary = "pdftotext"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PDFExtractor{Binary: binary, Timeout: timeout, runner: execRunner{}}
}

func (e *PDFExtractor) Extract(ctx context.Context, d domain.Document) (domain.ExtractionOutcome, error) {
	path, cleanup, err := writeTemp("mediq-*.pdf", d.Bytes)
	if err != nil {
		return domain.ExtractionOutcome{}, domain.WrapError(domain.ErrExtractionFailed, "pdf: spill to disk", err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.Binary, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return domain.ExtractionOutcome{}, domain.WrapError(domain.ErrExtractionFailed,
			"pdf: pdftotext: "+strings.TrimSpace(string(errb)), err)
	}

	text := strings.TrimSpace(string(out))
	return domain.ExtractionOutcome{
		RawText:    text,
		Fields:     ScanFields(text),
		Confidence: pdfConfidence(text),
		Kind:       domain.ExtractorPDF,
	}, nil
}

// pdfConfidence is the fraction of pages whose decoded text looks usable
// (non-empty and mostly printable). Empty or garbled output scores 0.
func pdfConfidence(text string) float64 {
	if text == "" {
		return 0
	}
	pages := strings.Split(text, "\f")
	good := 0
	for _, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		if printableRatio(page) >= 0.8 {
			good++
		}
	}
	return float64(good) / float64(len(pages))
}

func printableRatio(s string) float64 {
	total, printable := 0, 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(printable) / float64(total)
}
