package extract

import (
	"context"
	"strconv"
	"strings"
	"time"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
)

// OCRExtractor recognizes text in images via tesseract and applies the
// same field scanning as the PDF extractor. Confidence comes from
// tesseract's TSV word confidences; a poor scan still produces an
// outcome, and the scoring policy discounts parameters derived from it.
type OCRExtractor struct {
	Binary   string
	Language string
	Timeout  time.Duration
	runner   Runner
}

func NewOCRExtractor(binary, language string, timeout time.Duration) *OCRExtractor {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OCRExtractor{Binary: binary, Language: language, Timeout: timeout, runner: execRunner{}}
}

func (e *OCRExtractor) Extract(ctx context.Context, d domain.Document) (domain.ExtractionOutcome, error) {
	ext := ".png"
	if strings.Contains(strings.ToLower(d.ContentType), "jpeg") {
		ext = ".jpg"
	}
	path, cleanup, err := writeTemp("mediq-*"+ext, d.Bytes)
	if err != nil {
		return domain.ExtractionOutcome{}, domain.WrapError(domain.ErrExtractionFailed, "ocr: spill to disk", err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.Binary, path, "stdout", "-l", e.Language)
	if err != nil {
		return domain.ExtractionOutcome{}, domain.WrapError(domain.ErrExtractionFailed,
			"ocr: tesseract: "+strings.TrimSpace(string(errb)), err)
	}
	text := strings.TrimSpace(string(out))

	conf := e.tsvConfidence(ctx, path)
	if conf == 0 {
		conf = heuristicConfidence(text)
	}

	return domain.ExtractionOutcome{
		RawText:    text,
		Fields:     ScanFields(text),
		Confidence: conf,
		Kind:       domain.ExtractorOCR,
	}, nil
}

// tsvConfidence reruns tesseract in TSV mode and averages the per-word
// confidence column into 0..1. Best effort: 0 on any failure.
func (e *OCRExtractor) tsvConfidence(ctx context.Context, path string) float64 {
	out, _, err := e.runner.Run(ctx, e.Binary, path, "stdout", "-l", e.Language, "tsv")
	if err != nil {
		return 0
	}
	lines := strings.Split(string(out), "\n")
	var sum, n float64
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[len(cols)-2]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n / 100.0
}

// heuristicConfidence approximates recognition quality from the text
// itself when TSV output is unavailable.
func heuristicConfidence(text string) float64 {
	if text == "" {
		return 0
	}
	letters, total := 0, 0
	for _, r := range text {
		total++
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == ' ' || r == '\n' {
			letters++
		}
	}
	ratio := float64(letters) / float64(total)
	if ratio > 0.95 {
		ratio = 0.95
	}
	return ratio
}
