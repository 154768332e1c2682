package extract

import (
	"bytes"
	"sort"
	"strings"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
)

// MaxDocumentSize is the hard payload limit. A document of exactly this
// size is rejected; one byte less is accepted.
const MaxDocumentSize = 10 << 20 // 10 MiB

var acceptedTypes = map[string]domain.ExtractorKind{
	"application/pdf": domain.ExtractorPDF,
	"image/jpeg":      domain.ExtractorOCR,
	"image/png":       domain.ExtractorOCR,
	"text/csv":        domain.ExtractorCSV,
}

var magicBytes = map[string][][]byte{
	"application/pdf": {[]byte("%PDF-")},
	"image/jpeg":      {{0xFF, 0xD8, 0xFF}},
	"image/png":       {{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}},
}

// Validator performs the pre-flight checks: declared type, size, and a
// magic-byte sniff to catch content-type spoofing. Pure; no side effects.
type Validator struct{}

func NewValidator() Validator { return Validator{} }

func (Validator) Validate(d domain.Document) error {
	ct := normalizeContentType(d.ContentType)
	if _, ok := acceptedTypes[ct]; !ok {
		return domain.Errorf(domain.ErrUnsupportedFormat,
			"unsupported content type %q (accepted: application/pdf, image/jpeg, image/png, text/csv)", d.ContentType)
	}
	if d.Size() >= MaxDocumentSize {
		return domain.Errorf(domain.ErrPayloadTooLarge,
			"document of %d bytes exceeds the %d byte limit", d.Size(), MaxDocumentSize)
	}
	if magics, ok := magicBytes[ct]; ok {
		matched := false
		for _, m := range magics {
			if bytes.HasPrefix(d.Bytes, m) {
				matched = true
				break
			}
		}
		if !matched {
			return domain.Errorf(domain.ErrFormatMismatch,
				"declared type %q does not match document content", d.ContentType)
		}
	}
	return nil
}

// AcceptedContentTypes lists the accepted declared types, sorted.
func AcceptedContentTypes() []string {
	out := make([]string, 0, len(acceptedTypes))
	for ct := range acceptedTypes {
		out = append(out, ct)
	}
	sort.Strings(out)
	return out
}

// Route maps a validated content type to its extractor kind. Total over
// the accepted set; the bool is false only for types Validate rejects.
func Route(contentType string) (domain.ExtractorKind, bool) {
	kind, ok := acceptedTypes[normalizeContentType(contentType)]
	return kind, ok
}

func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
