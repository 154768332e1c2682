package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
)

// CSVExtractor treats the first row as headers and turns each following
// row into candidate fields. Rows with a column-count mismatch are
// skipped and counted; more than 50% skipped rows fails the extraction.
type CSVExtractor struct{}

func NewCSVExtractor() *CSVExtractor { return &CSVExtractor{} }

func (e *CSVExtractor) Extract(ctx context.Context, d domain.Document) (domain.ExtractionOutcome, error) {
	r := csv.NewReader(bytes.NewReader(d.Bytes))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	headers, err := r.Read()
	if err != nil {
		return domain.ExtractionOutcome{}, domain.WrapError(domain.ErrMalformedInput, "csv: no header row", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	nameCol, valueCol, unitCol := detectColumns(headers)

	var (
		fields  []domain.CandidateField
		lines   []string
		total   int
		skipped int
	)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		total++
		if err != nil || len(row) != len(headers) {
			skipped++
			continue
		}
		lines = append(lines, rowSentence(headers, row))
		fields = append(fields, rowFields(headers, row, nameCol, valueCol, unitCol)...)
	}

	if total == 0 {
		return domain.ExtractionOutcome{}, domain.NewError(domain.ErrMalformedInput, "csv: no data rows")
	}
	if skipped*2 > total {
		return domain.ExtractionOutcome{}, domain.Errorf(domain.ErrMalformedInput,
			"csv: %d of %d rows malformed", skipped, total)
	}

	return domain.ExtractionOutcome{
		RawText:    strings.Join(lines, "\n"),
		Fields:     fields,
		Confidence: 1 - float64(skipped)/float64(total),
		Kind:       domain.ExtractorCSV,
	}, nil
}

// detectColumns finds record-shaped exports: a value column, an optional
// unit column, and a name column (the first column that is neither).
// Returns -1 indices when the export is not record-shaped.
func detectColumns(headers []string) (nameCol, valueCol, unitCol int) {
	nameCol, valueCol, unitCol = -1, -1, -1
	for i, h := range headers {
		switch strings.ToLower(h) {
		case "value", "result", "reading":
			if valueCol < 0 {
				valueCol = i
			}
		case "unit", "units":
			if unitCol < 0 {
				unitCol = i
			}
		}
	}
	if valueCol < 0 {
		return -1, -1, -1
	}
	for i := range headers {
		if i != valueCol && i != unitCol {
			nameCol = i
			break
		}
	}
	return nameCol, valueCol, unitCol
}

func rowFields(headers, row []string, nameCol, valueCol, unitCol int) []domain.CandidateField {
	ctxSnippet := rowSentence(headers, row)

	// Record-shaped: one field per row, named by the name column.
	if valueCol >= 0 && nameCol >= 0 {
		name := strings.TrimSpace(row[nameCol])
		if name == "" {
			return nil
		}
		f := domain.CandidateField{
			Name:     name,
			RawValue: strings.TrimSpace(row[valueCol]),
			Context:  ctxSnippet,
		}
		if unitCol >= 0 {
			f.Unit = strings.TrimSpace(row[unitCol])
		}
		return []domain.CandidateField{f}
	}

	// Wide-shaped: one field per numeric cell, named by its header.
	var out []domain.CandidateField
	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" || !looksNumeric(cell) {
			continue
		}
		out = append(out, domain.CandidateField{
			Name:     headers[i],
			RawValue: cell,
			Context:  ctxSnippet,
		})
	}
	return out
}

// rowSentence renders a row as readable text for the AI prompt,
// e.g. "glucose is Glucose, unit is mg/dL, value is 250".
func rowSentence(headers, row []string) string {
	parts := make([]string, 0, len(row))
	for i, cell := range row {
		parts = append(parts, headers[i]+" is "+strings.TrimSpace(cell))
	}
	return strings.Join(parts, ", ")
}

func looksNumeric(s string) bool {
	dot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '-' && i == 0:
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}
