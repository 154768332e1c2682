package analysis

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures for callers and telemetry.
type ErrorKind string

const (
	ErrUnsupportedFormat   ErrorKind = "unsupported_format"
	ErrPayloadTooLarge     ErrorKind = "payload_too_large"
	ErrFormatMismatch      ErrorKind = "format_mismatch"
	ErrExtractionFailed    ErrorKind = "extraction_failed"
	ErrMalformedInput      ErrorKind = "malformed_input"
	ErrEngineUnavailable   ErrorKind = "engine_unavailable"
	ErrLowConfidence       ErrorKind = "low_confidence"
	ErrAllEnginesExhausted ErrorKind = "all_engines_exhausted"
)

// PipelineError carries an error kind plus a human-readable message.
// The pipeline is all-or-nothing: a PipelineError means no result exists.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

func NewError(kind ErrorKind, msg string) *PipelineError {
	return &PipelineError{Kind: kind, Message: msg}
}

func Errorf(kind ErrorKind, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, msg string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: msg, Cause: cause}
}

// KindOf returns the error kind of err, or empty when err is not a
// PipelineError.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
