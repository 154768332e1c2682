// Package httpserver exposes the analysis pipeline over HTTP.
package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	appanalysis "github.com/mediqlabs/mediq-analyzer/internal/application/analysis"
	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
	"github.com/mediqlabs/mediq-analyzer/internal/infra/extract"
	"github.com/mediqlabs/mediq-analyzer/internal/infra/telemetry"
	"github.com/mediqlabs/mediq-analyzer/internal/middleware"
)

// multipart forms are parsed with a little headroom over the document
// limit so an oversize upload reaches the validator and gets the
// structured payload_too_large answer instead of a parse error.
const maxMultipartMemory = extract.MaxDocumentSize + 1<<20

type Router struct {
	svc      *appanalysis.Service
	recorder *telemetry.Recorder
	log      zerolog.Logger
}

type Options struct {
	RateLimitCapacity  int
	RateLimitPerSecond int
	HealthCheckers     map[string]middleware.HealthChecker
}

func NewRouter(svc *appanalysis.Service, recorder *telemetry.Recorder, log zerolog.Logger, opts Options) http.Handler {
	r := &Router{svc: svc, recorder: recorder, log: log}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	mux.Use(middleware.LoggingMiddleware(log))
	if opts.RateLimitCapacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(opts.RateLimitCapacity, opts.RateLimitPerSecond))
	}

	mux.Get("/health", middleware.HealthHandler(extract.AcceptedContentTypes(), opts.HealthCheckers))
	mux.Get("/ready", middleware.ReadinessHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/history", r.wrap(r.handleHistory))
		rt.Get("/metrics", r.wrap(r.handleMetrics))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				r.log.Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(errorBody{Error: err.Error(), Kind: string(domain.KindOf(err))})
		}
	}
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrUnsupportedFormat, domain.ErrFormatMismatch:
		return http.StatusBadRequest
	case domain.ErrPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case domain.ErrExtractionFailed, domain.ErrMalformedInput:
		return http.StatusUnprocessableEntity
	case domain.ErrAllEnginesExhausted, domain.ErrEngineUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// POST /v1/analyze
// multipart form, field "file"; the part's Content-Type declares the format.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	if err := req.ParseMultipartForm(maxMultipartMemory); err != nil {
		return domain.WrapError(domain.ErrMalformedInput, "parse multipart form", err)
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		return domain.WrapError(domain.ErrMalformedInput, `missing form file "file"`, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxMultipartMemory))
	if err != nil {
		return domain.WrapError(domain.ErrMalformedInput, "read upload", err)
	}

	result, err := r.svc.Analyze(req.Context(), appanalysis.AnalyzeCommand{
		Bytes:       data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	})
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(result)
}

// GET /v1/history?limit=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	report, err := r.svc.RecentHistory(req.Context(), limit)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(report)
}

// GET /v1/metrics
func (r *Router) handleMetrics(w http.ResponseWriter, req *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(r.recorder.Snapshot())
}
