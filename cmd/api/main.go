package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mediqlabs/mediq-analyzer/internal/application"
	appanalysis "github.com/mediqlabs/mediq-analyzer/internal/application/analysis"
	"github.com/mediqlabs/mediq-analyzer/internal/config"
	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
	"github.com/mediqlabs/mediq-analyzer/internal/domain/biomarker"
	"github.com/mediqlabs/mediq-analyzer/internal/infra/ai"
	aiopenai "github.com/mediqlabs/mediq-analyzer/internal/infra/ai/openai"
	"github.com/mediqlabs/mediq-analyzer/internal/infra/ai/rules"
	"github.com/mediqlabs/mediq-analyzer/internal/infra/cache"
	mysqlp "github.com/mediqlabs/mediq-analyzer/internal/infra/db/mysql"
	postgresp "github.com/mediqlabs/mediq-analyzer/internal/infra/db/postgres"
	"github.com/mediqlabs/mediq-analyzer/internal/infra/extract"
	"github.com/mediqlabs/mediq-analyzer/internal/infra/httpserver"
	minioStore "github.com/mediqlabs/mediq-analyzer/internal/infra/storage"
	"github.com/mediqlabs/mediq-analyzer/internal/infra/telemetry"
	"github.com/mediqlabs/mediq-analyzer/internal/middleware"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "mediq-analyzer").Logger()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	ctx := context.Background()

	// reference table
	ref := biomarker.Default()
	if cfg.Pipeline.ReferencePath != "" {
		ref, err = biomarker.Load(cfg.Pipeline.ReferencePath)
		if err != nil {
			log.Fatal().Err(err).Msg("reference table load error")
		}
	}

	// history storage, optional by driver
	var (
		db      *sql.DB
		history domain.HistoryRepository
	)
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatal().Err(err).Msg("mysql connect error")
		}
		history = mysqlp.NewHistoryRepository(db)
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatal().Err(err).Msg("postgres connect error")
		}
		history = postgresp.NewHistoryRepository(db)
	case "none":
		log.Info().Msg("history persistence disabled")
	default:
		log.Fatal().Str("driver", cfg.Database.Driver).Msg("unknown database driver")
	}
	if db != nil {
		defer db.Close()
	}

	// result archive, optional
	var archive domain.ArchiveStore
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("minio init error")
		}
		archive = store
	}

	// extraction
	validator := extract.NewValidator()
	router := extract.NewRouter(
		extract.NewPDFExtractor("", 0),
		extract.NewOCRExtractor("", "", 0),
		extract.NewCSVExtractor(),
	)

	// engine chain: configured model endpoints first, rules engine last
	// so analysis always completes.
	timeout := time.Duration(cfg.Engines.TimeoutSeconds) * time.Second
	var engines []domain.Engine
	if cfg.Engines.Primary.Model != "" {
		engines = append(engines, aiopenai.New(
			engineName(cfg.Engines.Primary, "primary"),
			cfg.Engines.Primary.APIKey(), cfg.Engines.Primary.BaseURL, cfg.Engines.Primary.Model, timeout))
	}
	if cfg.Engines.Fallback.Model != "" {
		engines = append(engines, aiopenai.New(
			engineName(cfg.Engines.Fallback, "fallback"),
			cfg.Engines.Fallback.APIKey(), cfg.Engines.Fallback.BaseURL, cfg.Engines.Fallback.Model, timeout))
	}
	engines = append(engines, rules.New(ref))
	chain := ai.NewChain(log, cfg.Engines.LowConfidenceThreshold, engines...)

	recorder := telemetry.NewRecorder(log, 0)

	svc := &appanalysis.Service{
		Validator: validator,
		Extractor: router,
		Engines:   chain,
		Reference: ref,
		Policy: domain.ScoringPolicy{
			AbnormalPenalty:    cfg.Pipeline.AbnormalPenalty,
			CriticalPenalty:    cfg.Pipeline.CriticalPenalty,
			LowRiskFloor:       cfg.Pipeline.LowRiskFloor,
			ModerateRiskFloor:  cfg.Pipeline.ModerateRiskFloor,
			HighRiskFloor:      cfg.Pipeline.HighRiskFloor,
			UnknownUnitPenalty: cfg.Pipeline.UnknownUnitPenalty,
			ExtractionFloor:    cfg.Pipeline.OCRConfidenceFloor,
		},
		Cache: cache.New[*domain.AnalysisResult](cfg.Cache.MaxEntries,
			time.Duration(cfg.Cache.TTLMinutes)*time.Minute),
		History:  history,
		Archive:  archive,
		Recorder: recorder,
		Clock:    application.SystemClock{},
		Log:      log,
	}

	checkers := map[string]middleware.HealthChecker{
		"engine": &middleware.EngineHealthChecker{Probe: svc.ProbePrimary},
	}
	if db != nil {
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	handler := httpserver.NewRouter(svc, recorder, log, httpserver.Options{
		RateLimitCapacity:  cfg.RateLimit.Capacity,
		RateLimitPerSecond: cfg.RateLimit.RefillPerSec,
		HealthCheckers:     checkers,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn().Err(err).Msg("shutdown error")
	}
}

func engineName(e config.EngineConfig, fallback string) string {
	if e.Name != "" {
		return e.Name
	}
	return fallback
}
