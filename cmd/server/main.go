package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"docuflow/internal/auth"
	"docuflow/internal/billing"
	"docuflow/internal/config"
	"docuflow/internal/extract"
	"docuflow/internal/handler"
	"docuflow/internal/lifecycle"
	"docuflow/internal/ocr"
	"docuflow/internal/pipeline"
	"docuflow/internal/repository/postgres"
	"docuflow/internal/router"
	"docuflow/internal/service"
	s3storage "docuflow/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	schemaRepo := postgres.NewSchemaRepo(db)
	docRepo := postgres.NewDocumentRepo(db)
	fieldRepo := postgres.NewFieldValueRepo(db)
	logRepo := postgres.NewProcessingLogRepo(db)
	usageRepo := postgres.NewUsageRepo(db)

	// Initialize storage and billing
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}
	billingSvc := billing.NewStatic(&cfg.Quota)

	// Extraction tiers: pattern first, LLM for escalations when configured.
	tiers := []extract.Tier{
		{Extractor: extract.NewPatternExtractor(), EscalateBelow: cfg.Extract.Primary.EscalateBelow},
	}
	if cfg.Extract.Secondary.Provider != "" {
		tiers = append(tiers, extract.Tier{
			Extractor:     extract.NewLLMExtractor(&cfg.Extract.Secondary),
			EscalateBelow: cfg.Extract.Secondary.EscalateBelow,
		})
	}
	extractRouter := extract.NewRouter(tiers...)

	// Pipeline
	tracker := lifecycle.NewTracker(docRepo, fieldRepo, logRepo)
	engine := pipeline.NewEngine(
		tracker, schemaRepo, fieldRepo, s3Client,
		ocr.NewPolicyEngine(&cfg.OCR),
		extractRouter,
		pipeline.Config{
			ReviewThreshold:  cfg.Extract.ReviewThreshold,
			NormalizePenalty: cfg.Extract.NormalizePenalty,
		},
	)

	// Initialize services
	verifier := auth.NewVerifier(cfg.JWT)
	schemaSvc := service.NewSchemaService(schemaRepo, docRepo)
	docSvc := service.NewDocumentService(docRepo, fieldRepo, logRepo, usageRepo, schemaRepo, s3Client, billingSvc, tracker, &cfg.S3)
	exportSvc := service.NewExportService(schemaRepo, docRepo, fieldRepo)
	usageSvc := service.NewUsageService(usageRepo, billingSvc)

	// Initialize handlers
	schemaH := handler.NewSchemaHandler(schemaSvc)
	docH := handler.NewDocumentHandler(docSvc)
	exportH := handler.NewExportHandler(exportSvc)
	usageH := handler.NewUsageHandler(usageSvc)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(verifier, cfg.CORS.AllowedOrigins, schemaH, docH, exportH, usageH, healthH)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background queue worker
	worker := service.NewProcessQueueWorker(tracker, engine, service.ProcessQueueConfig{
		PollInterval:   time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		SweepInterval:  time.Duration(cfg.Queue.SweepIntervalSecs) * time.Second,
		StalledTimeout: time.Duration(cfg.Queue.StalledTimeoutSecs) * time.Second,
		DocTimeout:     time.Duration(cfg.Queue.DocTimeoutSecs) * time.Second,
		Concurrency:    cfg.Queue.Concurrency,
	})
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		stop()
		<-workerDone
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	<-workerDone
	return nil
}
