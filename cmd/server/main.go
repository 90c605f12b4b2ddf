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

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"logbook/internal/app"
	"logbook/internal/config"
	"logbook/internal/domain"
	"logbook/internal/handler"
	internalRedis "logbook/internal/redis"
	"logbook/internal/repository/postgres"
	"logbook/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Warn("failed to initialize New Relic")
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled (with DB instrumentation)")
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	log.Info("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info("Connected to Redis")

	// Wire dependencies.
	server := wireServer(db, redisClient, nrApp, cfg, log)

	// Start server in goroutine.
	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("Server exited")
}

// externalClients selects the external collaborators. An unset URL falls
// back to a local stub so development setups run without the real services.
func externalClients(cfg *config.Config, log *logrus.Logger) (service.Recognizer, service.Exporter) {
	var recognizer service.Recognizer = stubRecognizer{}
	if cfg.External.OCRBaseURL != "" {
		recognizer = service.NewHTTPRecognizer(cfg.External.OCRBaseURL)
	} else {
		log.Warn("OCR_SERVICE_URL not set, using stub recognizer")
	}

	var exporter service.Exporter = stubExporter{}
	if cfg.External.ExportBaseURL != "" {
		exporter = service.NewHTTPExporter(cfg.External.ExportBaseURL)
	} else {
		log.Warn("EXPORT_SERVICE_URL not set, using stub exporter")
	}

	return recognizer, exporter
}

// stubRecognizer accepts every image with a zero reading and full confidence.
type stubRecognizer struct{}

func (stubRecognizer) Recognize(ctx context.Context, image []byte) (*service.OCRResult, error) {
	return &service.OCRResult{OdometerKm: 0, Confidence: 1.0}, nil
}

// stubExporter hands back a deterministic artifact reference.
type stubExporter struct{}

func (stubExporter) Export(ctx context.Context, report *domain.VatReport) (string, error) {
	return fmt.Sprintf("artifact://%s/%s/%s", report.Scope, report.PeriodKey, report.ID), nil
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, log *logrus.Logger) *http.Server {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	txRunner := postgres.NewTxRunner(db)
	tripRepo := postgres.NewTripRepository(db)
	readingRepo := postgres.NewReadingRepository(db)
	vehicleRepo := postgres.NewVehicleRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	periodLockRepo := postgres.NewPeriodLockRepository(db)
	reportRepo := postgres.NewReportRepository(db)

	// Initialize validators and policy.
	gate := service.NewGate()
	continuity := service.NewContinuityValidator()
	classifier := service.NewRegimeClassifier()
	tolerance := service.Tolerance{
		Mode: cfg.Policy.ToleranceMode,
		Pct:  cfg.Policy.TolerancePct,
		Km:   cfg.Policy.ToleranceKm,
	}

	// External collaborators: HTTP clients when configured, local stubs
	// otherwise.
	recognizer, exporter := externalClients(cfg, log)

	// Initialize services.
	ledger := service.NewTripLedger(txRunner, tripRepo, vehicleRepo, periodLockRepo, gate,
		continuity, classifier, lockStore, tolerance, cfg.Policy.ScopeLockTTL, log)
	readingService := service.NewReadingService(txRunner, readingRepo, vehicleRepo, periodLockRepo, gate,
		continuity, lockStore, recognizer, cfg.Policy.OCRTimeout, cfg.Policy.ExternalRetry,
		cfg.Policy.ScopeLockTTL, log)
	periodLockService := service.NewPeriodLockService(txRunner, periodLockRepo, tripRepo, readingRepo,
		vehicleRepo, gate, continuity, classifier, lockStore, tolerance, cfg.Policy.ScopeLockTTL, log)
	reportService := service.NewReportService(txRunner, reportRepo, periodLockRepo, tripRepo, gate,
		exporter, cfg.Policy.ExportTimeout, cfg.Policy.ExternalRetry, log)
	vehicleService := service.NewVehicleService(vehicleRepo, tripRepo, cacheStore, classifier, gate, log)
	auditService := service.NewAuditService(auditRepo, gate, cfg.Policy.AuditListLimit)

	// Initialize handlers.
	tripHandler := handler.NewTripHandler(ledger)
	readingHandler := handler.NewReadingHandler(readingService)
	vehicleHandler := handler.NewVehicleHandler(vehicleService)
	periodHandler := handler.NewPeriodHandler(periodLockService)
	reportHandler := handler.NewReportHandler(reportService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:    tripHandler,
		ReadingHandler: readingHandler,
		VehicleHandler: vehicleHandler,
		PeriodHandler:  periodHandler,
		ReportHandler:  reportHandler,
		AuditHandler:   auditHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		JWTSecret:      cfg.Auth.JWTSecret,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
