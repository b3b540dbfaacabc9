package main

import (
	"context"
	"os"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"filehost/internal/config"
	"filehost/internal/database"
	"filehost/internal/database/migration"
	handlers "filehost/internal/http/handler"
	"filehost/internal/http/middleware"
	"filehost/internal/otel"
	"filehost/internal/processor"
	"filehost/internal/repository/postgres"
	"filehost/internal/service"
	"filehost/internal/storage"
	"filehost/internal/upload"
)

const processorQueueSize = 64

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer shutdownTracing(ctx)

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database schema")
	}

	objStore, err := newStorage(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}

	uploadMetrics, err := upload.NewMetrics(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register upload metrics")
	}

	fileRepo := postgres.NewFilePostgres(db)

	worker := processor.NewWorker(processorQueueSize, log)
	stopWorker := worker.Start()
	defer stopWorker()

	tracker := upload.NewTracker(cfg.Upload.ScratchDir, cfg.Upload.IdleTimeout, log)
	stopSweep := tracker.StartSweep(cfg.Upload.SweepInterval)
	defer stopSweep()

	pipeline := upload.New(cfg.Upload, tracker, fileRepo, objStore, worker, uploadMetrics, log)
	fileSvc := service.NewFileService(objStore, fileRepo)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// One multipart chunk per request, plus form-field overhead.
		BodyLimit: int(cfg.Upload.ChunkSizeLimit) + 1<<20,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(log))
	app.Use(otelfiber.Middleware())
	app.Use(promMiddleware.Handler())

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, fileSvc, pipeline)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	addr := ":" + cfg.Port

	log.Info().Str("addr", addr).Str("storage_backend", cfg.Storage.Backend).Msg("starting server")

	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}

func newStorage(cfg config.StorageConfig) (storage.Storage, error) {
	if cfg.Backend == "s3" {
		return storage.NewMinIO(cfg.MinIO)
	}
	return storage.NewLocal(cfg.LocalDir)
}
