package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/catalogsync/backend/docs"
	importapp "github.com/catalogsync/backend/internal/application/import"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/auth"
	"github.com/catalogsync/backend/internal/infrastructure/cache"
	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/catalogsync/backend/internal/infrastructure/ecommerce"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/catalogsync/backend/internal/infrastructure/migration"
	"github.com/catalogsync/backend/internal/infrastructure/notification"
	"github.com/catalogsync/backend/internal/infrastructure/persistence"
	"github.com/catalogsync/backend/internal/infrastructure/storage"
	"github.com/catalogsync/backend/internal/infrastructure/telemetry"
	"github.com/catalogsync/backend/internal/interfaces/http/handler"
	"github.com/catalogsync/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Catalog Sync API
//	@version		1.0
//	@description	Bulk catalog spreadsheet import into a Shopify store

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}

	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	log, err := logger.New(logCfg, logProvider.ZapCore(cfg.Telemetry.ServiceName, level))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting catalog sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeEndpoint,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Telemetry.ProfilingEnabled {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:          cfg.Database.DBName,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	runMigrations(db, log)
	log.Info("Database connected successfully")

	batchRepo := persistence.NewGormImportBatchRepository(db.DB)
	recordRepo := persistence.NewGormCatalogRecordRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	profileRepo := persistence.NewGormShippingProfileRepository(db.DB)

	// Lease store shared by every replica's worker
	leases, err := cache.NewLeaseStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create lease store", zap.Error(err))
	}
	defer func() { _ = leases.Close() }()

	// nil interface when archiving is off, never a typed nil
	var archive importapp.PayloadArchive
	if s3Archive := newPayloadArchive(cfg, log); s3Archive != nil {
		archive = s3Archive
	}
	importMetrics, err := telemetry.NewImportMetrics(meterProvider.Meter("catalogsync/import"))
	if err != nil {
		log.Fatal("Failed to create import metrics", zap.Error(err))
	}

	opts := []importapp.OrchestratorOption{
		importapp.WithLogger(log),
		importapp.WithMailer(newMailer(cfg, log)),
		importapp.WithMetrics(importMetrics),
	}
	if archive != nil {
		opts = append(opts, importapp.WithArchive(archive))
	}
	orchestrator := importapp.NewOrchestrator(
		batchRepo,
		recordRepo,
		profileRepo,
		newRemoteCatalog(cfg, log),
		importapp.NewNormalizer(importapp.NewTreeCategoryResolver(categoryRepo, log), log),
		importapp.OrchestratorConfig{
			StaleAfter:         cfg.Import.StaleAfter,
			MaxAttempts:        cfg.Import.MaxAttempts,
			NotifyTimeout:      cfg.Import.NotifyTimeout,
			MetafieldNamespace: cfg.Import.MetafieldNamespace,
			CSVDelimiter:       cfg.Import.Delimiter(),
		},
		opts...,
	)

	worker := importapp.NewWorker(orchestrator, leases, log, importapp.WorkerConfig{
		Enabled:      cfg.Import.WorkerEnabled,
		PollInterval: cfg.Import.PollInterval,
		LeaseKey:     "import-worker",
		LeaseTTL:     cfg.Import.LeaseTTL,
	})
	if err := worker.Start(ctx); err != nil {
		log.Fatal("Failed to start import worker", zap.Error(err))
	}

	batchService := importapp.NewBatchService(batchRepo, archive, log)

	var jwtService *auth.JWTService
	if cfg.Auth.Enabled {
		jwtService = auth.NewJWTService(cfg.Auth)
	}

	gin.SetMode(gin.ReleaseMode)
	if cfg.App.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	engine := router.NewEngine(router.Dependencies{
		Logger:      log,
		HTTP:        cfg.HTTP,
		ServiceName: cfg.Telemetry.ServiceName,
		JWT:         jwtService,
		Imports:     batchService,
		System: handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		}, worker),
		Meter:            meterProvider.Meter("catalogsync/http"),
		TracingEnabled:   tracerProvider.IsEnabled(),
		ProfilingEnabled: cfg.Telemetry.ProfilingEnabled,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := worker.Stop(shutdownCtx); err != nil {
		log.Error("Import worker did not stop cleanly", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Failed to stop profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush logs", zap.Error(err))
	}

	log.Info("Server exited")
}

func runMigrations(db *persistence.Database, log *zap.Logger) {
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get database handle", zap.Error(err))
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		log.Fatal("Failed to initialize migrations", zap.Error(err))
	}
	if err := m.Up(); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}
}

// newRemoteCatalog returns nil when no store credentials are configured.
// Claimed batches then fail with a configuration error instead of the process refusing to start.
func newRemoteCatalog(cfg *config.Config, log *zap.Logger) integration.RemoteCatalog {
	if !cfg.Shopify.IsConfigured() {
		log.Warn("Shopify credentials are not configured, imports will fail until they are set")
		return nil
	}
	adapter, err := ecommerce.NewShopifyAdapter(&ecommerce.ShopifyConfig{
		ShopDomain:         cfg.Shopify.ShopDomain,
		AccessToken:        cfg.Shopify.AccessToken,
		APIVersion:         cfg.Shopify.APIVersion,
		BaseURL:            cfg.Shopify.BaseURL,
		TimeoutSeconds:     cfg.Shopify.TimeoutSeconds,
		MinRequestInterval: cfg.Shopify.MinRequestInterval,
	}, ecommerce.WithLogger(log))
	if err != nil {
		log.Error("Invalid Shopify configuration", zap.Error(err))
		return nil
	}
	return adapter
}

func newPayloadArchive(cfg *config.Config, log *zap.Logger) *storage.S3PayloadArchive {
	if !cfg.Storage.Enabled {
		return nil
	}
	archive, err := storage.NewS3PayloadArchive(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize payload archive", zap.Error(err))
	}
	return archive
}

func newMailer(cfg *config.Config, log *zap.Logger) importapp.Mailer {
	if cfg.SMTP.Host == "" {
		return notification.NewLogMailer(log)
	}
	mailer, err := notification.NewSMTPMailer(&cfg.SMTP, notification.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}
	return mailer
}
