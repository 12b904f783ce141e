package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"github.com/werkbank-digital/planned/config"
	"github.com/werkbank-digital/planned/internal/handlers"
	"github.com/werkbank-digital/planned/pkg/asana"
	"github.com/werkbank-digital/planned/pkg/conflict"
	"github.com/werkbank-digital/planned/pkg/crypto"
	"github.com/werkbank-digital/planned/pkg/database"
	"github.com/werkbank-digital/planned/pkg/events"
	"github.com/werkbank-digital/planned/pkg/health"
	"github.com/werkbank-digital/planned/pkg/middleware"
	"github.com/werkbank-digital/planned/pkg/redis"
	"github.com/werkbank-digital/planned/pkg/repositories"
	"github.com/werkbank-digital/planned/pkg/scheduler"
	"github.com/werkbank-digital/planned/pkg/sync"
	"github.com/werkbank-digital/planned/pkg/timetac"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

var version = "dev"

func main() {
	// Missing .env is fine; containers set real env vars
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName: cfg.AppName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		Enabled:     cfg.OTLPEnabled,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to set up tracing")
		os.Exit(1)
	}

	sqlxDB, err := connectDatabase(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	db := database.NewDatabaseInstance(sqlxDB, logger)

	if err := runMigrations(cfg, logger, sqlxDB); err != nil {
		logger.WithError(err).Error("Failed to run migrations")
		os.Exit(1)
	}

	cipher, err := crypto.NewTokenCipher(cfg.TokenEncryptionKey)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize token cipher")
		os.Exit(1)
	}

	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to Redis")
		os.Exit(1)
	}
	locker := redis.NewLocker(redisClient, "")

	var producer *events.Producer
	var publisher sync.EventPublisher
	if cfg.KafkaEventsEnabled {
		producer = events.NewProducer(events.ParseConfig(cfg.KafkaBrokers, cfg.KafkaSyncEventsTopic), logger)
		publisher = producer
	}

	asanaClient := asana.NewClient(asana.Config{
		BaseURL:      cfg.AsanaBaseURL,
		TokenURL:     cfg.AsanaTokenURL,
		ClientID:     cfg.AsanaClientID,
		ClientSecret: cfg.AsanaClientSecret,
		Timeout:      cfg.HTTPClientTimeout,
	}, logger)
	timetacClient := timetac.NewClient(timetac.Config{
		BaseURL: cfg.TimeTacBaseURL,
		Timeout: cfg.HTTPClientTimeout,
	}, logger)

	credentialsRepo := repositories.NewCredentialsRepository(db, logger)
	projectRepo := repositories.NewProjectRepository(db, logger)
	phaseRepo := repositories.NewPhaseRepository(db, logger)
	absenceRepo := repositories.NewAbsenceRepository(db, logger)
	allocationRepo := repositories.NewAllocationRepository(db, logger)
	timeEntryRepo := repositories.NewTimeEntryRepository(db, logger)
	syncLogRepo := repositories.NewSyncLogRepository(db, logger)
	mappingRepo := repositories.NewMappingRepository(db, logger)
	conflictRepo := repositories.NewConflictRepository(db, logger)
	userRepo := repositories.NewUserRepository(db, logger)

	conflictService := conflict.NewService(allocationRepo, conflictRepo, logger)

	asanaSync := sync.NewSyncAsanaProjects(credentialsRepo, projectRepo, phaseRepo, syncLogRepo, asanaClient, cipher, publisher, logger)
	absenceSync := sync.NewSyncTimeTacAbsences(credentialsRepo, userRepo, absenceRepo, syncLogRepo, timetacClient, cipher, conflictService, publisher, logger)
	entrySync := sync.NewSyncTimeTacTimeEntries(credentialsRepo, userRepo, timeEntryRepo, syncLogRepo, mappingRepo, timetacClient, cipher, publisher, logger)
	connectTimeTac := sync.NewConnectTimeTac(credentialsRepo, timetacClient, cipher, logger)
	unlinkProject := sync.NewUnlinkProject(projectRepo, logger)
	phaseUpdate := sync.NewUpdateAsanaPhase(credentialsRepo, projectRepo, phaseRepo, asanaClient, cipher, logger)

	var syncScheduler *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		schedulerRepo := scheduler.NewRepository(db, logger)
		syncScheduler = scheduler.NewScheduler(schedulerRepo, locker, asanaSync, absenceSync, entrySync, scheduler.Config{
			PollInterval: cfg.SchedulerPollInterval,
			LockTTL:      cfg.SchedulerLockTTL,
		}, logger)
		if err := syncScheduler.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start scheduler")
			os.Exit(1)
		}
	}

	checker := health.NewChecker(sqlxDB, redisClient, version)

	e := newServer(cfg, logger)
	e.GET("/healthz", checker.LivenessHandler)
	e.GET("/readyz", checker.ReadinessHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	handlers.NewIntegrationsHandler(connectTimeTac, asanaSync, absenceSync, entrySync, syncLogRepo, locker, cfg.SchedulerLockTTL).RegisterRoutes(api)
	handlers.NewProjectsHandler(projectRepo, phaseRepo, unlinkProject, phaseUpdate).RegisterRoutes(api)
	handlers.NewAbsencesHandler(conflictRepo).RegisterRoutes(api)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server stopped")
		}
	}()
	checker.SetReady(true)
	logger.Infof("%s listening on port %d", cfg.AppName, cfg.Port)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down...")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if syncScheduler != nil {
		if err := syncScheduler.Stop(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Scheduler did not stop cleanly")
		}
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server did not stop cleanly")
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.WithError(err).Warn("Kafka producer did not close cleanly")
		}
	}
	if err := redisClient.Close(); err != nil {
		logger.WithError(err).Warn("Redis client did not close cleanly")
	}
	if err := sqlxDB.Close(); err != nil {
		logger.WithError(err).Warn("Database did not close cleanly")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Tracer did not shut down cleanly")
	}

	logger.Info("Shutdown complete")
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	if cfg.PrettyLogs {
		zapLogger, _ = zap.NewDevelopment()
	} else {
		zapLogger, _ = zap.NewProduction()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func connectDatabase(cfg config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword,
		cfg.DatabaseName, cfg.DatabaseSSLMode)

	db, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	return db, nil
}

func runMigrations(cfg config.Config, logger ectologger.Logger, db *sqlx.DB) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	ms := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return ms.Migrate(cfg.DatabaseName, driver)
}

func newServer(cfg config.Config, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(echomw.Recover())
	e.HTTPErrorHandler = middleware.Error(logger)

	return e
}
