package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
	"github.com/finflowhq/finflow_backend/internal/core/ports/messaging"
	"github.com/finflowhq/finflow_backend/internal/core/services"
	"github.com/finflowhq/finflow_backend/internal/handlers"
	"github.com/finflowhq/finflow_backend/internal/middleware"
	"github.com/finflowhq/finflow_backend/internal/platform/broker"
	"github.com/finflowhq/finflow_backend/internal/platform/config"
	"github.com/finflowhq/finflow_backend/internal/platform/readstore"
	"github.com/finflowhq/finflow_backend/internal/repositories/database/pgsql"
	"github.com/finflowhq/finflow_backend/pkg/database"
	"github.com/gin-gonic/gin"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The sign conventions table must cover every account type before any
	// entry is posted.
	if err := domain.ValidateAccountTypes(); err != nil {
		logger.Error("Account type table is inconsistent", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection pool (for application use)
	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Error("Failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repos := pgsql.NewRepositoryProvider(dbPool)

	publisher := broker.NewKafkaPublisher(cfg.KafkaBrokers)
	defer publisher.Close()

	redisClient := readstore.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()
	readStore := readstore.NewRedisReadStore(redisClient)
	cache := readstore.NewRedisCacheInvalidator(redisClient)

	container := services.NewServiceContainer(*repos, publisher, readStore, cache, services.ContainerConfig{
		Outbox: services.OutboxConfig{
			PollInterval: cfg.OutboxPollInterval,
			BatchSize:    cfg.OutboxBatchSize,
			MaxRetries:   cfg.OutboxMaxRetries,
			TopicPrefix:  cfg.TopicPrefix,
		},
		Inbox: services.InboxConfig{
			PollInterval: cfg.InboxPollInterval,
			BatchSize:    cfg.InboxBatchSize,
			MaxRetries:   cfg.InboxMaxRetries,
		},
		Saga: services.SagaConfig{
			Retention: cfg.SagaRetention,
		},
	}, logger)

	// Background loops share one cancellation scope with the server.
	bgCtx, stopBg := context.WithCancel(context.Background())
	defer stopBg()

	go container.Outbox.Run(bgCtx)
	go container.Inbox.Run(bgCtx)
	go container.Saga.RunJanitor(bgCtx, cfg.SagaJanitorInterval)

	consumer := broker.NewKafkaConsumer(cfg.KafkaBrokers, cfg.ConsumerGroupID, cfg.ConsumeTopics, logger)
	defer consumer.Close()
	go func() {
		err := consumer.Consume(bgCtx, func(ctx context.Context, msg messaging.BrokerMessage) error {
			_, err := container.Inbox.ReceiveMessage(ctx, msg.MessageID, msg.Source, msg.EventType, msg.Payload)
			return err
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Consumer stopped", slog.String("error", err.Error()))
		}
	}()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, container)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received")

	stopBg()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", slog.String("error", err.Error()))
	}
	logger.Info("Server exited")
}

func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	// Open a temporary standard sql.DB connection for migrations
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	if err := migrationDB.Ping(); err != nil {
		migrationDB.Close()
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		migrationDB.Close()
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		migrationDB.Close()
		return err
	}

	upErr := m.Up()
	sourceErr, dbErr := m.Close()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return upErr
	}
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if upErr == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
