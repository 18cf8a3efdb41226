package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autoservice/internal/api"
	"autoservice/internal/config"
	"autoservice/internal/console"
	"autoservice/internal/database"
	"autoservice/internal/domain"
	"autoservice/internal/events"
	"autoservice/internal/google"
	"autoservice/internal/logging"
	"autoservice/internal/metrics"
	"autoservice/internal/models"
	"autoservice/internal/repository"
	"autoservice/internal/service"
	"autoservice/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Minute
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, baseLogger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	logger := logging.Component(baseLogger, "main")
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	feed := initFeed(redisClient, cfg, logger)
	stateService := initStateService(redisClient, logger)

	g, gctx := errgroup.WithContext(ctx)

	var syncer domain.SyncWorker
	if sheetsWorker := initSheetsWorker(gctx, cfg, db, redisClient, logger); sheetsWorker != nil {
		syncer = sheetsWorker
		g.Go(func() error {
			sheetsWorker.Start(gctx)
			return nil
		})
	}

	eventBus := events.NewEventBus()
	if notifier := initNotifier(cfg, logger); notifier != nil {
		eventBus.Subscribe(events.EventBookingCreated, notifier.Handle)
		g.Go(func() error {
			notifier.Run(gctx)
			return nil
		})
	}

	bookingService := service.NewBookingService(db, feed, eventBus, syncer, logging.Component(baseLogger, "bookings"))
	catalogService := service.NewCatalogService(db, cfg.Catalog.CacheTTL, logging.Component(baseLogger, "catalog"))
	submissionService := service.NewSubmissionService(catalogService, bookingService, logging.Component(baseLogger, "submissions"))

	registry := console.NewRegistry(gctx, bookingService, stateService, cfg.Admin.SessionTTL, baseLogger)
	g.Go(func() error {
		registry.RunJanitor(gctx, janitorInterval)
		return nil
	})

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, baseLogger)
		g.Go(func() error {
			backupService.Start(gctx)
			return nil
		})
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		g.Go(func() error {
			return startMetricsServer(gctx, cfg.Monitoring.PrometheusPort, logger)
		})
	}

	httpServer := api.NewHTTPServer(cfg, api.Deps{
		Bookings:    bookingService,
		Catalog:     catalogService,
		Submissions: submissionService,
		States:      stateService,
		Sessions:    registry,
		Ready:       db.PingContext,
		Logger:      baseLogger,
	})
	g.Go(httpServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		registry.CloseAll()
		return err
	})

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("autoservice started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("service stopped with error")
		return err
	}
	logger.Info().Msg("autoservice stopped")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, baseLogger, closer, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if err := db.SeedCatalog(ctx, cfg.Catalog.Services, cfg.Catalog.TimeSlots); err != nil {
		_ = db.Close()
		logger.Error().Err(err).Msg("seed catalog")
		return nil, err
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initFeed picks the Redis change feed when Redis is up so several API
// instances see each other's writes.
func initFeed(redisClient *redis.Client, cfg *config.Config, logger *zerolog.Logger) events.Feed {
	if redisClient == nil {
		logger.Info().Msg("using in-process change feed")
		return events.NewMemoryFeed()
	}
	logger.Info().Str("channel", cfg.Feed.Channel).Msg("using redis change feed")
	return events.NewRedisFeed(redisClient, cfg.Feed.Channel, logger)
}

func initStateService(redisClient *redis.Client, logger *zerolog.Logger) *service.StateService {
	ttl := time.Duration(models.DefaultStateTTL) * time.Second
	fallbackRepo := repository.NewMemoryStateRepository(ttl)
	if redisClient == nil {
		return service.NewStateService(fallbackRepo, logger)
	}

	primaryRepo := repository.NewRedisStateRepository(redisClient, ttl)
	stateRepo := repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)
	return service.NewStateService(stateRepo, logger)
}

func initSheetsWorker(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) *worker.SheetsWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingsSpreadsheetID == "" {
		logger.Info().Msg("google sheets not configured, sync disabled")
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		email, _ := google.ServiceAccountEmail(cfg.Google.CredentialsFile)
		logger.Warn().Err(err).Str("service_account", email).Msg("google sheets connection test failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to warm up sheets row cache")
	}

	retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	sheetsWorker := worker.NewSheetsWorker(db, sheetsService, redisClient, retryPolicy, logger)
	if err := sheetsWorker.EnqueueSyncAll(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to schedule initial sheets sync")
	}

	logger.Info().Msg("google sheets connected")
	return sheetsWorker
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) *service.ManagerNotifier {
	if cfg.Telegram.BotToken == "" || len(cfg.Telegram.ManagerChatIDs) == 0 {
		return nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, manager notifications disabled")
		return nil
	}
	botAPI.Debug = cfg.Telegram.Debug

	logger.Info().Str("bot", botAPI.Self.UserName).Int("chats", len(cfg.Telegram.ManagerChatIDs)).Msg("telegram notifications enabled")
	return service.NewManagerNotifier(service.NewTelegramService(botAPI), cfg.Telegram.ManagerChatIDs, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", port).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
		return err
	}
	return nil
}
