package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"localpro/internal/api"
	"localpro/internal/billing"
	"localpro/internal/config"
	"localpro/internal/database"
	"localpro/internal/events"
	"localpro/internal/export"
	"localpro/internal/google"
	"localpro/internal/logging"
	"localpro/internal/metrics"
	"localpro/internal/repository"
	"localpro/internal/service"
	"localpro/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	sheetsService := initGoogleSheets(ctx, cfg, &logger)

	var sheetsClient worker.SheetsClient
	if sheetsService != nil {
		sheetsClient = sheetsService
	}
	retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	syncWorker := worker.NewSyncWorker(db, sheetsClient, redisClient, retryPolicy, &logger)
	if sheetsService != nil {
		go syncWorker.Start(ctx)
	}

	eventBus := events.NewEventBus()
	eventQueue := initEventQueue(cfg, redisClient, &logger)
	subscribeNotificationEvents(ctx, eventBus, eventQueue, &logger)

	billingClient := billing.NewClient(cfg.Billing, &logger)

	availabilityService := service.NewAvailabilityService(db, &logger)
	detector := service.NewConflictDetector(availabilityService, db, &logger)
	bookingService := service.NewBookingService(
		db, detector, billingClient, eventBus, syncWorker,
		cfg.Booking.MaxAdvanceDays, cfg.Booking.PageSize, &logger,
	)
	requestService := service.NewRequestService(db, bookingService, &logger)
	reconciler := service.NewReconciler(bookingService, db, &logger)
	exporter := export.NewExporter(db, cfg.Exports.Path, &logger)

	go worker.NewReconcileLoop(reconciler, cfg.Booking.ReconcileTime, &logger).Start(ctx)

	startMetrics(ctx, cfg, &logger)

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config; nothing will serve requests")
		<-ctx.Done()
		return nil
	}

	httpServer := api.NewHTTPServer(
		cfg.API, availabilityService, bookingService, requestService,
		reconciler, exporter, &logger,
	)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "server-main").Logger()

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("create database directory")
		return err
	}
	if cfg.Exports.Path != "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			logger.Error().Err(err).Msg("create export directory")
			return err
		}
	}
	return nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if err := seedSlots(db, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("seed availability slots")
	}
	return db, nil
}

// seedSlots provisions configured calendar slots for providers that have
// none yet. Providers with any slots, active or not, are left alone.
func seedSlots(db *database.DB, cfg *config.Config, logger *zerolog.Logger) error {
	ctx := context.Background()
	seeded := 0
	for i := range cfg.Seed.Slots {
		slot := cfg.Seed.Slots[i]
		existing, err := db.ListSlots(ctx, slot.ProviderID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		slot.Active = true
		if err := db.CreateSlot(ctx, &slot); err != nil {
			return err
		}
		seeded++
	}
	if seeded > 0 {
		logger.Info().Int("count", seeded).Msg("availability slots seeded")
	}
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if !cfg.Sheets.Enabled {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.ScheduleSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

// initEventQueue builds the notification queue: redis primary with an
// in-memory fallback, or memory only when redis is absent.
func initEventQueue(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) *repository.FailoverEventQueue {
	fallback := repository.NewMemoryEventQueue(0)
	if redisClient == nil {
		return repository.NewFailoverEventQueue(fallback, fallback, logger)
	}
	key := cfg.Redis.EventQueueKey
	if key == "" {
		key = repository.DefaultEventQueueKey
	}
	primary := repository.NewRedisEventQueue(redisClient, key)
	return repository.NewFailoverEventQueue(primary, fallback, logger)
}

// subscribeNotificationEvents forwards every lifecycle event to the external
// notification queue.
func subscribeNotificationEvents(
	ctx context.Context,
	bus *events.EventBus,
	queue *repository.FailoverEventQueue,
	logger *zerolog.Logger,
) {
	forward := func(ev *events.Event) error {
		if err := queue.Enqueue(ctx, *ev); err != nil {
			logger.Error().Err(err).Str("event_type", ev.Type).Msg("event bus: enqueue notification")
		}
		return nil
	}

	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingRejected,
		events.EventBookingCancelled,
		events.EventBookingCompleted,
		events.EventBookingStarted,
	} {
		bus.Subscribe(eventType, forward)
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", port).Msg("metrics server started")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}
