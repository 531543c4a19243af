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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"hotelbook/internal/api"
	"hotelbook/internal/config"
	"hotelbook/internal/database"
	"hotelbook/internal/domain"
	"hotelbook/internal/events"
	"hotelbook/internal/google"
	"hotelbook/internal/logging"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"
	"hotelbook/internal/notify"
	"hotelbook/internal/repository"
	"hotelbook/internal/service"
	"hotelbook/internal/validation"
	"hotelbook/internal/worker"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := database.Open(cfg.Storage.Driver, cfg.Storage.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Storage.Path).Msg("open storage")
		return err
	}
	store := database.NewStore(backend, logger)
	defer store.Close()

	bus := events.NewEventBus(logging.Component(logger, "events"))
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		metrics.Subscribe(bus)
	}

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	syncWorker := initSheetsSync(ctx, cfg, redisClient, logger)
	initNotifier(ctx, cfg, bus, logger)

	v := validation.New()
	var bookingSync domain.SyncWorker
	if syncWorker != nil {
		bookingSync = syncWorker
	}
	svc := api.Services{
		Bookings: service.NewBookingService(store, v, bus, bookingSync, logging.Component(logger, "bookings")),
		Catalog:  service.NewCatalogService(store, v, logging.Component(logger, "catalog")),
		Hotel:    service.NewHotelService(store, v, logging.Component(logger, "hotel")),
	}

	loc, err := cfg.Hotel.Location()
	if err != nil {
		return err
	}
	svc.Bookings.SetLocation(loc)

	if err := seedStore(ctx, cfg, svc, logger); err != nil {
		return err
	}

	backup := database.NewBackupService(cfg.Storage, cfg.Backup, logging.Component(logger, "backup"))
	go backup.Start(ctx)

	httpServer, err := api.NewHTTPServer(cfg, svc, publicLimiter(ctx, redisClient, logger), logging.Component(logger, "http"))
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	return serve(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.DefaultPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(client)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// publicLimiter prefers Redis and falls back to process memory when Redis is
// absent or goes down.
func publicLimiter(ctx context.Context, redisClient *redis.Client, logger *zerolog.Logger) domain.RateLimiter {
	memory := repository.NewMemoryRateLimiter()
	go sweepLimiter(ctx, memory)

	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverRateLimiter(repository.NewRedisRateLimiter(redisClient), memory, logging.Component(logger, "ratelimit"))
}

func sweepLimiter(ctx context.Context, limiter *repository.MemoryRateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}

func initSheetsSync(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) *worker.SheetsWorker {
	if !cfg.Google.Enabled() {
		return nil
	}

	sheetsLogger := logging.Component(logger, "sheets")
	sheetsService, err := google.NewSheetsService(ctx, cfg.Google, sheetsLogger)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.EnsureHeader(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, continuing without sheets")
		return nil
	}
	go sheetsService.Start(ctx)

	w := worker.NewSheetsWorker(sheetsService, redisClient, worker.DefaultRetryPolicy(), logging.Component(logger, "sheets-worker"))
	go w.Start(ctx)

	logger.Info().Str("spreadsheet", cfg.Google.BookingSpreadSheetID).Msg("google sheets connected")
	return w
}

func initNotifier(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if !cfg.Telegram.Enabled() {
		return
	}

	bot, err := notify.NewBotSender(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}

	n := notify.NewNotifier(bot, cfg.Telegram.ManagerChats, logging.Component(logger, "notify"))
	n.Subscribe(bus)
	go n.Start(ctx)
	logger.Info().Str("bot", bot.Self.UserName).Int("chats", len(cfg.Telegram.ManagerChats)).Msg("telegram notifications enabled")
}

// seedStore fills the hotel profile and, on an empty catalog, the rooms.
func seedStore(ctx context.Context, cfg *config.Config, svc api.Services, logger *zerolog.Logger) error {
	err := svc.Hotel.ApplyDefaults(ctx, models.HotelProfile{
		Name:    cfg.Hotel.Name,
		Address: cfg.Hotel.Address,
		Phone:   cfg.Hotel.Phone,
	})
	if err != nil {
		return fmt.Errorf("apply hotel defaults: %w", err)
	}

	seedPath := os.Getenv("SEED_PATH")
	if seedPath == "" {
		seedPath = cfg.Hotel.SeedPath
	}
	if seedPath == "" {
		return nil
	}

	rooms, err := config.LoadSeedRooms(seedPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn().Str("seed_path", seedPath).Msg("seed file not found, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	inputs := make([]service.RoomInput, 0, len(rooms))
	for _, r := range rooms {
		inputs = append(inputs, service.RoomInput{Number: r.Number, Type: r.Type, Price: r.Price, InService: r.InService})
	}
	added, err := svc.Catalog.SeedRooms(ctx, inputs)
	if err != nil {
		return fmt.Errorf("seed rooms: %w", err)
	}
	if added > 0 {
		logger.Info().Int("rooms", added).Msg("room catalog seeded")
	}
	return nil
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
