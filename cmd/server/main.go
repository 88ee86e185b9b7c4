package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/cache"
	"github.com/SAP-F-2025/quiz-engine/internal/config"
	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/handlers"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories/memory"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-engine/internal/services"
	"github.com/SAP-F-2025/quiz-engine/internal/utils"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
	"github.com/SAP-F-2025/quiz-engine/pkg"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== STORAGE =====
	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}

	redisClient, err := pkg.NewRedisClient(ctx, cfg)
	if err != nil {
		return err
	}

	var (
		locker   services.AttemptLocker
		sessions cache.SessionStore
	)
	if redisClient != nil {
		defer redisClient.Close()
		locker = cache.NewRedisLocker(redisClient, cfg.AttemptLockTTL, logger)
		sessions = cache.NewCacheSessionStore(cache.NewRedisCache(redisClient, logger))
		logger.Info("Using Redis for guest sessions and attempt locks")
	} else {
		locker = services.NewLocalLocker()
		sessions = cache.NewMemorySessionStore()
		logger.Info("REDIS_URL not set, using in-process guest sessions and attempt locks")
	}

	// ===== EVENTS =====
	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()
	startLocalConsumer(ctx, publisher, logger)

	// ===== SERVICES =====
	v := validator.New()
	manager := services.NewServiceManager(repo, services.ManagerConfig{
		Locker:          locker,
		Sessions:        sessions,
		EventPublisher:  publisher,
		AtRiskThreshold: cfg.AtRiskThreshold,
		GuestSessionTTL: cfg.GuestSessionTTL,
	}, v, logger)

	if cfg.SeedFile != "" {
		if _, err := manager.Seed.LoadFile(ctx, cfg.SeedFile); err != nil {
			return err
		}
	}

	go sweepExpiredAttempts(ctx, manager.Attempt, cfg.AttemptSweepInterval, logger)

	// ===== HTTP =====
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handlers.NewHandlerManager(manager, healthCheck{repo: repo, redis: redisClient}, v, logger).SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", server.Addr, "db_driver", cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.Repository, error) {
	if cfg.DBDriver == "memory" {
		logger.Warn("Using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	}

	db, err := pkg.InitDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := postgres.NewStore(db)
	if err := store.AutoMigrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// startLocalConsumer logs attempt events when they are published in process.
func startLocalConsumer(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger) {
	watermillPublisher, ok := publisher.(*events.WatermillEventPublisher)
	if !ok {
		return
	}
	subscriber, ok := watermillPublisher.Subscriber()
	if !ok {
		return
	}

	consumer := events.NewConsumer(subscriber, watermillPublisher.Topic(), logger)
	consumer.Handle(events.EventAttemptCompleted, func(ctx context.Context, event *events.ReceivedEvent) error {
		var data events.AttemptCompletedEvent
		if err := event.Decode(&data); err != nil {
			return err
		}
		logger.Info("Attempt completed",
			"attempt_id", data.AttemptID,
			"quiz_id", data.QuizID,
			"percentage", data.Percentage,
			"end_reason", data.EndReason)
		return nil
	})

	done, err := consumer.Start(ctx)
	if err != nil {
		logger.Error("Failed to start local event consumer", "error", err)
		return
	}
	go func() {
		if err := <-done; err != nil {
			logger.Error("Local event consumer stopped", "error", err)
		}
	}()
}

func sweepExpiredAttempts(ctx context.Context, attempts services.AttemptService, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := attempts.ExpireStale(ctx, now.UTC()); err != nil {
				logger.Error("Attempt expiry sweep failed", "error", err)
			}
		}
	}
}

type healthCheck struct {
	repo  repositories.Repository
	redis *redis.Client
}

func (h healthCheck) Ping(ctx context.Context) error {
	if err := h.repo.Ping(ctx); err != nil {
		return err
	}
	if h.redis != nil {
		return h.redis.Ping(ctx).Err()
	}
	return nil
}
