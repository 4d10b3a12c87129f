// Точка входа Pinwall — сервис курируемой ленты пинов.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// собирает репозитории и сервисный слой, регистрирует периодические
// задачи планировщика и запускает HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/arturkryukov/pinwall/internal/api/handlers"
	"github.com/arturkryukov/pinwall/internal/config"
	"github.com/arturkryukov/pinwall/internal/database"
	"github.com/arturkryukov/pinwall/internal/events"
	"github.com/arturkryukov/pinwall/internal/repository"
	"github.com/arturkryukov/pinwall/internal/scheduler"
	"github.com/arturkryukov/pinwall/internal/server"
	"github.com/arturkryukov/pinwall/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Pinwall запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.Int("feed_cap", cfg.FeedCap),
		slog.String("pin_ttl", cfg.PinTTL.String()),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Repositories
	txRunner := repository.NewTxRunner(pool)
	pinRepo := repository.NewPinRepository(pool)
	interactionRepo := repository.NewInteractionRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	snapshotRepo := repository.NewSnapshotRepository(pool)

	// 6. Шина доменных событий
	bus := events.NewBus(logger, cfg.EventQueueSize, events.NewLogSubscriber(logger))

	// 7. Services
	lifecycleSvc := service.NewLifecycleService(
		pinRepo, txRunner, bus,
		cfg.FeedCap, cfg.PinTTL,
		logger,
	)
	engagementSvc := service.NewEngagementService(
		pinRepo, interactionRepo, bus,
		logger,
	)
	moderationSvc := service.NewModerationService(
		submissionRepo, lifecycleSvc, bus,
		logger,
	)
	analyticsSvc := service.NewAnalyticsService(
		pinRepo, interactionRepo, submissionRepo, snapshotRepo,
		logger,
	)

	// 8. Планировщик периодических задач
	jobs := scheduler.New(ctx, logger)

	if err := jobs.Register("pin-expiration", cfg.ExpirationCron, func(ctx context.Context) error {
		_, err := lifecycleSvc.ExpirePins(ctx)
		return err
	}); err != nil {
		logger.Error("Ошибка регистрации задачи", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := jobs.Register("fifo-eviction", cfg.FifoCron, func(ctx context.Context) error {
		_, err := lifecycleSvc.EnforceFIFOCap(ctx)
		return err
	}); err != nil {
		logger.Error("Ошибка регистрации задачи", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := jobs.Register("weekly-cleanup", cfg.CleanupCron, func(ctx context.Context) error {
		if _, err := lifecycleSvc.ArchiveUnpinned(ctx, cfg.Retention()); err != nil {
			return err
		}
		if _, err := moderationSvc.ArchiveRejected(ctx, cfg.Retention()); err != nil {
			return err
		}
		_, err := analyticsSvc.WeeklySnapshot(ctx)
		return err
	}); err != nil {
		logger.Error("Ошибка регистрации задачи", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := jobs.Register("daily-analytics", cfg.AnalyticsCron, func(ctx context.Context) error {
		_, err := analyticsSvc.DailySnapshot(ctx)
		return err
	}); err != nil {
		logger.Error("Ошибка регистрации задачи", slog.String("error", err.Error()))
		os.Exit(1)
	}

	jobs.Start()

	// 9. Health handler и API handler
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool))
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		lifecycleSvc,
		engagementSvc,
		moderationSvc,
		analyticsSvc,
		jobs,
		logger,
	)

	// 10. Запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 11. Graceful shutdown фоновых компонентов
	logger.Info("Останавливаем фоновые задачи...")
	jobs.StopAll(cfg.ShutdownTimeout)
	cancel()
	bus.Close()

	logger.Info("Pinwall остановлен")
}
