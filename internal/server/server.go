// Пакет server — HTTP-сервер Pinwall с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arturkryukov/pinwall/internal/api/handlers"
	"github.com/arturkryukov/pinwall/internal/api/middleware"
	"github.com/arturkryukov/pinwall/internal/config"
)

// Server — HTTP-сервер Pinwall.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую, без API Gateway
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/pins", func(r chi.Router) {
			r.Post("/", handler.CreatePin)
			r.Get("/", handler.ListPins)
			r.Get("/{id}", handler.GetPin)
			r.Patch("/{id}/status", handler.ChangeStatus)
			r.Delete("/{id}", handler.DeletePin)
			r.Post("/{id}/like", handler.ToggleLike)
			r.Post("/{id}/seen", handler.MarkSeen)
			r.Get("/{id}/interactions", handler.GetInteractions)
		})

		r.Route("/submissions", func(r chi.Router) {
			r.Post("/voice", handler.SubmitVoiceNote)
			r.Post("/article", handler.SubmitArticle)
			r.Get("/", handler.ListSubmissions)
			r.Get("/{id}", handler.GetSubmission)
			r.Post("/{id}/review", handler.ReviewSubmission)
			r.Post("/{id}/archive", handler.ArchiveSubmission)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/overview", handler.GetOverview)
			r.Get("/interactions", handler.GetInteractionAnalytics)
			r.Get("/submissions", handler.GetSubmissionAnalytics)
			r.Get("/top-pins", handler.GetTopPins)
			r.Get("/dashboard", handler.GetDashboard)
			r.Get("/snapshots", handler.GetSnapshots)
		})

		r.Route("/scheduler/jobs", func(r chi.Router) {
			r.Get("/", handler.ListJobs)
			r.Post("/{name}/run", handler.RunJob)
			r.Post("/{name}/pause", handler.PauseJob)
			r.Post("/{name}/resume", handler.ResumeJob)
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
