// handler.go — основной обработчик API Pinwall.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/arturkryukov/pinwall/internal/api/errors"
	"github.com/arturkryukov/pinwall/internal/scheduler"
	"github.com/arturkryukov/pinwall/internal/service"
)

// actorHeader — заголовок с идентификатором действующего лица
// (студент, автор, модератор). Подставляется API Gateway после
// аутентификации.
const actorHeader = "X-Actor-Id"

// APIHandler — основной обработчик API Pinwall.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health     *HealthHandler
	lifecycle  *service.LifecycleService
	engagement *service.EngagementService
	moderation *service.ModerationService
	analytics  *service.AnalyticsService
	jobs       *scheduler.Scheduler
	logger     *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	lifecycle *service.LifecycleService,
	engagement *service.EngagementService,
	moderation *service.ModerationService,
	analytics *service.AnalyticsService,
	jobs *scheduler.Scheduler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:     health,
		lifecycle:  lifecycle,
		engagement: engagement,
		moderation: moderation,
		analytics:  analytics,
		jobs:       jobs,
		logger:     logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError преобразует ошибку сервисного слоя в HTTP-ответ:
// ErrValidation → 400, ErrNotFound → 404, ErrConflict → 409, иначе 500.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка обработки запроса",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// actorID возвращает идентификатор действующего лица из заголовка.
func actorID(r *http.Request) string {
	return r.Header.Get(actorHeader)
}

// requestOrigin собирает метаданные происхождения запроса.
func requestOrigin(r *http.Request) map[string]string {
	origin := map[string]string{
		"remote_addr": r.RemoteAddr,
	}
	if ua := r.UserAgent(); ua != "" {
		origin["user_agent"] = ua
	}
	return origin
}

// paginationDefaults нормализует параметры пагинации из query string.
// Возвращает корректные limit и offset.
func paginationDefaults(r *http.Request) (int, int) {
	l := 100
	o := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			l = v
		}
	}
	if l < 1 {
		l = 1
	}
	if l > 1000 {
		l = 1000
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			o = v
		}
	}
	if o < 0 {
		o = 0
	}

	return l, o
}

// queryInt читает целочисленный query-параметр; fallback при отсутствии
// или мусоре.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
