// metrics.go — Prometheus HTTP метрики Pinwall.
// Регистрирует метрики: pw_http_requests_total, pw_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pw_http_requests_total",
			Help: "Общее количество HTTP-запросов к Pinwall",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pw_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Pinwall в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем идентификаторы на {id} для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет изменяемые сегменты пути на плейсхолдеры для
// предотвращения взрывного роста кардинальности метрик.
// /api/v1/pins/a1b2c3d4-.../like → /api/v1/pins/{id}/like
// /api/v1/scheduler/jobs/pin-expiration/run → /api/v1/scheduler/jobs/{name}/run
func normalizePath(path string) string {
	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/pins",
		"/api/v1/submissions",
		"/api/v1/submissions/voice",
		"/api/v1/submissions/article",
		"/api/v1/analytics/overview",
		"/api/v1/analytics/interactions",
		"/api/v1/analytics/submissions",
		"/api/v1/analytics/top-pins",
		"/api/v1/analytics/dashboard",
		"/api/v1/analytics/snapshots",
		"/api/v1/scheduler/jobs":
		return path
	}

	// Задачи планировщика идентифицируются именем, не UUID
	if rest, ok := strings.CutPrefix(path, "/api/v1/scheduler/jobs/"); ok {
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			switch rest[idx:] {
			case "/run", "/pause", "/resume":
				return "/api/v1/scheduler/jobs/{name}" + rest[idx:]
			}
		}
		return "/api/v1/scheduler/jobs/{name}"
	}

	// Динамические пути с UUID
	prefixes := []struct {
		prefix string
		result string
	}{
		{"/api/v1/pins/", "/api/v1/pins/{id}"},
		{"/api/v1/submissions/", "/api/v1/submissions/{id}"},
	}

	for _, p := range prefixes {
		if len(path) > len(p.prefix) && path[:len(p.prefix)] == p.prefix {
			suffix := ""
			// Проверяем суффиксы после UUID (36 символов)
			if len(path) > len(p.prefix)+36 {
				suffix = path[len(p.prefix)+36:]
			}
			switch suffix {
			case "/status", "/like", "/seen", "/interactions",
				"/review", "/archive":
				return p.result + suffix
			default:
				return p.result
			}
		}
	}

	return path
}
