// Пакет config — загрузка и валидация конфигурации Pinwall
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Pinwall.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Лента ---

	// Ёмкость ленты: сколько новейших активных пинов остаётся
	// при FIFO-вытеснении
	FeedCap int
	// Срок жизни пина от создания до истечения
	PinTTL time.Duration
	// Окно хранения перед архивированием снятых пинов и отклонённых
	// заявок (еженедельная уборка)
	RetentionDays int

	// --- Планировщик (cron-выражения, 5 полей) ---

	// Расписание снятия истёкших пинов
	ExpirationCron string
	// Расписание FIFO-вытеснения
	FifoCron string
	// Расписание еженедельной уборки
	CleanupCron string
	// Расписание ежедневной аналитики
	AnalyticsCron string

	// --- События ---

	// Размер очереди шины доменных событий
	EventQueueSize int

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера и планировщика
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// PW_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("PW_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("PW_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PW_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// PW_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PW_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PW_LOG_LEVEL: %w", err)
	}

	// PW_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("PW_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PW_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// PW_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("PW_DB_HOST")
	if err != nil {
		return nil, err
	}

	// PW_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("PW_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("PW_DB_PORT: %w", err)
	}

	// PW_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("PW_DB_NAME")
	if err != nil {
		return nil, err
	}

	// PW_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("PW_DB_USER")
	if err != nil {
		return nil, err
	}

	// PW_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("PW_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// PW_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("PW_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("PW_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Лента ---

	// PW_FEED_CAP — ёмкость ленты (по умолчанию 20)
	cfg.FeedCap, err = getEnvInt("PW_FEED_CAP", 20)
	if err != nil {
		return nil, fmt.Errorf("PW_FEED_CAP: %w", err)
	}
	if cfg.FeedCap < 1 || cfg.FeedCap > 1000 {
		return nil, fmt.Errorf("PW_FEED_CAP: значение %d вне допустимого диапазона 1-1000", cfg.FeedCap)
	}

	// PW_PIN_TTL — срок жизни пина (по умолчанию 168h, 7 суток)
	cfg.PinTTL, err = getEnvDuration("PW_PIN_TTL", 168*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PW_PIN_TTL: %w", err)
	}
	if cfg.PinTTL <= 0 {
		return nil, fmt.Errorf("PW_PIN_TTL: длительность должна быть положительной")
	}

	// PW_RETENTION_DAYS — окно хранения перед архивированием (по умолчанию 30)
	cfg.RetentionDays, err = getEnvInt("PW_RETENTION_DAYS", 30)
	if err != nil {
		return nil, fmt.Errorf("PW_RETENTION_DAYS: %w", err)
	}
	if cfg.RetentionDays < 1 {
		return nil, fmt.Errorf("PW_RETENTION_DAYS: значение %d должно быть не меньше 1", cfg.RetentionDays)
	}

	// --- Планировщик ---

	// PW_EXPIRATION_CRON — снятие истёкших пинов (по умолчанию ежечасно)
	cfg.ExpirationCron, err = getEnvCron("PW_EXPIRATION_CRON", "0 * * * *")
	if err != nil {
		return nil, err
	}

	// PW_FIFO_CRON — FIFO-вытеснение (по умолчанию каждые 30 минут)
	cfg.FifoCron, err = getEnvCron("PW_FIFO_CRON", "*/30 * * * *")
	if err != nil {
		return nil, err
	}

	// PW_CLEANUP_CRON — еженедельная уборка (по умолчанию воскресенье 02:00)
	cfg.CleanupCron, err = getEnvCron("PW_CLEANUP_CRON", "0 2 * * 0")
	if err != nil {
		return nil, err
	}

	// PW_ANALYTICS_CRON — ежедневная аналитика (по умолчанию 06:00)
	cfg.AnalyticsCron, err = getEnvCron("PW_ANALYTICS_CRON", "0 6 * * *")
	if err != nil {
		return nil, err
	}

	// --- События ---

	// PW_EVENT_QUEUE — размер очереди шины событий (по умолчанию 256)
	cfg.EventQueueSize, err = getEnvInt("PW_EVENT_QUEUE", 256)
	if err != nil {
		return nil, fmt.Errorf("PW_EVENT_QUEUE: %w", err)
	}
	if cfg.EventQueueSize < 1 {
		return nil, fmt.Errorf("PW_EVENT_QUEUE: значение %d должно быть не меньше 1", cfg.EventQueueSize)
	}

	// --- Graceful shutdown ---

	// PW_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("PW_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PW_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// Retention возвращает окно хранения как длительность.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvCron возвращает cron-выражение из переменной окружения или значение
// по умолчанию, проверяя синтаксис (стандартные 5 полей).
func getEnvCron(key, defaultVal string) (string, error) {
	val := getEnvDefault(key, defaultVal)
	if _, err := cron.ParseStandard(val); err != nil {
		return "", fmt.Errorf("%s: некорректное cron-выражение %q: %w", key, val, err)
	}
	return val, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
