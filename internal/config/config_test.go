package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setRequiredEnv задаёт минимальный набор обязательных переменных окружения.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PW_DB_HOST", "localhost")
	t.Setenv("PW_DB_NAME", "pinwall")
	t.Setenv("PW_DB_USER", "pinwall")
	t.Setenv("PW_DB_PASSWORD", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: неожиданная ошибка: %v", err)
	}

	if cfg.Port != 8000 {
		t.Errorf("Port: хотели 8000, получили %d", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: хотели info, получили %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: хотели json, получили %q", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort: хотели 5432, получили %d", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode: хотели disable, получили %q", cfg.DBSSLMode)
	}
	if cfg.FeedCap != 20 {
		t.Errorf("FeedCap: хотели 20, получили %d", cfg.FeedCap)
	}
	if cfg.PinTTL != 168*time.Hour {
		t.Errorf("PinTTL: хотели 168h, получили %v", cfg.PinTTL)
	}
	if cfg.RetentionDays != 30 {
		t.Errorf("RetentionDays: хотели 30, получили %d", cfg.RetentionDays)
	}
	if cfg.ExpirationCron != "0 * * * *" {
		t.Errorf("ExpirationCron: хотели %q, получили %q", "0 * * * *", cfg.ExpirationCron)
	}
	if cfg.FifoCron != "*/30 * * * *" {
		t.Errorf("FifoCron: хотели %q, получили %q", "*/30 * * * *", cfg.FifoCron)
	}
	if cfg.CleanupCron != "0 2 * * 0" {
		t.Errorf("CleanupCron: хотели %q, получили %q", "0 2 * * 0", cfg.CleanupCron)
	}
	if cfg.AnalyticsCron != "0 6 * * *" {
		t.Errorf("AnalyticsCron: хотели %q, получили %q", "0 6 * * *", cfg.AnalyticsCron)
	}
	if cfg.EventQueueSize != 256 {
		t.Errorf("EventQueueSize: хотели 256, получили %d", cfg.EventQueueSize)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout: хотели 5s, получили %v", cfg.ShutdownTimeout)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("PW_DB_HOST", "localhost")
	t.Setenv("PW_DB_NAME", "pinwall")
	t.Setenv("PW_DB_USER", "pinwall")
	// PW_DB_PASSWORD не задан

	_, err := Load()
	if err == nil {
		t.Fatal("Load: хотели ошибку при отсутствии PW_DB_PASSWORD, получили nil")
	}
	if !strings.Contains(err.Error(), "PW_DB_PASSWORD") {
		t.Errorf("ошибка должна упоминать PW_DB_PASSWORD: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PW_PORT", "8080")
	t.Setenv("PW_LOG_LEVEL", "debug")
	t.Setenv("PW_LOG_FORMAT", "text")
	t.Setenv("PW_FEED_CAP", "50")
	t.Setenv("PW_PIN_TTL", "72h")
	t.Setenv("PW_RETENTION_DAYS", "14")
	t.Setenv("PW_EXPIRATION_CRON", "15 * * * *")
	t.Setenv("PW_EVENT_QUEUE", "1024")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: неожиданная ошибка: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port: хотели 8080, получили %d", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: хотели debug, получили %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: хотели text, получили %q", cfg.LogFormat)
	}
	if cfg.FeedCap != 50 {
		t.Errorf("FeedCap: хотели 50, получили %d", cfg.FeedCap)
	}
	if cfg.PinTTL != 72*time.Hour {
		t.Errorf("PinTTL: хотели 72h, получили %v", cfg.PinTTL)
	}
	if cfg.RetentionDays != 14 {
		t.Errorf("RetentionDays: хотели 14, получили %d", cfg.RetentionDays)
	}
	if cfg.ExpirationCron != "15 * * * *" {
		t.Errorf("ExpirationCron: хотели %q, получили %q", "15 * * * *", cfg.ExpirationCron)
	}
	if cfg.EventQueueSize != 1024 {
		t.Errorf("EventQueueSize: хотели 1024, получили %d", cfg.EventQueueSize)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"некорректный порт", "PW_PORT", "abc"},
		{"порт вне диапазона", "PW_PORT", "70000"},
		{"некорректный уровень логов", "PW_LOG_LEVEL", "verbose"},
		{"некорректный формат логов", "PW_LOG_FORMAT", "xml"},
		{"некорректный SSL-режим", "PW_DB_SSL_MODE", "prefer"},
		{"нулевая ёмкость ленты", "PW_FEED_CAP", "0"},
		{"ёмкость вне диапазона", "PW_FEED_CAP", "5000"},
		{"отрицательный TTL", "PW_PIN_TTL", "-1h"},
		{"некорректный TTL", "PW_PIN_TTL", "7 days"},
		{"нулевое окно хранения", "PW_RETENTION_DAYS", "0"},
		{"некорректный cron", "PW_EXPIRATION_CRON", "каждый час"},
		{"cron с шестью полями", "PW_FIFO_CRON", "0 0 * * * *"},
		{"нулевая очередь событий", "PW_EVENT_QUEUE", "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.key, tc.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load: хотели ошибку для %s=%q, получили nil", tc.key, tc.value)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "db.local",
		DBPort:     5433,
		DBName:     "pinwall",
		DBUser:     "app",
		DBPassword: "secret",
		DBSSLMode:  "require",
	}

	want := "host=db.local port=5433 dbname=pinwall user=app password=secret sslmode=require"
	if got := cfg.DatabaseDSN(); got != want {
		t.Errorf("DatabaseDSN:\nхотели  %q\nполучили %q", want, got)
	}
}

func TestRetention(t *testing.T) {
	cfg := &Config{RetentionDays: 30}
	if got := cfg.Retention(); got != 30*24*time.Hour {
		t.Errorf("Retention: хотели 720h, получили %v", got)
	}
}
