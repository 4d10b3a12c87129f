// analytics.go — сервис аналитики: read-only агрегаты по пинам,
// взаимодействиям и заявкам плюс append-only срезы для планировщика.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arturkryukov/pinwall/internal/domain/model"
	"github.com/arturkryukov/pinwall/internal/repository"
)

// Overview — глобальная сводка по всем хранилищам.
type Overview struct {
	// TotalPins — всего пинов
	TotalPins int64 `json:"total_pins"`
	// PinsByStatus — пины в разрезе статусов
	PinsByStatus map[model.PinStatus]int64 `json:"pins_by_status"`
	// PinsByKind — пины в разрезе типов контента
	PinsByKind map[model.PinKind]int64 `json:"pins_by_kind"`
	// Interactions — взаимодействия по видам за всё время
	Interactions map[model.InteractionKind]int64 `json:"interactions"`
	// SubmissionsByStatus — заявки в разрезе статусов
	SubmissionsByStatus map[model.SubmissionStatus]int64 `json:"submissions_by_status"`
}

// WindowedStats — агрегаты за окно наблюдения в днях.
type WindowedStats struct {
	// Days — размер окна
	Days int `json:"days"`
	// Total — всего записей в окне
	Total int64 `json:"total"`
	// ByKind — разбивка по видам
	ByKind map[string]int64 `json:"by_kind"`
}

// DashboardMetrics — ключевые показатели для дашборда.
type DashboardMetrics struct {
	// ActivePins — пинов в ленте
	ActivePins int64 `json:"active_pins"`
	// PendingSubmissions — заявок в очереди модерации
	PendingSubmissions int64 `json:"pending_submissions"`
	// TotalLikes — лайков за всё время
	TotalLikes int64 `json:"total_likes"`
	// TotalSeen — просмотров за всё время
	TotalSeen int64 `json:"total_seen"`
	// PinsCreatedToday — пинов опубликовано за последние сутки
	PinsCreatedToday int64 `json:"pins_created_today"`
}

// AnalyticsService — read-only сервис агрегатов.
type AnalyticsService struct {
	pins         repository.PinRepository
	interactions repository.InteractionRepository
	submissions  repository.SubmissionRepository
	snapshots    repository.SnapshotRepository
	logger       *slog.Logger

	// источник времени; подменяется в тестах
	now func() time.Time
}

// NewAnalyticsService создаёт сервис аналитики.
func NewAnalyticsService(
	pins repository.PinRepository,
	interactions repository.InteractionRepository,
	submissions repository.SubmissionRepository,
	snapshots repository.SnapshotRepository,
	logger *slog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		pins:         pins,
		interactions: interactions,
		submissions:  submissions,
		snapshots:    snapshots,
		logger:       logger.With(slog.String("component", "analytics_service")),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Overview возвращает глобальную сводку.
func (s *AnalyticsService) Overview(ctx context.Context) (*Overview, error) {
	byStatus, err := s.pins.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("сводка по пинам: %w", err)
	}
	byKind, err := s.pins.CountByKind(ctx)
	if err != nil {
		return nil, fmt.Errorf("сводка по типам пинов: %w", err)
	}
	interactions, err := s.interactions.CountByKindSince(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("сводка по взаимодействиям: %w", err)
	}
	subsByStatus, err := s.submissions.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("сводка по заявкам: %w", err)
	}

	var total int64
	for _, n := range byStatus {
		total += n
	}

	return &Overview{
		TotalPins:           total,
		PinsByStatus:        byStatus,
		PinsByKind:          byKind,
		Interactions:        interactions,
		SubmissionsByStatus: subsByStatus,
	}, nil
}

// InteractionAnalytics возвращает агрегаты взаимодействий за окно days.
func (s *AnalyticsService) InteractionAnalytics(ctx context.Context, days int) (*WindowedStats, error) {
	since, days, err := s.window(days)
	if err != nil {
		return nil, err
	}

	byKind, err := s.interactions.CountByKindSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("агрегаты взаимодействий: %w", err)
	}

	stats := &WindowedStats{Days: days, ByKind: make(map[string]int64, len(byKind))}
	for kind, n := range byKind {
		stats.ByKind[string(kind)] = n
		stats.Total += n
	}
	return stats, nil
}

// SubmissionAnalytics возвращает агрегаты заявок за окно days.
func (s *AnalyticsService) SubmissionAnalytics(ctx context.Context, days int) (*WindowedStats, error) {
	since, days, err := s.window(days)
	if err != nil {
		return nil, err
	}

	byKind, err := s.submissions.CountByKindSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("агрегаты заявок: %w", err)
	}

	stats := &WindowedStats{Days: days, ByKind: make(map[string]int64, len(byKind))}
	for kind, n := range byKind {
		stats.ByKind[string(kind)] = n
		stats.Total += n
	}
	return stats, nil
}

// TopPins возвращает limit пинов с наибольшей вовлечённостью
// (лайки + просмотры) за окно days.
func (s *AnalyticsService) TopPins(ctx context.Context, limit, days int) ([]*model.TopPin, error) {
	if limit < 1 || limit > 100 {
		return nil, fmt.Errorf("%w: limit %d вне допустимого диапазона 1-100", ErrValidation, limit)
	}
	since, _, err := s.window(days)
	if err != nil {
		return nil, err
	}

	top, err := s.interactions.TopPins(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("топ пинов: %w", err)
	}
	return top, nil
}

// Dashboard возвращает ключевые показатели для дашборда.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*DashboardMetrics, error) {
	byStatus, err := s.pins.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("показатели пинов: %w", err)
	}
	interactions, err := s.interactions.CountByKindSince(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("показатели взаимодействий: %w", err)
	}
	subsByStatus, err := s.submissions.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("показатели заявок: %w", err)
	}
	createdToday, err := s.pins.CountCreatedSince(ctx, s.now().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("показатели публикаций: %w", err)
	}

	return &DashboardMetrics{
		ActivePins:         byStatus[model.PinStatusActive],
		PendingSubmissions: subsByStatus[model.SubmissionPending],
		TotalLikes:         interactions[model.InteractionLike],
		TotalSeen:          interactions[model.InteractionSeen],
		PinsCreatedToday:   createdToday,
	}, nil
}

// DailySnapshot снимает и сохраняет ежедневный срез (окно 1 сутки).
func (s *AnalyticsService) DailySnapshot(ctx context.Context) (*model.AnalyticsSnapshot, error) {
	return s.snapshot(ctx, model.SnapshotDaily, 1)
}

// WeeklySnapshot снимает и сохраняет еженедельный срез (окно 7 суток).
func (s *AnalyticsService) WeeklySnapshot(ctx context.Context) (*model.AnalyticsSnapshot, error) {
	return s.snapshot(ctx, model.SnapshotWeekly, 7)
}

// RecentSnapshots возвращает последние срезы горизонта scope.
func (s *AnalyticsService) RecentSnapshots(ctx context.Context, scope model.SnapshotScope, limit int) ([]*model.AnalyticsSnapshot, error) {
	if scope != model.SnapshotDaily && scope != model.SnapshotWeekly {
		return nil, fmt.Errorf("%w: недопустимый горизонт %q", ErrValidation, scope)
	}
	list, err := s.snapshots.ListRecent(ctx, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("получение срезов: %w", err)
	}
	return list, nil
}

// snapshot собирает агрегаты окна и сохраняет их как append-only срез.
func (s *AnalyticsService) snapshot(ctx context.Context, scope model.SnapshotScope, days int) (*model.AnalyticsSnapshot, error) {
	now := s.now()
	since := now.Add(-time.Duration(days) * 24 * time.Hour)

	dashboard, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	interactions, err := s.interactions.CountByKindSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("срез взаимодействий: %w", err)
	}
	submissions, err := s.submissions.CountByKindSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("срез заявок: %w", err)
	}
	newPins, err := s.pins.CountCreatedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("срез публикаций: %w", err)
	}

	payload := map[string]any{
		"active_pins":         dashboard.ActivePins,
		"pending_submissions": dashboard.PendingSubmissions,
		"new_pins":            newPins,
		"window_likes":        interactions[model.InteractionLike],
		"window_seen":         interactions[model.InteractionSeen],
		"window_voice":        submissions[model.SubmissionVoice],
		"window_articles":     submissions[model.SubmissionArticle],
	}

	snap := &model.AnalyticsSnapshot{
		ID:         uuid.New().String(),
		Scope:      scope,
		CapturedAt: now,
		Payload:    payload,
	}
	if err := s.snapshots.Insert(ctx, snap); err != nil {
		return nil, fmt.Errorf("сохранение среза: %w", err)
	}

	s.logger.Info("Аналитический срез сохранён",
		slog.String("scope", string(scope)),
		slog.String("snapshot_id", snap.ID),
	)
	return snap, nil
}

// window переводит окно в днях в нижнюю границу времени.
// days <= 0 трактуется как окно по умолчанию в 7 дней.
func (s *AnalyticsService) window(days int) (time.Time, int, error) {
	if days <= 0 {
		days = 7
	}
	if days > 365 {
		return time.Time{}, 0, fmt.Errorf("%w: окно %d дней превышает максимум 365", ErrValidation, days)
	}
	return s.now().Add(-time.Duration(days) * 24 * time.Hour), days, nil
}
