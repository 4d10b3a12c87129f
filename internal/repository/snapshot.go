package repository

import (
	"context"
	"fmt"

	"github.com/arturkryukov/pinwall/internal/domain/model"
)

// SnapshotRepository — интерфейс доступа к таблице analytics_snapshots.
// Таблица append-only: никаких Update и Delete.
type SnapshotRepository interface {
	// Insert сохраняет аналитический срез.
	Insert(ctx context.Context, s *model.AnalyticsSnapshot) error
	// ListRecent возвращает последние срезы горизонта scope, новейшие первыми.
	ListRecent(ctx context.Context, scope model.SnapshotScope, limit int) ([]*model.AnalyticsSnapshot, error)
}

// snapshotRepo — реализация SnapshotRepository.
type snapshotRepo struct {
	db DBTX
}

// NewSnapshotRepository создаёт репозиторий аналитических срезов.
func NewSnapshotRepository(db DBTX) SnapshotRepository {
	return &snapshotRepo{db: db}
}

func (r *snapshotRepo) Insert(ctx context.Context, s *model.AnalyticsSnapshot) error {
	query := `
		INSERT INTO analytics_snapshots (id, scope, captured_at, payload)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, s.ID, s.Scope, s.CapturedAt, s.Payload)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: срез %s", ErrConflict, s.ID)
		}
		return fmt.Errorf("ошибка сохранения аналитического среза: %w", err)
	}
	return nil
}

func (r *snapshotRepo) ListRecent(ctx context.Context, scope model.SnapshotScope, limit int) ([]*model.AnalyticsSnapshot, error) {
	query := `
		SELECT id, scope, captured_at, payload
		FROM analytics_snapshots
		WHERE scope = $1
		ORDER BY captured_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения аналитических срезов: %w", err)
	}
	defer rows.Close()

	var result []*model.AnalyticsSnapshot
	for rows.Next() {
		s := &model.AnalyticsSnapshot{}
		if err := rows.Scan(&s.ID, &s.Scope, &s.CapturedAt, &s.Payload); err != nil {
			return nil, fmt.Errorf("ошибка сканирования аналитического среза: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
