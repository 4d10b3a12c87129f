package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/pinwall/internal/domain/model"
)

const interactionColumns = `id, student_id, pin_id, kind, like_subtype, view_duration, created_at`

// InteractionRepository — интерфейс доступа к таблице interactions.
// Уникальность (student_id, pin_id, kind) обеспечивается ограничением
// interactions_dedup; нарушение транслируется в ErrConflict.
type InteractionRepository interface {
	// Create создаёт взаимодействие. Возвращает ErrConflict, если запись
	// с тем же ключом дедупликации уже существует.
	Create(ctx context.Context, in *model.Interaction) error
	// GetByKey возвращает взаимодействие по ключу дедупликации.
	GetByKey(ctx context.Context, studentID, pinID string, kind model.InteractionKind) (*model.Interaction, error)
	// DeleteByKey удаляет взаимодействие по ключу дедупликации.
	DeleteByKey(ctx context.Context, studentID, pinID string, kind model.InteractionKind) error
	// UpdateDurationMax поднимает длительность просмотра до max(текущая,
	// duration). High-watermark: значение в БД никогда не убывает.
	UpdateDurationMax(ctx context.Context, studentID, pinID string, duration int64) error
	// CountsByKind возвращает количество взаимодействий пина по видам.
	CountsByKind(ctx context.Context, pinID string) (*model.InteractionCounts, error)
	// ListByStudent возвращает взаимодействия студента, новейшие первыми.
	ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*model.Interaction, error)
	// CountByKindSince возвращает количество взаимодействий по видам,
	// созданных после since.
	CountByKindSince(ctx context.Context, since time.Time) (map[model.InteractionKind]int64, error)
	// TopPins возвращает limit пинов с наибольшей вовлечённостью
	// (лайки + просмотры) внутри окна наблюдения.
	TopPins(ctx context.Context, since time.Time, limit int) ([]*model.TopPin, error)
}

// interactionRepo — реализация InteractionRepository.
type interactionRepo struct {
	db DBTX
}

// NewInteractionRepository создаёт репозиторий взаимодействий.
func NewInteractionRepository(db DBTX) InteractionRepository {
	return &interactionRepo{db: db}
}

func (r *interactionRepo) Create(ctx context.Context, in *model.Interaction) error {
	query := `
		INSERT INTO interactions (id, student_id, pin_id, kind, like_subtype, view_duration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var subtype *string
	if in.LikeSubtype != "" {
		s := string(in.LikeSubtype)
		subtype = &s
	}

	_, err := r.db.Exec(ctx, query,
		in.ID, in.StudentID, in.PinID, in.Kind, subtype, in.ViewDuration, in.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: взаимодействие %s/%s/%s", ErrConflict, in.StudentID, in.PinID, in.Kind)
		}
		return fmt.Errorf("ошибка создания взаимодействия: %w", err)
	}
	return nil
}

func (r *interactionRepo) GetByKey(ctx context.Context, studentID, pinID string, kind model.InteractionKind) (*model.Interaction, error) {
	query := `
		SELECT ` + interactionColumns + `
		FROM interactions
		WHERE student_id = $1 AND pin_id = $2 AND kind = $3`

	in, err := scanInteraction(r.db.QueryRow(ctx, query, studentID, pinID, kind))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения взаимодействия: %w", err)
	}
	return in, nil
}

func (r *interactionRepo) DeleteByKey(ctx context.Context, studentID, pinID string, kind model.InteractionKind) error {
	query := `DELETE FROM interactions WHERE student_id = $1 AND pin_id = $2 AND kind = $3`

	tag, err := r.db.Exec(ctx, query, studentID, pinID, kind)
	if err != nil {
		return fmt.Errorf("ошибка удаления взаимодействия: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *interactionRepo) UpdateDurationMax(ctx context.Context, studentID, pinID string, duration int64) error {
	// GREATEST в SQL — монотонность обеспечивается хранилищем, а не
	// чтением-изменением-записью в коде движка
	query := `
		UPDATE interactions
		SET view_duration = GREATEST(view_duration, $4)
		WHERE student_id = $1 AND pin_id = $2 AND kind = $3`

	tag, err := r.db.Exec(ctx, query, studentID, pinID, model.InteractionSeen, duration)
	if err != nil {
		return fmt.Errorf("ошибка обновления длительности просмотра: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *interactionRepo) CountsByKind(ctx context.Context, pinID string) (*model.InteractionCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE kind = 'like'),
			COUNT(*) FILTER (WHERE kind = 'seen')
		FROM interactions
		WHERE pin_id = $1`

	counts := &model.InteractionCounts{}
	if err := r.db.QueryRow(ctx, query, pinID).Scan(&counts.Likes, &counts.Seen); err != nil {
		return nil, fmt.Errorf("ошибка подсчёта взаимодействий: %w", err)
	}
	return counts, nil
}

func (r *interactionRepo) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*model.Interaction, error) {
	query := `
		SELECT ` + interactionColumns + `
		FROM interactions
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, studentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории взаимодействий: %w", err)
	}
	defer rows.Close()

	var result []*model.Interaction
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования взаимодействия: %w", err)
		}
		result = append(result, in)
	}
	return result, rows.Err()
}

func (r *interactionRepo) CountByKindSince(ctx context.Context, since time.Time) (map[model.InteractionKind]int64, error) {
	query := `
		SELECT kind, COUNT(*)
		FROM interactions
		WHERE created_at >= $1
		GROUP BY kind`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта взаимодействий за окно: %w", err)
	}
	defer rows.Close()

	result := make(map[model.InteractionKind]int64)
	for rows.Next() {
		var (
			kind  model.InteractionKind
			count int64
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования вида взаимодействия: %w", err)
		}
		result[kind] = count
	}
	return result, rows.Err()
}

func (r *interactionRepo) TopPins(ctx context.Context, since time.Time, limit int) ([]*model.TopPin, error) {
	query := `
		SELECT p.id, p.title, p.kind,
			COUNT(*) FILTER (WHERE i.kind = 'like') AS window_likes,
			COUNT(*) FILTER (WHERE i.kind = 'seen') AS window_seen,
			COUNT(*) AS score
		FROM interactions i
		JOIN pins p ON p.id = i.pin_id
		WHERE i.created_at >= $1
		GROUP BY p.id, p.title, p.kind
		ORDER BY score DESC, p.id ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки топа пинов: %w", err)
	}
	defer rows.Close()

	var result []*model.TopPin
	for rows.Next() {
		tp := &model.TopPin{}
		if err := rows.Scan(&tp.PinID, &tp.Title, &tp.Kind, &tp.WindowLikes, &tp.WindowSeen, &tp.Score); err != nil {
			return nil, fmt.Errorf("ошибка сканирования топа пинов: %w", err)
		}
		result = append(result, tp)
	}
	return result, rows.Err()
}

// scanInteraction сканирует одну строку таблицы interactions.
func scanInteraction(row pgx.Row) (*model.Interaction, error) {
	in := &model.Interaction{}
	var subtype *string
	err := row.Scan(
		&in.ID, &in.StudentID, &in.PinID, &in.Kind,
		&subtype, &in.ViewDuration, &in.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if subtype != nil {
		in.LikeSubtype = model.LikeSubtype(*subtype)
	}
	return in, nil
}
