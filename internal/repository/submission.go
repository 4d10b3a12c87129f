package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/pinwall/internal/domain/model"
)

const submissionColumns = `id, student_id, kind, title, content, audio_url, transcript,
	locale, tags, draft, origin, status, review_notes, reviewer_id, reviewed_at,
	created_at, updated_at`

// SubmissionRepository — интерфейс доступа к таблице submissions.
type SubmissionRepository interface {
	// Create создаёт заявку.
	Create(ctx context.Context, s *model.Submission) error
	// GetByID возвращает заявку по ID.
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	// ListPending возвращает очередь модерации: pending-заявки без
	// черновиков, старейшие первыми. kind == nil — все типы.
	ListPending(ctx context.Context, kind *model.SubmissionKind, limit, offset int) ([]*model.Submission, error)
	// ListByStudent возвращает заявки студента, новейшие первыми.
	ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*model.Submission, error)
	// Review переводит заявку из pending в status. Возвращает ErrConflict,
	// если заявка уже в терминальном статусе: условие WHERE status = 'pending'
	// делает повторное рассмотрение атомарно невозможным.
	Review(ctx context.Context, id, reviewerID string, status model.SubmissionStatus, notes string, now time.Time) error
	// Archive переводит заявку в archived. Разрешено только из pending
	// и rejected, иначе ErrConflict.
	Archive(ctx context.Context, id string, now time.Time) error
	// ArchiveRejectedBefore архивирует rejected-заявки, рассмотренные
	// раньше cutoff. Возвращает число архивированных.
	ArchiveRejectedBefore(ctx context.Context, cutoff, now time.Time) (int64, error)
	// CountByStatus возвращает количество заявок по статусам.
	CountByStatus(ctx context.Context) (map[model.SubmissionStatus]int64, error)
	// CountByKindSince возвращает количество заявок по типам, созданных
	// после since.
	CountByKindSince(ctx context.Context, since time.Time) (map[model.SubmissionKind]int64, error)
}

// submissionRepo — реализация SubmissionRepository.
type submissionRepo struct {
	db DBTX
}

// NewSubmissionRepository создаёт репозиторий заявок.
func NewSubmissionRepository(db DBTX) SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) Create(ctx context.Context, s *model.Submission) error {
	query := `
		INSERT INTO submissions (id, student_id, kind, title, content, audio_url, transcript,
			locale, tags, draft, origin, status, review_notes, reviewer_id, reviewed_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.Exec(ctx, query,
		s.ID, s.StudentID, s.Kind, s.Title, s.Content, s.AudioURL, s.Transcript,
		s.Locale, s.Tags, s.Draft, s.Origin, s.Status, s.ReviewNotes, s.ReviewerID, s.ReviewedAt,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: заявка %s", ErrConflict, s.ID)
		}
		return fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return nil
}

func (r *submissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE id = $1`

	s, err := scanSubmission(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения заявки: %w", err)
	}
	return s, nil
}

func (r *submissionRepo) ListPending(ctx context.Context, kind *model.SubmissionKind, limit, offset int) ([]*model.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE status = 'pending' AND NOT draft`
	args := []any{limit, offset}
	if kind != nil {
		query += ` AND kind = $3`
		args = append(args, *kind)
	}
	// Очередь модерации: старейшие первыми
	query += `
		ORDER BY created_at ASC, id ASC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения очереди модерации: %w", err)
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

func (r *submissionRepo) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*model.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, studentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заявок студента: %w", err)
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

func (r *submissionRepo) Review(ctx context.Context, id, reviewerID string, status model.SubmissionStatus, notes string, now time.Time) error {
	query := `
		UPDATE submissions
		SET status = $2, review_notes = $3, reviewer_id = $4, reviewed_at = $5, updated_at = $5
		WHERE id = $1 AND status = 'pending'`

	tag, err := r.db.Exec(ctx, query, id, status, notes, reviewerID, now)
	if err != nil {
		return fmt.Errorf("ошибка рассмотрения заявки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Либо заявки нет, либо она уже рассмотрена
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: заявка %s уже рассмотрена", ErrConflict, id)
	}
	return nil
}

func (r *submissionRepo) Archive(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE submissions
		SET status = 'archived', updated_at = $2
		WHERE id = $1 AND status IN ('pending', 'rejected')`

	tag, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("ошибка архивирования заявки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: заявка %s не подлежит архивированию", ErrConflict, id)
	}
	return nil
}

func (r *submissionRepo) ArchiveRejectedBefore(ctx context.Context, cutoff, now time.Time) (int64, error) {
	query := `
		UPDATE submissions
		SET status = 'archived', updated_at = $2
		WHERE status = 'rejected' AND reviewed_at < $1`

	tag, err := r.db.Exec(ctx, query, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("ошибка архивирования отклонённых заявок: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *submissionRepo) CountByStatus(ctx context.Context) (map[model.SubmissionStatus]int64, error) {
	query := `SELECT status, COUNT(*) FROM submissions GROUP BY status`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта заявок по статусам: %w", err)
	}
	defer rows.Close()

	result := make(map[model.SubmissionStatus]int64)
	for rows.Next() {
		var (
			status model.SubmissionStatus
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статуса заявки: %w", err)
		}
		result[status] = count
	}
	return result, rows.Err()
}

func (r *submissionRepo) CountByKindSince(ctx context.Context, since time.Time) (map[model.SubmissionKind]int64, error) {
	query := `
		SELECT kind, COUNT(*)
		FROM submissions
		WHERE created_at >= $1
		GROUP BY kind`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта заявок за окно: %w", err)
	}
	defer rows.Close()

	result := make(map[model.SubmissionKind]int64)
	for rows.Next() {
		var (
			kind  model.SubmissionKind
			count int64
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования типа заявки: %w", err)
		}
		result[kind] = count
	}
	return result, rows.Err()
}

// scanSubmission сканирует одну строку таблицы submissions.
func scanSubmission(row pgx.Row) (*model.Submission, error) {
	s := &model.Submission{}
	err := row.Scan(
		&s.ID, &s.StudentID, &s.Kind, &s.Title, &s.Content, &s.AudioURL, &s.Transcript,
		&s.Locale, &s.Tags, &s.Draft, &s.Origin, &s.Status, &s.ReviewNotes, &s.ReviewerID, &s.ReviewedAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// collectSubmissions собирает все строки результата в срез заявок.
func collectSubmissions(rows pgx.Rows) ([]*model.Submission, error) {
	var result []*model.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
