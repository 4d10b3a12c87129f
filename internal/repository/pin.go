package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/pinwall/internal/domain/model"
)

// pinColumns — список колонок таблицы pins в порядке сканирования.
const pinColumns = `id, title, content, kind, author_id, official, locale, tags,
	status, likes, seen, shares, created_at, updated_at, expires_at`

// PinFilter — фильтр выборки пинов.
type PinFilter struct {
	// Status — фильтр по статусу (nil — без фильтра)
	Status *model.PinStatus
	// Kind — фильтр по типу контента
	Kind *model.PinKind
	// Official — фильтр по официальному флагу
	Official *bool
	// AuthorID — фильтр по автору
	AuthorID *string
}

// PinRepository — интерфейс доступа к таблице pins.
type PinRepository interface {
	// Create создаёт новый пин.
	Create(ctx context.Context, pin *model.Pin) error
	// GetByID возвращает пин по UUID.
	GetByID(ctx context.Context, id string) (*model.Pin, error)
	// List возвращает пины по фильтру, новейшие первыми.
	List(ctx context.Context, filter PinFilter, limit, offset int) ([]*model.Pin, error)
	// Count возвращает количество пинов по фильтру.
	Count(ctx context.Context, filter PinFilter) (int64, error)
	// UpdateStatus записывает статус пина.
	UpdateStatus(ctx context.Context, id string, status model.PinStatus, now time.Time) error
	// BulkUpdateStatus переводит все перечисленные пины в статус одним
	// запросом. Если обновилось меньше записей, чем передано id —
	// возвращает ошибку: частичный результат считается полным провалом.
	BulkUpdateStatus(ctx context.Context, ids []string, status model.PinStatus, now time.Time) error
	// ListExpired возвращает активные пины с expires_at <= now.
	ListExpired(ctx context.Context, now time.Time) ([]*model.Pin, error)
	// ListFIFOOverflow возвращает активные пины за пределами cap новейших.
	// Порядок детерминирован: created_at DESC, тай-брейк id ASC.
	ListFIFOOverflow(ctx context.Context, cap int) ([]*model.Pin, error)
	// IncrementCounter атомарно изменяет счётчик вовлечённости на delta.
	// Значение не опускается ниже нуля.
	IncrementCounter(ctx context.Context, id string, counter model.EngagementCounter, delta int64, now time.Time) error
	// ArchiveUnpinnedBefore архивирует снятые пины, не менявшиеся с cutoff.
	// Возвращает количество архивированных.
	ArchiveUnpinnedBefore(ctx context.Context, cutoff, now time.Time) (int64, error)
	// Delete физически удаляет пин (только явное админское действие).
	Delete(ctx context.Context, id string) error
	// CountByStatus возвращает количество пинов в разрезе статусов.
	CountByStatus(ctx context.Context) (map[model.PinStatus]int64, error)
	// CountByKind возвращает количество пинов в разрезе типов контента.
	CountByKind(ctx context.Context) (map[model.PinKind]int64, error)
	// CountCreatedSince возвращает количество пинов, созданных после since.
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

// pinRepo — реализация PinRepository.
type pinRepo struct {
	db DBTX
}

// NewPinRepository создаёт репозиторий пинов.
func NewPinRepository(db DBTX) PinRepository {
	return &pinRepo{db: db}
}

func (r *pinRepo) Create(ctx context.Context, pin *model.Pin) error {
	query := `
		INSERT INTO pins (id, title, content, kind, author_id, official, locale, tags,
			status, likes, seen, shares, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.Exec(ctx, query,
		pin.ID, pin.Title, pin.Content, pin.Kind, pin.AuthorID, pin.Official,
		pin.Locale, pin.Tags, pin.Status, pin.Likes, pin.Seen, pin.Shares,
		pin.CreatedAt, pin.UpdatedAt, pin.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: пин %s", ErrConflict, pin.ID)
		}
		return fmt.Errorf("ошибка создания пина: %w", err)
	}
	return nil
}

func (r *pinRepo) GetByID(ctx context.Context, id string) (*model.Pin, error) {
	query := `SELECT ` + pinColumns + ` FROM pins WHERE id = $1`

	pin, err := scanPin(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пина: %w", err)
	}
	return pin, nil
}

func (r *pinRepo) List(ctx context.Context, filter PinFilter, limit, offset int) ([]*model.Pin, error) {
	where, args := buildPinWhere(filter)
	query := fmt.Sprintf(`
		SELECT `+pinColumns+`
		FROM pins
		%s
		ORDER BY created_at DESC, id ASC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пинов: %w", err)
	}
	defer rows.Close()

	return collectPins(rows)
}

func (r *pinRepo) Count(ctx context.Context, filter PinFilter) (int64, error) {
	where, args := buildPinWhere(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM pins %s`, where)

	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пинов: %w", err)
	}
	return count, nil
}

func (r *pinRepo) UpdateStatus(ctx context.Context, id string, status model.PinStatus, now time.Time) error {
	query := `UPDATE pins SET status = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status, now)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса пина: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pinRepo) BulkUpdateStatus(ctx context.Context, ids []string, status model.PinStatus, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE pins SET status = $2, updated_at = $3 WHERE id = ANY($1)`

	tag, err := r.db.Exec(ctx, query, ids, status, now)
	if err != nil {
		return fmt.Errorf("ошибка массового обновления статуса: %w", err)
	}
	// Один UPDATE атомарен, но количество может разойтись, если часть
	// пинов исчезла между выборкой и обновлением. Считаем это провалом
	// всей пачки — вызывающий повторит идемпотентную операцию целиком.
	if got := tag.RowsAffected(); got != int64(len(ids)) {
		return fmt.Errorf("частичное обновление статуса: %d из %d записей", got, len(ids))
	}
	return nil
}

func (r *pinRepo) ListExpired(ctx context.Context, now time.Time) ([]*model.Pin, error) {
	query := `
		SELECT ` + pinColumns + `
		FROM pins
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, model.PinStatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки истёкших пинов: %w", err)
	}
	defer rows.Close()

	return collectPins(rows)
}

func (r *pinRepo) ListFIFOOverflow(ctx context.Context, cap int) ([]*model.Pin, error) {
	query := `
		SELECT ` + pinColumns + `
		FROM pins
		WHERE status = $1
		ORDER BY created_at DESC, id ASC
		OFFSET $2`

	rows, err := r.db.Query(ctx, query, model.PinStatusActive, cap)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки пинов за пределами ёмкости: %w", err)
	}
	defer rows.Close()

	return collectPins(rows)
}

func (r *pinRepo) IncrementCounter(ctx context.Context, id string, counter model.EngagementCounter, delta int64, now time.Time) error {
	// Имя колонки подставляется только из фиксированного множества —
	// произвольная строка сюда попасть не может.
	var column string
	switch counter {
	case model.CounterLikes:
		column = "likes"
	case model.CounterSeen:
		column = "seen"
	case model.CounterShares:
		column = "shares"
	default:
		return fmt.Errorf("неизвестный счётчик: %q", counter)
	}

	query := fmt.Sprintf(
		`UPDATE pins SET %s = GREATEST(%s + $2, 0), updated_at = $3 WHERE id = $1`,
		column, column,
	)

	tag, err := r.db.Exec(ctx, query, id, delta, now)
	if err != nil {
		return fmt.Errorf("ошибка изменения счётчика %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pinRepo) ArchiveUnpinnedBefore(ctx context.Context, cutoff, now time.Time) (int64, error) {
	query := `
		UPDATE pins SET status = $1, updated_at = $2
		WHERE status = $3 AND updated_at < $4`

	tag, err := r.db.Exec(ctx, query, model.PinStatusArchived, now, model.PinStatusUnpinned, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ошибка архивирования снятых пинов: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pinRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM pins WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления пина: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pinRepo) CountByStatus(ctx context.Context) (map[model.PinStatus]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM pins GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта пинов по статусам: %w", err)
	}
	defer rows.Close()

	result := make(map[model.PinStatus]int64)
	for rows.Next() {
		var (
			status model.PinStatus
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статуса: %w", err)
		}
		result[status] = count
	}
	return result, rows.Err()
}

func (r *pinRepo) CountByKind(ctx context.Context) (map[model.PinKind]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT kind, COUNT(*) FROM pins GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта пинов по типам: %w", err)
	}
	defer rows.Close()

	result := make(map[model.PinKind]int64)
	for rows.Next() {
		var (
			kind  model.PinKind
			count int64
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования типа: %w", err)
		}
		result[kind] = count
	}
	return result, rows.Err()
}

func (r *pinRepo) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM pins WHERE created_at >= $1`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта новых пинов: %w", err)
	}
	return count, nil
}

// buildPinWhere строит WHERE-часть запроса по фильтру.
func buildPinWhere(filter PinFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Official != nil {
		args = append(args, *filter.Official)
		conditions = append(conditions, fmt.Sprintf("official = $%d", len(args)))
	}
	if filter.AuthorID != nil {
		args = append(args, *filter.AuthorID)
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// scanPin сканирует одну строку таблицы pins.
func scanPin(row pgx.Row) (*model.Pin, error) {
	pin := &model.Pin{}
	err := row.Scan(
		&pin.ID, &pin.Title, &pin.Content, &pin.Kind, &pin.AuthorID,
		&pin.Official, &pin.Locale, &pin.Tags, &pin.Status,
		&pin.Likes, &pin.Seen, &pin.Shares,
		&pin.CreatedAt, &pin.UpdatedAt, &pin.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return pin, nil
}

// collectPins сканирует все строки результата в срез пинов.
func collectPins(rows pgx.Rows) ([]*model.Pin, error) {
	var result []*model.Pin
	for rows.Next() {
		pin, err := scanPin(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования пина: %w", err)
		}
		result = append(result, pin)
	}
	return result, rows.Err()
}
