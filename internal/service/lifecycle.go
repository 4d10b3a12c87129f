// lifecycle.go — сервис жизненного цикла пинов.
// Создание, смена статуса, снятие истёкших и FIFO-вытеснение
// сверх ёмкости ленты.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/pinwall/internal/domain/model"
	"github.com/arturkryukov/pinwall/internal/events"
	"github.com/arturkryukov/pinwall/internal/repository"
)

var (
	pinsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pw_pins_expired_total",
		Help: "Количество пинов, снятых по истечении срока",
	})
	pinsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pw_pins_evicted_total",
		Help: "Количество пинов, вытесненных из ленты по FIFO",
	})
)

// CreatePinInput — входные данные создания пина.
type CreatePinInput struct {
	Title    string
	Content  string
	Kind     model.PinKind
	AuthorID string
	Official bool
	Locale   string
	Tags     []string
	// ExpiresAt — переопределение срока истечения; nil — now + TTL
	ExpiresAt *time.Time
}

// SweepResult — результат массовой операции над пинами.
type SweepResult struct {
	// Count — количество затронутых пинов
	Count int `json:"count"`
	// PinIDs — их идентификаторы
	PinIDs []string `json:"pin_ids"`
}

// LifecycleService — сервис жизненного цикла пинов.
type LifecycleService struct {
	pins     repository.PinRepository
	txRunner *repository.TxRunner
	bus      *events.Bus
	logger   *slog.Logger

	feedCap int
	pinTTL  time.Duration

	// источник времени; подменяется в тестах
	now func() time.Time
}

// NewLifecycleService создаёт сервис жизненного цикла.
// txRunner может быть nil — тогда массовые операции выполняются
// вне транзакции, на репозитории pins как есть.
func NewLifecycleService(
	pins repository.PinRepository,
	txRunner *repository.TxRunner,
	bus *events.Bus,
	feedCap int,
	pinTTL time.Duration,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		pins:     pins,
		txRunner: txRunner,
		bus:      bus,
		logger:   logger.With(slog.String("component", "lifecycle_service")),
		feedCap:  feedCap,
		pinTTL:   pinTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreatePin валидирует входные данные и публикует новый активный пин.
func (s *LifecycleService) CreatePin(ctx context.Context, in CreatePinInput) (*model.Pin, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: заголовок обязателен", ErrValidation)
	}
	if in.Content == "" {
		return nil, fmt.Errorf("%w: содержимое обязательно", ErrValidation)
	}
	if in.AuthorID == "" {
		return nil, fmt.Errorf("%w: автор обязателен", ErrValidation)
	}
	if !model.ValidPinKind(in.Kind) {
		return nil, fmt.Errorf("%w: недопустимый тип контента %q", ErrValidation, in.Kind)
	}

	now := s.now()
	expiresAt := now.Add(s.pinTTL)
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return nil, fmt.Errorf("%w: срок истечения должен быть в будущем", ErrValidation)
		}
		expiresAt = *in.ExpiresAt
	}

	locale := in.Locale
	if locale == "" {
		locale = model.DefaultLocale
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	pin := &model.Pin{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Content:   in.Content,
		Kind:      in.Kind,
		AuthorID:  in.AuthorID,
		Official:  in.Official,
		Locale:    locale,
		Tags:      tags,
		Status:    model.PinStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: expiresAt,
	}

	if err := s.pins.Create(ctx, pin); err != nil {
		return nil, fmt.Errorf("создание пина: %w", err)
	}

	s.logger.Info("Пин опубликован",
		slog.String("pin_id", pin.ID),
		slog.String("kind", string(pin.Kind)),
		slog.String("author_id", pin.AuthorID),
	)
	s.emit(events.Event{
		Type:  events.EventPinCreated,
		At:    now,
		PinID: pin.ID,
	})

	return pin, nil
}

// GetPin возвращает пин по идентификатору.
func (s *LifecycleService) GetPin(ctx context.Context, id string) (*model.Pin, error) {
	pin, err := s.pins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: пин %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("получение пина: %w", err)
	}
	return pin, nil
}

// ListActivePins возвращает страницу активных пинов, новейшие первыми.
// kind и official — необязательные фильтры.
func (s *LifecycleService) ListActivePins(ctx context.Context, kind *model.PinKind, official *bool, limit, offset int) ([]*model.Pin, int64, error) {
	if kind != nil && !model.ValidPinKind(*kind) {
		return nil, 0, fmt.Errorf("%w: недопустимый тип контента %q", ErrValidation, *kind)
	}

	active := model.PinStatusActive
	filter := repository.PinFilter{Status: &active, Kind: kind, Official: official}

	list, err := s.pins.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение ленты: %w", err)
	}
	total, err := s.pins.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт ленты: %w", err)
	}
	return list, total, nil
}

// ListPinsByAuthor возвращает пины автора вне зависимости от статуса.
func (s *LifecycleService) ListPinsByAuthor(ctx context.Context, authorID string, limit, offset int) ([]*model.Pin, error) {
	list, err := s.pins.List(ctx, repository.PinFilter{AuthorID: &authorID}, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("получение пинов автора: %w", err)
	}
	return list, nil
}

// ChangeStatus переводит пин в новый статус. Статус пишется без
// проверки графа переходов: однонаправленный жизненный цикл обязаны
// соблюдать вызывающие (см. model.CanTransitionPinStatus).
func (s *LifecycleService) ChangeStatus(ctx context.Context, id string, status model.PinStatus) (*model.Pin, error) {
	if !model.ValidPinStatus(status) {
		return nil, fmt.Errorf("%w: недопустимый статус %q", ErrValidation, status)
	}

	pin, err := s.GetPin(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.pins.UpdateStatus(ctx, id, status, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: пин %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("смена статуса пина: %w", err)
	}

	s.logger.Info("Статус пина изменён",
		slog.String("pin_id", id),
		slog.String("from", string(pin.Status)),
		slog.String("to", string(status)),
	)
	s.emit(events.Event{
		Type:   events.EventPinStatusChanged,
		At:     now,
		PinID:  id,
		Action: string(status),
	})

	pin.Status = status
	pin.UpdatedAt = now
	return pin, nil
}

// DeletePin физически удаляет пин. Взаимодействия удаляются каскадно.
func (s *LifecycleService) DeletePin(ctx context.Context, id string) error {
	if err := s.pins.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: пин %s", ErrNotFound, id)
		}
		return fmt.Errorf("удаление пина: %w", err)
	}
	s.logger.Info("Пин удалён", slog.String("pin_id", id))
	return nil
}

// ExpirePins снимает все активные пины с истёкшим сроком (→ unpinned).
// Пачка обновляется одним запросом в одной транзакции: частичный
// результат невозможен. Идемпотентно: повторный вызов находит ноль
// истёкших.
func (s *LifecycleService) ExpirePins(ctx context.Context) (*SweepResult, error) {
	result, err := s.sweep(ctx, func(repo repository.PinRepository, now time.Time) ([]*model.Pin, error) {
		return repo.ListExpired(ctx, now)
	})
	if err != nil {
		return nil, fmt.Errorf("снятие истёкших пинов: %w", err)
	}

	if result.Count > 0 {
		pinsExpired.Add(float64(result.Count))
		s.logger.Info("Истёкшие пины сняты", slog.Int("count", result.Count))
	}
	return result, nil
}

// EnforceFIFOCap вытесняет активные пины сверх ёмкости ленты: остаются
// feedCap новейших (created_at DESC, тай-брейк id ASC), остальные →
// unpinned. Детерминировано и идемпотентно.
func (s *LifecycleService) EnforceFIFOCap(ctx context.Context) (*SweepResult, error) {
	result, err := s.sweep(ctx, func(repo repository.PinRepository, _ time.Time) ([]*model.Pin, error) {
		return repo.ListFIFOOverflow(ctx, s.feedCap)
	})
	if err != nil {
		return nil, fmt.Errorf("FIFO-вытеснение: %w", err)
	}

	if result.Count > 0 {
		pinsEvicted.Add(float64(result.Count))
		s.logger.Info("Пины вытеснены из ленты", slog.Int("count", result.Count))
	}
	return result, nil
}

// ArchiveUnpinned архивирует снятые пины, не менявшиеся дольше окна
// хранения. Часть еженедельной уборки.
func (s *LifecycleService) ArchiveUnpinned(ctx context.Context, retention time.Duration) (int64, error) {
	now := s.now()
	count, err := s.pins.ArchiveUnpinnedBefore(ctx, now.Add(-retention), now)
	if err != nil {
		return 0, fmt.Errorf("архивирование снятых пинов: %w", err)
	}
	if count > 0 {
		s.logger.Info("Снятые пины архивированы", slog.Int64("count", count))
	}
	return count, nil
}

// sweep выполняет массовое снятие пинов: выборка select + перевод всей
// пачки в unpinned. При наличии txRunner обе операции идут в одной
// транзакции.
func (s *LifecycleService) sweep(ctx context.Context, selectPins func(repository.PinRepository, time.Time) ([]*model.Pin, error)) (*SweepResult, error) {
	now := s.now()
	result := &SweepResult{PinIDs: []string{}}

	run := func(repo repository.PinRepository) error {
		pins, err := selectPins(repo, now)
		if err != nil {
			return err
		}
		if len(pins) == 0 {
			return nil
		}

		ids := make([]string, len(pins))
		for i, p := range pins {
			ids[i] = p.ID
		}
		if err := repo.BulkUpdateStatus(ctx, ids, model.PinStatusUnpinned, now); err != nil {
			return err
		}

		result.Count = len(ids)
		result.PinIDs = ids
		return nil
	}

	if s.txRunner != nil {
		err := s.txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
			return run(repository.NewPinRepository(tx))
		})
		if err != nil {
			return nil, err
		}
	} else if err := run(s.pins); err != nil {
		return nil, err
	}

	for _, id := range result.PinIDs {
		s.emit(events.Event{
			Type:   events.EventPinStatusChanged,
			At:     now,
			PinID:  id,
			Action: string(model.PinStatusUnpinned),
		})
	}
	return result, nil
}

// emit публикует событие, если шина подключена.
func (s *LifecycleService) emit(e events.Event) {
	if s.bus != nil {
		s.bus.Emit(e)
	}
}
