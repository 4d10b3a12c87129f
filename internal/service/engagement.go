// engagement.go — сервис вовлечённости: дедуплицированные лайки и
// просмотры, атомарное ведение счётчиков на пине.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arturkryukov/pinwall/internal/domain/model"
	"github.com/arturkryukov/pinwall/internal/events"
	"github.com/arturkryukov/pinwall/internal/repository"
)

// Действия ToggleLike.
const (
	// ActionLiked — лайк поставлен.
	ActionLiked = "liked"
	// ActionUnliked — лайк снят.
	ActionUnliked = "unliked"
)

// ToggleResult — результат переключения лайка.
type ToggleResult struct {
	// Action — итоговое действие (liked, unliked)
	Action string `json:"action"`
}

// SeenResult — результат отметки просмотра.
type SeenResult struct {
	// First — первый просмотр этого студента
	First bool `json:"first"`
	// Duration — зафиксированная длительность в секундах
	Duration int64 `json:"duration"`
}

// EngagementService — сервис взаимодействий студентов с пинами.
type EngagementService struct {
	pins         repository.PinRepository
	interactions repository.InteractionRepository
	bus          *events.Bus
	logger       *slog.Logger

	// источник времени; подменяется в тестах
	now func() time.Time
}

// NewEngagementService создаёт сервис вовлечённости.
func NewEngagementService(
	pins repository.PinRepository,
	interactions repository.InteractionRepository,
	bus *events.Bus,
	logger *slog.Logger,
) *EngagementService {
	return &EngagementService{
		pins:         pins,
		interactions: interactions,
		bus:          bus,
		logger:       logger.With(slog.String("component", "engagement_service")),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ToggleLike переключает лайк студента на активном пине.
// Есть лайк — снимается (likes-1), нет — ставится (likes+1).
// Гонка двух одинаковых запросов схлопывается в последовательный
// исход: дедупликацию гарантирует UNIQUE-ограничение хранилища.
func (s *EngagementService) ToggleLike(ctx context.Context, studentID, pinID string, subtype model.LikeSubtype) (*ToggleResult, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: студент обязателен", ErrValidation)
	}
	if subtype == "" {
		subtype = model.DefaultLikeSubtype
	}
	if !model.ValidLikeSubtype(subtype) {
		return nil, fmt.Errorf("%w: недопустимый подтип лайка %q", ErrValidation, subtype)
	}

	if err := s.requireActivePin(ctx, pinID); err != nil {
		return nil, err
	}

	now := s.now()

	_, err := s.interactions.GetByKey(ctx, studentID, pinID, model.InteractionLike)
	switch {
	case err == nil:
		// Лайк есть — снимаем
		if err := s.interactions.DeleteByKey(ctx, studentID, pinID, model.InteractionLike); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Параллельный запрос уже снял лайк — счётчик не трогаем
				return s.toggled(pinID, studentID, ActionUnliked, now), nil
			}
			return nil, fmt.Errorf("снятие лайка: %w", err)
		}
		if err := s.pins.IncrementCounter(ctx, pinID, model.CounterLikes, -1, now); err != nil {
			return nil, fmt.Errorf("декремент счётчика лайков: %w", err)
		}
		return s.toggled(pinID, studentID, ActionUnliked, now), nil

	case errors.Is(err, repository.ErrNotFound):
		// Лайка нет — ставим
		in := &model.Interaction{
			ID:          uuid.New().String(),
			StudentID:   studentID,
			PinID:       pinID,
			Kind:        model.InteractionLike,
			LikeSubtype: subtype,
			CreatedAt:   now,
		}
		if err := s.interactions.Create(ctx, in); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				// Проигрыш в гонке создания: лайк уже поставлен параллельным
				// запросом, счётчик инкрементирован ровно один раз
				return s.toggled(pinID, studentID, ActionLiked, now), nil
			}
			return nil, fmt.Errorf("создание лайка: %w", err)
		}
		if err := s.pins.IncrementCounter(ctx, pinID, model.CounterLikes, 1, now); err != nil {
			return nil, fmt.Errorf("инкремент счётчика лайков: %w", err)
		}
		return s.toggled(pinID, studentID, ActionLiked, now), nil

	default:
		return nil, fmt.Errorf("поиск лайка: %w", err)
	}
}

// MarkSeen отмечает просмотр пина студентом. Первый просмотр создаёт
// запись и инкрементирует счётчик; повторный только поднимает
// длительность до максимума наблюдавшихся значений.
func (s *EngagementService) MarkSeen(ctx context.Context, studentID, pinID string, duration int64) (*SeenResult, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: студент обязателен", ErrValidation)
	}
	if duration < 0 {
		return nil, fmt.Errorf("%w: длительность просмотра не может быть отрицательной", ErrValidation)
	}

	if err := s.requireActivePin(ctx, pinID); err != nil {
		return nil, err
	}

	now := s.now()

	existing, err := s.interactions.GetByKey(ctx, studentID, pinID, model.InteractionSeen)
	switch {
	case err == nil:
		// Повторный просмотр: длительность только растёт, счётчик не трогаем
		if err := s.interactions.UpdateDurationMax(ctx, studentID, pinID, duration); err != nil {
			return nil, fmt.Errorf("обновление длительности просмотра: %w", err)
		}
		s.emitInteraction(pinID, studentID, "seen", now)
		return &SeenResult{First: false, Duration: max(existing.ViewDuration, duration)}, nil

	case errors.Is(err, repository.ErrNotFound):
		in := &model.Interaction{
			ID:           uuid.New().String(),
			StudentID:    studentID,
			PinID:        pinID,
			Kind:         model.InteractionSeen,
			ViewDuration: duration,
			CreatedAt:    now,
		}
		if err := s.interactions.Create(ctx, in); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				// Проигрыш в гонке создания: схлопываем в обновление длительности
				if err := s.interactions.UpdateDurationMax(ctx, studentID, pinID, duration); err != nil {
					return nil, fmt.Errorf("обновление длительности просмотра: %w", err)
				}
				s.emitInteraction(pinID, studentID, "seen", now)
				return &SeenResult{First: false, Duration: duration}, nil
			}
			return nil, fmt.Errorf("создание просмотра: %w", err)
		}
		if err := s.pins.IncrementCounter(ctx, pinID, model.CounterSeen, 1, now); err != nil {
			return nil, fmt.Errorf("инкремент счётчика просмотров: %w", err)
		}
		s.emitInteraction(pinID, studentID, "seen", now)
		return &SeenResult{First: true, Duration: duration}, nil

	default:
		return nil, fmt.Errorf("поиск просмотра: %w", err)
	}
}

// InteractionCounts возвращает количество взаимодействий пина по видам.
func (s *EngagementService) InteractionCounts(ctx context.Context, pinID string) (*model.InteractionCounts, error) {
	if _, err := s.pins.GetByID(ctx, pinID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: пин %s", ErrNotFound, pinID)
		}
		return nil, fmt.Errorf("получение пина: %w", err)
	}

	counts, err := s.interactions.CountsByKind(ctx, pinID)
	if err != nil {
		return nil, fmt.Errorf("подсчёт взаимодействий: %w", err)
	}
	return counts, nil
}

// requireActivePin проверяет, что пин существует и активен.
// Неактивный пин для взаимодействий неотличим от несуществующего.
func (s *EngagementService) requireActivePin(ctx context.Context, pinID string) error {
	pin, err := s.pins.GetByID(ctx, pinID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: пин %s", ErrNotFound, pinID)
		}
		return fmt.Errorf("получение пина: %w", err)
	}
	if pin.Status != model.PinStatusActive {
		return fmt.Errorf("%w: пин %s не активен", ErrNotFound, pinID)
	}
	return nil
}

// toggled строит результат переключения и публикует событие.
func (s *EngagementService) toggled(pinID, studentID, action string, now time.Time) *ToggleResult {
	s.emitInteraction(pinID, studentID, action, now)
	return &ToggleResult{Action: action}
}

func (s *EngagementService) emitInteraction(pinID, studentID, action string, now time.Time) {
	if s.bus != nil {
		s.bus.Emit(events.Event{
			Type:      events.EventInteraction,
			At:        now,
			PinID:     pinID,
			StudentID: studentID,
			Action:    action,
		})
	}
}
