// Пакет events — асинхронная шина внутренних событий.
// Сервисы публикуют события (создание пина, лайк, одобрение заявки),
// подписчики обрабатывают их в отдельной горутине. Публикация
// неблокирующая: при переполненной очереди событие отбрасывается,
// бизнес-операция от этого не страдает.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Типы событий.
const (
	// EventPinCreated — пин опубликован.
	EventPinCreated = "pin.created"
	// EventPinStatusChanged — статус пина изменился.
	EventPinStatusChanged = "pin.status_changed"
	// EventInteraction — студент взаимодействовал с пином.
	EventInteraction = "interaction"
	// EventSubmissionCreated — заявка подана.
	EventSubmissionCreated = "submission.created"
	// EventSubmissionReviewed — заявка рассмотрена.
	EventSubmissionReviewed = "submission.reviewed"
)

// Event — внутреннее событие.
type Event struct {
	// Type — тип события (pin.created, interaction, ...)
	Type string
	// At — момент возникновения
	At time.Time
	// PinID — UUID пина, если применимо
	PinID string
	// StudentID — UUID студента, если применимо
	StudentID string
	// SubmissionID — UUID заявки, если применимо
	SubmissionID string
	// Action — уточнение (liked, unliked, approved, rejected, ...)
	Action string
	// Extra — произвольные дополнительные поля
	Extra map[string]any
}

// Subscriber обрабатывает события шины.
type Subscriber interface {
	Handle(e Event)
}

var (
	eventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pw_events_emitted_total",
		Help: "Количество опубликованных событий по типам",
	}, []string{"type"})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pw_events_dropped_total",
		Help: "Количество событий, отброшенных из-за переполнения очереди",
	})
)

// Bus — шина событий с буферизованной очередью и одной горутиной доставки.
type Bus struct {
	logger      *slog.Logger
	queue       chan Event
	subscribers []Subscriber
	wg          sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewBus создаёт шину с очередью размера size и запускает доставку.
func NewBus(logger *slog.Logger, size int, subs ...Subscriber) *Bus {
	b := &Bus{
		logger:      logger.With("component", "events"),
		queue:       make(chan Event, size),
		subscribers: subs,
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// Emit публикует событие. Не блокирует: при переполненной очереди
// событие отбрасывается с предупреждением в лог.
func (b *Bus) Emit(e Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}

	select {
	case b.queue <- e:
		eventsEmitted.WithLabelValues(e.Type).Inc()
	default:
		eventsDropped.Inc()
		b.logger.Warn("Очередь событий переполнена, событие отброшено", "type", e.Type)
	}
	b.mu.Unlock()
}

// Close останавливает шину. Уже опубликованные события доставляются
// до конца, новые после Close отбрасываются.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	b.wg.Wait()
}

// run доставляет события подписчикам до закрытия очереди.
func (b *Bus) run() {
	defer b.wg.Done()
	for e := range b.queue {
		for _, s := range b.subscribers {
			b.deliver(s, e)
		}
	}
}

// deliver вызывает подписчика, изолируя его панику: один сломанный
// подписчик не должен ронять доставку остальным.
func (b *Bus) deliver(s Subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Паника в подписчике событий", "type", e.Type, "panic", r)
		}
	}()
	s.Handle(e)
}

// LogSubscriber пишет каждое событие в журнал. Замещает собой
// нотификации и начисление наград, которые живут во внешних системах.
type LogSubscriber struct {
	logger *slog.Logger
}

// NewLogSubscriber создаёт журналирующего подписчика.
func NewLogSubscriber(logger *slog.Logger) *LogSubscriber {
	return &LogSubscriber{logger: logger.With("component", "events")}
}

// Handle реализует Subscriber.
func (s *LogSubscriber) Handle(e Event) {
	attrs := []any{"type", e.Type, "at", e.At}
	if e.PinID != "" {
		attrs = append(attrs, "pin_id", e.PinID)
	}
	if e.StudentID != "" {
		attrs = append(attrs, "student_id", e.StudentID)
	}
	if e.SubmissionID != "" {
		attrs = append(attrs, "submission_id", e.SubmissionID)
	}
	if e.Action != "" {
		attrs = append(attrs, "action", e.Action)
	}
	s.logger.Info("Событие", attrs...)
}
