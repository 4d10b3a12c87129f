package events

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// collectSubscriber накапливает полученные события.
type collectSubscriber struct {
	mu     sync.Mutex
	events []Event
}

func (s *collectSubscriber) Handle(e Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *collectSubscriber) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// panicSubscriber паникует на каждом событии.
type panicSubscriber struct{}

func (panicSubscriber) Handle(Event) {
	panic("сломанный подписчик")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBusDelivery(t *testing.T) {
	sub := &collectSubscriber{}
	bus := NewBus(testLogger(), 16, sub)

	bus.Emit(Event{Type: EventPinCreated, PinID: "pin-1", At: time.Now()})
	bus.Emit(Event{Type: EventInteraction, PinID: "pin-1", StudentID: "st-1", Action: "liked", At: time.Now()})

	// Close дожидается доставки уже опубликованного
	bus.Close()

	if sub.len() != 2 {
		t.Errorf("Доставлено %d событий, хотели 2", sub.len())
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.events[0].Type != EventPinCreated {
		t.Errorf("Первое событие %q, хотели %q", sub.events[0].Type, EventPinCreated)
	}
	if sub.events[1].Action != "liked" {
		t.Errorf("Action = %q, хотели %q", sub.events[1].Action, "liked")
	}
}

func TestBusEmitAfterClose(t *testing.T) {
	sub := &collectSubscriber{}
	bus := NewBus(testLogger(), 16, sub)
	bus.Close()

	// Не должно паниковать и не должно доставляться
	bus.Emit(Event{Type: EventPinCreated})
	if sub.len() != 0 {
		t.Errorf("После Close доставлено %d событий, хотели 0", sub.len())
	}

	// Повторный Close — no-op
	bus.Close()
}

func TestBusPanicIsolation(t *testing.T) {
	sub := &collectSubscriber{}
	// Паникующий подписчик стоит первым — второй всё равно получает событие
	bus := NewBus(testLogger(), 16, panicSubscriber{}, sub)

	bus.Emit(Event{Type: EventSubmissionReviewed, SubmissionID: "sub-1"})
	bus.Close()

	if sub.len() != 1 {
		t.Errorf("Доставлено %d событий, хотели 1", sub.len())
	}
}

func TestBusOverflowDoesNotBlock(t *testing.T) {
	// Очередь размера 1 и ни одного подписчика, который бы её разгребал
	// быстро: блокирующий подписчик держит доставку, остальные Emit
	// должны вернуться сразу.
	release := make(chan struct{})
	blocking := subscriberFunc(func(Event) { <-release })

	bus := NewBus(testLogger(), 1, blocking)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			bus.Emit(Event{Type: EventInteraction})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit заблокировался на переполненной очереди")
	}

	close(release)
	bus.Close()
}

// subscriberFunc адаптирует функцию к интерфейсу Subscriber.
type subscriberFunc func(Event)

func (f subscriberFunc) Handle(e Event) { f(e) }
