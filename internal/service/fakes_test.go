// fakes_test.go — потокобезопасные in-memory репозитории для
// unit-тестов сервисного слоя.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/arturkryukov/pinwall/internal/domain/model"
	"github.com/arturkryukov/pinwall/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock — управляемый источник времени.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// --- fakePinRepo ---

type fakePinRepo struct {
	mu   sync.Mutex
	pins map[string]*model.Pin
}

func newFakePinRepo() *fakePinRepo {
	return &fakePinRepo{pins: make(map[string]*model.Pin)}
}

func (r *fakePinRepo) Create(_ context.Context, pin *model.Pin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pins[pin.ID]; ok {
		return repository.ErrConflict
	}
	cp := *pin
	r.pins[pin.ID] = &cp
	return nil
}

func (r *fakePinRepo) GetByID(_ context.Context, id string) (*model.Pin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pin, ok := r.pins[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *pin
	return &cp, nil
}

func (r *fakePinRepo) List(_ context.Context, filter repository.PinFilter, limit, offset int) ([]*model.Pin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := r.filtered(filter)
	sortPinsNewestFirst(matched)
	return pagePins(matched, limit, offset), nil
}

func (r *fakePinRepo) Count(_ context.Context, filter repository.PinFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.filtered(filter))), nil
}

func (r *fakePinRepo) UpdateStatus(_ context.Context, id string, status model.PinStatus, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pin, ok := r.pins[id]
	if !ok {
		return repository.ErrNotFound
	}
	pin.Status = status
	pin.UpdatedAt = now
	return nil
}

func (r *fakePinRepo) BulkUpdateStatus(_ context.Context, ids []string, status model.PinStatus, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.pins[id]; !ok {
			return fmt.Errorf("частичное обновление статуса: пин %s не найден", id)
		}
	}
	for _, id := range ids {
		r.pins[id].Status = status
		r.pins[id].UpdatedAt = now
	}
	return nil
}

func (r *fakePinRepo) ListExpired(_ context.Context, now time.Time) ([]*model.Pin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.Pin
	for _, pin := range r.pins {
		if pin.Status == model.PinStatusActive && !pin.ExpiresAt.After(now) {
			cp := *pin
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ExpiresAt.Equal(result[j].ExpiresAt) {
			return result[i].ExpiresAt.Before(result[j].ExpiresAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *fakePinRepo) ListFIFOOverflow(_ context.Context, cap int) ([]*model.Pin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []*model.Pin
	for _, pin := range r.pins {
		if pin.Status == model.PinStatusActive {
			cp := *pin
			active = append(active, &cp)
		}
	}
	sortPinsNewestFirst(active)
	if len(active) <= cap {
		return nil, nil
	}
	return active[cap:], nil
}

func (r *fakePinRepo) IncrementCounter(_ context.Context, id string, counter model.EngagementCounter, delta int64, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pin, ok := r.pins[id]
	if !ok {
		return repository.ErrNotFound
	}
	switch counter {
	case model.CounterLikes:
		pin.Likes = max(pin.Likes+delta, 0)
	case model.CounterSeen:
		pin.Seen = max(pin.Seen+delta, 0)
	case model.CounterShares:
		pin.Shares = max(pin.Shares+delta, 0)
	default:
		return fmt.Errorf("неизвестный счётчик: %q", counter)
	}
	pin.UpdatedAt = now
	return nil
}

func (r *fakePinRepo) ArchiveUnpinnedBefore(_ context.Context, cutoff, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, pin := range r.pins {
		if pin.Status == model.PinStatusUnpinned && pin.UpdatedAt.Before(cutoff) {
			pin.Status = model.PinStatusArchived
			pin.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

func (r *fakePinRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pins[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.pins, id)
	return nil
}

func (r *fakePinRepo) CountByStatus(_ context.Context) (map[model.PinStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[model.PinStatus]int64)
	for _, pin := range r.pins {
		result[pin.Status]++
	}
	return result, nil
}

func (r *fakePinRepo) CountByKind(_ context.Context) (map[model.PinKind]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[model.PinKind]int64)
	for _, pin := range r.pins {
		result[pin.Kind]++
	}
	return result, nil
}

func (r *fakePinRepo) CountCreatedSince(_ context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, pin := range r.pins {
		if !pin.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakePinRepo) filtered(filter repository.PinFilter) []*model.Pin {
	var result []*model.Pin
	for _, pin := range r.pins {
		if filter.Status != nil && pin.Status != *filter.Status {
			continue
		}
		if filter.Kind != nil && pin.Kind != *filter.Kind {
			continue
		}
		if filter.Official != nil && pin.Official != *filter.Official {
			continue
		}
		if filter.AuthorID != nil && pin.AuthorID != *filter.AuthorID {
			continue
		}
		cp := *pin
		result = append(result, &cp)
	}
	return result
}

func sortPinsNewestFirst(pins []*model.Pin) {
	sort.Slice(pins, func(i, j int) bool {
		if !pins[i].CreatedAt.Equal(pins[j].CreatedAt) {
			return pins[i].CreatedAt.After(pins[j].CreatedAt)
		}
		return pins[i].ID < pins[j].ID
	})
}

func pagePins(pins []*model.Pin, limit, offset int) []*model.Pin {
	if offset >= len(pins) {
		return nil
	}
	end := offset + limit
	if end > len(pins) {
		end = len(pins)
	}
	return pins[offset:end]
}

// --- fakeInteractionRepo ---

type interactionKey struct {
	studentID string
	pinID     string
	kind      model.InteractionKind
}

type fakeInteractionRepo struct {
	mu   sync.Mutex
	rows map[interactionKey]*model.Interaction

	// onGetByKey вызывается после чтения, до возврата; позволяет
	// синхронизировать гонки в тестах
	onGetByKey func()
}

func newFakeInteractionRepo() *fakeInteractionRepo {
	return &fakeInteractionRepo{rows: make(map[interactionKey]*model.Interaction)}
}

func (r *fakeInteractionRepo) Create(_ context.Context, in *model.Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := interactionKey{in.StudentID, in.PinID, in.Kind}
	if _, ok := r.rows[key]; ok {
		return repository.ErrConflict
	}
	cp := *in
	r.rows[key] = &cp
	return nil
}

func (r *fakeInteractionRepo) GetByKey(_ context.Context, studentID, pinID string, kind model.InteractionKind) (*model.Interaction, error) {
	r.mu.Lock()
	in, ok := r.rows[interactionKey{studentID, pinID, kind}]
	var cp model.Interaction
	if ok {
		cp = *in
	}
	r.mu.Unlock()

	if r.onGetByKey != nil {
		r.onGetByKey()
	}
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &cp, nil
}

func (r *fakeInteractionRepo) DeleteByKey(_ context.Context, studentID, pinID string, kind model.InteractionKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := interactionKey{studentID, pinID, kind}
	if _, ok := r.rows[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows, key)
	return nil
}

func (r *fakeInteractionRepo) UpdateDurationMax(_ context.Context, studentID, pinID string, duration int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.rows[interactionKey{studentID, pinID, model.InteractionSeen}]
	if !ok {
		return repository.ErrNotFound
	}
	in.ViewDuration = max(in.ViewDuration, duration)
	return nil
}

func (r *fakeInteractionRepo) CountsByKind(_ context.Context, pinID string) (*model.InteractionCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := &model.InteractionCounts{}
	for key := range r.rows {
		if key.pinID != pinID {
			continue
		}
		switch key.kind {
		case model.InteractionLike:
			counts.Likes++
		case model.InteractionSeen:
			counts.Seen++
		}
	}
	return counts, nil
}

func (r *fakeInteractionRepo) ListByStudent(_ context.Context, studentID string, limit, offset int) ([]*model.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.Interaction
	for key, in := range r.rows {
		if key.studentID == studentID {
			cp := *in
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *fakeInteractionRepo) CountByKindSince(_ context.Context, since time.Time) (map[model.InteractionKind]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[model.InteractionKind]int64)
	for _, in := range r.rows {
		if !in.CreatedAt.Before(since) {
			result[in.Kind]++
		}
	}
	return result, nil
}

func (r *fakeInteractionRepo) TopPins(_ context.Context, since time.Time, limit int) ([]*model.TopPin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byPin := make(map[string]*model.TopPin)
	for _, in := range r.rows {
		if in.CreatedAt.Before(since) {
			continue
		}
		tp, ok := byPin[in.PinID]
		if !ok {
			tp = &model.TopPin{PinID: in.PinID}
			byPin[in.PinID] = tp
		}
		switch in.Kind {
		case model.InteractionLike:
			tp.WindowLikes++
		case model.InteractionSeen:
			tp.WindowSeen++
		}
		tp.Score++
	}
	var result []*model.TopPin
	for _, tp := range byPin {
		result = append(result, tp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].PinID < result[j].PinID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- fakeSubmissionRepo ---

type fakeSubmissionRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Submission
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{rows: make(map[string]*model.Submission)}
}

func (r *fakeSubmissionRepo) Create(_ context.Context, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[s.ID]; ok {
		return repository.ErrConflict
	}
	cp := *s
	r.rows[s.ID] = &cp
	return nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubmissionRepo) ListPending(_ context.Context, kind *model.SubmissionKind, limit, offset int) ([]*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.Submission
	for _, s := range r.rows {
		if s.Status != model.SubmissionPending || s.Draft {
			continue
		}
		if kind != nil && s.Kind != *kind {
			continue
		}
		cp := *s
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *fakeSubmissionRepo) ListByStudent(_ context.Context, studentID string, limit, offset int) ([]*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.Submission
	for _, s := range r.rows {
		if s.StudentID == studentID {
			cp := *s
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *fakeSubmissionRepo) Review(_ context.Context, id, reviewerID string, status model.SubmissionStatus, notes string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if s.Status != model.SubmissionPending {
		return repository.ErrConflict
	}
	s.Status = status
	s.ReviewNotes = notes
	s.ReviewerID = &reviewerID
	s.ReviewedAt = &now
	s.UpdatedAt = now
	return nil
}

func (r *fakeSubmissionRepo) Archive(_ context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !model.CanArchiveSubmission(s.Status) {
		return repository.ErrConflict
	}
	s.Status = model.SubmissionArchived
	s.UpdatedAt = now
	return nil
}

func (r *fakeSubmissionRepo) ArchiveRejectedBefore(_ context.Context, cutoff, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, s := range r.rows {
		if s.Status == model.SubmissionRejected && s.ReviewedAt != nil && s.ReviewedAt.Before(cutoff) {
			s.Status = model.SubmissionArchived
			s.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

func (r *fakeSubmissionRepo) CountByStatus(_ context.Context) (map[model.SubmissionStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[model.SubmissionStatus]int64)
	for _, s := range r.rows {
		result[s.Status]++
	}
	return result, nil
}

func (r *fakeSubmissionRepo) CountByKindSince(_ context.Context, since time.Time) (map[model.SubmissionKind]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[model.SubmissionKind]int64)
	for _, s := range r.rows {
		if !s.CreatedAt.Before(since) {
			result[s.Kind]++
		}
	}
	return result, nil
}

// --- fakeSnapshotRepo ---

type fakeSnapshotRepo struct {
	mu   sync.Mutex
	rows []*model.AnalyticsSnapshot
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{}
}

func (r *fakeSnapshotRepo) Insert(_ context.Context, s *model.AnalyticsSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeSnapshotRepo) ListRecent(_ context.Context, scope model.SnapshotScope, limit int) ([]*model.AnalyticsSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.AnalyticsSnapshot
	for _, s := range r.rows {
		if s.Scope == scope {
			cp := *s
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CapturedAt.After(result[j].CapturedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
