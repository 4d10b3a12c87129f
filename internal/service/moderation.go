// moderation.go — сервис модерации студенческих заявок.
// Приём голосовых заметок и статей, очередь модерации, рассмотрение
// с конвертацией одобренных заявок в пины.
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

// Действия рассмотрения заявки.
const (
	// ReviewApprove — одобрить и конвертировать в пин.
	ReviewApprove = "approve"
	// ReviewReject — отклонить.
	ReviewReject = "reject"
)

// SubmitVoiceInput — входные данные голосовой заметки.
type SubmitVoiceInput struct {
	StudentID  string
	Title      string
	AudioURL   string
	Transcript string
	Locale     string
	Tags       []string
	Draft      bool
	// Origin — метаданные происхождения (user-agent и т.п.)
	Origin map[string]string
}

// SubmitArticleInput — входные данные статьи.
type SubmitArticleInput struct {
	StudentID string
	Title     string
	Content   string
	Locale    string
	Tags      []string
	Draft     bool
	Origin    map[string]string
}

// ReviewResult — результат рассмотрения заявки.
type ReviewResult struct {
	// Submission — заявка после рассмотрения
	Submission *model.Submission `json:"submission"`
	// Pin — созданный пин; только при одобрении
	Pin *model.Pin `json:"pin,omitempty"`
}

// ModerationService — сервис модерации заявок.
type ModerationService struct {
	submissions repository.SubmissionRepository
	lifecycle   *LifecycleService
	bus         *events.Bus
	logger      *slog.Logger

	// источник времени; подменяется в тестах
	now func() time.Time
}

// NewModerationService создаёт сервис модерации.
func NewModerationService(
	submissions repository.SubmissionRepository,
	lifecycle *LifecycleService,
	bus *events.Bus,
	logger *slog.Logger,
) *ModerationService {
	return &ModerationService{
		submissions: submissions,
		lifecycle:   lifecycle,
		bus:         bus,
		logger:      logger.With(slog.String("component", "moderation_service")),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SubmitVoiceNote принимает голосовую заметку студента (status=pending).
func (s *ModerationService) SubmitVoiceNote(ctx context.Context, in SubmitVoiceInput) (*model.Submission, error) {
	if in.StudentID == "" {
		return nil, fmt.Errorf("%w: студент обязателен", ErrValidation)
	}
	if in.Title == "" {
		return nil, fmt.Errorf("%w: заголовок обязателен", ErrValidation)
	}
	if in.AudioURL == "" {
		return nil, fmt.Errorf("%w: ссылка на аудио обязательна", ErrValidation)
	}

	sub := s.newSubmission(in.StudentID, model.SubmissionVoice, in.Title, in.Locale, in.Tags, in.Draft, in.Origin)
	sub.AudioURL = &in.AudioURL
	if in.Transcript != "" {
		sub.Transcript = &in.Transcript
	}

	return s.create(ctx, sub)
}

// SubmitArticle принимает статью студента (status=pending).
func (s *ModerationService) SubmitArticle(ctx context.Context, in SubmitArticleInput) (*model.Submission, error) {
	if in.StudentID == "" {
		return nil, fmt.Errorf("%w: студент обязателен", ErrValidation)
	}
	if in.Title == "" {
		return nil, fmt.Errorf("%w: заголовок обязателен", ErrValidation)
	}
	if in.Content == "" {
		return nil, fmt.Errorf("%w: текст статьи обязателен", ErrValidation)
	}

	sub := s.newSubmission(in.StudentID, model.SubmissionArticle, in.Title, in.Locale, in.Tags, in.Draft, in.Origin)
	sub.Content = in.Content

	return s.create(ctx, sub)
}

// GetSubmission возвращает заявку по идентификатору.
func (s *ModerationService) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: заявка %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("получение заявки: %w", err)
	}
	return sub, nil
}

// ListPending возвращает очередь модерации: pending-заявки без
// черновиков, старейшие первыми. kind — необязательный фильтр.
func (s *ModerationService) ListPending(ctx context.Context, kind *model.SubmissionKind, limit, offset int) ([]*model.Submission, error) {
	if kind != nil && !model.ValidSubmissionKind(*kind) {
		return nil, fmt.Errorf("%w: недопустимый тип заявки %q", ErrValidation, *kind)
	}
	list, err := s.submissions.ListPending(ctx, kind, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("получение очереди модерации: %w", err)
	}
	return list, nil
}

// ListByStudent возвращает заявки студента, включая черновики.
func (s *ModerationService) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*model.Submission, error) {
	list, err := s.submissions.ListByStudent(ctx, studentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("получение заявок студента: %w", err)
	}
	return list, nil
}

// Review рассматривает pending-заявку: approve конвертирует её в пин,
// reject только ставит статус. Повторное рассмотрение — конфликт:
// условный UPDATE в хранилище гарантирует одного победителя, второй
// пин никогда не создаётся.
func (s *ModerationService) Review(ctx context.Context, submissionID, reviewerID, action, notes string) (*ReviewResult, error) {
	if reviewerID == "" {
		return nil, fmt.Errorf("%w: модератор обязателен", ErrValidation)
	}

	var status model.SubmissionStatus
	switch action {
	case ReviewApprove:
		status = model.SubmissionApproved
	case ReviewReject:
		status = model.SubmissionRejected
	default:
		return nil, fmt.Errorf("%w: недопустимое действие %q, допустимые: approve, reject", ErrValidation, action)
	}

	sub, err := s.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.submissions.Review(ctx, submissionID, reviewerID, status, notes, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%w: заявка %s", ErrNotFound, submissionID)
		case errors.Is(err, repository.ErrConflict):
			return nil, fmt.Errorf("%w: заявка %s уже рассмотрена", ErrConflict, submissionID)
		}
		return nil, fmt.Errorf("рассмотрение заявки: %w", err)
	}

	sub.Status = status
	sub.ReviewNotes = notes
	sub.ReviewerID = &reviewerID
	sub.ReviewedAt = &now
	sub.UpdatedAt = now

	result := &ReviewResult{Submission: sub}

	if status == model.SubmissionApproved {
		pin, err := s.lifecycle.CreatePin(ctx, CreatePinInput{
			Title:    sub.Title,
			Content:  sub.PinContent(),
			Kind:     model.PinKindForSubmission(sub.Kind),
			AuthorID: sub.StudentID,
			Locale:   sub.Locale,
			Tags:     sub.Tags,
		})
		if err != nil {
			// Заявка уже одобрена; пин придётся создать вручную
			s.logger.Error("Одобренная заявка не конвертирована в пин",
				slog.String("submission_id", submissionID),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("конвертация заявки в пин: %w", err)
		}
		result.Pin = pin
	}

	s.logger.Info("Заявка рассмотрена",
		slog.String("submission_id", submissionID),
		slog.String("reviewer_id", reviewerID),
		slog.String("action", action),
	)
	if s.bus != nil {
		s.bus.Emit(events.Event{
			Type:         events.EventSubmissionReviewed,
			At:           now,
			SubmissionID: submissionID,
			StudentID:    sub.StudentID,
			Action:       action,
		})
	}

	return result, nil
}

// Archive переводит заявку в архив. Разрешено только из pending
// и rejected.
func (s *ModerationService) Archive(ctx context.Context, id string) (*model.Submission, error) {
	now := s.now()
	if err := s.submissions.Archive(ctx, id, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%w: заявка %s", ErrNotFound, id)
		case errors.Is(err, repository.ErrConflict):
			return nil, fmt.Errorf("%w: заявка %s не подлежит архивированию", ErrConflict, id)
		}
		return nil, fmt.Errorf("архивирование заявки: %w", err)
	}

	s.logger.Info("Заявка архивирована", slog.String("submission_id", id))
	return s.GetSubmission(ctx, id)
}

// ArchiveRejected архивирует отклонённые заявки старше окна хранения.
// Часть еженедельной уборки.
func (s *ModerationService) ArchiveRejected(ctx context.Context, retention time.Duration) (int64, error) {
	now := s.now()
	count, err := s.submissions.ArchiveRejectedBefore(ctx, now.Add(-retention), now)
	if err != nil {
		return 0, fmt.Errorf("архивирование отклонённых заявок: %w", err)
	}
	if count > 0 {
		s.logger.Info("Отклонённые заявки архивированы", slog.Int64("count", count))
	}
	return count, nil
}

// newSubmission заполняет общие поля новой заявки.
func (s *ModerationService) newSubmission(studentID string, kind model.SubmissionKind, title, locale string, tags []string, draft bool, origin map[string]string) *model.Submission {
	now := s.now()
	if locale == "" {
		locale = model.DefaultLocale
	}
	if tags == nil {
		tags = []string{}
	}
	if origin == nil {
		origin = map[string]string{}
	}
	return &model.Submission{
		ID:        uuid.New().String(),
		StudentID: studentID,
		Kind:      kind,
		Title:     title,
		Locale:    locale,
		Tags:      tags,
		Draft:     draft,
		Origin:    origin,
		Status:    model.SubmissionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// create сохраняет заявку и публикует событие.
func (s *ModerationService) create(ctx context.Context, sub *model.Submission) (*model.Submission, error) {
	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("создание заявки: %w", err)
	}

	s.logger.Info("Заявка подана",
		slog.String("submission_id", sub.ID),
		slog.String("kind", string(sub.Kind)),
		slog.String("student_id", sub.StudentID),
		slog.Bool("draft", sub.Draft),
	)
	if s.bus != nil {
		s.bus.Emit(events.Event{
			Type:         events.EventSubmissionCreated,
			At:           sub.CreatedAt,
			SubmissionID: sub.ID,
			StudentID:    sub.StudentID,
		})
	}
	return sub, nil
}
