package model

import "time"

// SubmissionKind — тип студенческой заявки.
type SubmissionKind string

const (
	// SubmissionVoice — голосовая заметка.
	SubmissionVoice SubmissionKind = "voice"
	// SubmissionArticle — текстовая статья.
	SubmissionArticle SubmissionKind = "article"
)

// ValidSubmissionKind проверяет допустимость типа заявки.
func ValidSubmissionKind(k SubmissionKind) bool {
	return k == SubmissionVoice || k == SubmissionArticle
}

// PinKindForSubmission возвращает тип пина, создаваемого при одобрении
// заявки: voice → audio, article → text.
func PinKindForSubmission(k SubmissionKind) PinKind {
	if k == SubmissionVoice {
		return PinKindAudio
	}
	return PinKindText
}

// SubmissionStatus — статус заявки в процессе модерации.
type SubmissionStatus string

const (
	// SubmissionPending — ожидает рассмотрения (статус при создании).
	SubmissionPending SubmissionStatus = "pending"
	// SubmissionApproved — одобрена, конвертирована в пин. Терминальный.
	SubmissionApproved SubmissionStatus = "approved"
	// SubmissionRejected — отклонена. Терминальный, кроме перехода в архив.
	SubmissionRejected SubmissionStatus = "rejected"
	// SubmissionArchived — в архиве. Терминальный.
	SubmissionArchived SubmissionStatus = "archived"
)

// Terminal сообщает, является ли статус терминальным для модерации:
// повторное рассмотрение из него невозможно.
func (s SubmissionStatus) Terminal() bool {
	return s != SubmissionPending
}

// CanArchiveSubmission проверяет допустимость перехода в архив:
// разрешён только из pending и rejected.
func CanArchiveSubmission(from SubmissionStatus) bool {
	return from == SubmissionPending || from == SubmissionRejected
}

// Submission — студенческая заявка на публикацию, ожидающая модерации.
// Хранится в таблице submissions.
type Submission struct {
	// ID — UUID записи
	ID string `json:"id"`
	// StudentID — UUID студента-автора
	StudentID string `json:"student_id"`
	// Kind — тип заявки (voice, article)
	Kind SubmissionKind `json:"kind"`
	// Title — заголовок
	Title string `json:"title"`
	// Content — текст статьи; для voice пустой
	Content string `json:"content,omitempty"`
	// AudioURL — ссылка на аудио в объектном хранилище (только voice)
	AudioURL *string `json:"audio_url,omitempty"`
	// Transcript — расшифровка аудио (опционально, только voice)
	Transcript *string `json:"transcript,omitempty"`
	// Locale — локаль контента
	Locale string `json:"locale"`
	// Tags — произвольный набор тегов
	Tags []string `json:"tags"`
	// Draft — черновик (не показывается модераторам в очереди)
	Draft bool `json:"draft"`
	// Origin — метаданные происхождения (user-agent, адрес и т.п.)
	Origin map[string]string `json:"origin,omitempty"`
	// Status — статус модерации (pending, approved, rejected, archived)
	Status SubmissionStatus `json:"status"`
	// ReviewNotes — заметки модератора
	ReviewNotes string `json:"review_notes,omitempty"`
	// ReviewerID — UUID модератора; nil до рассмотрения
	ReviewerID *string `json:"reviewer_id,omitempty"`
	// ReviewedAt — время рассмотрения; nil до рассмотрения
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	// CreatedAt — время создания
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt — время последнего изменения
	UpdatedAt time.Time `json:"updated_at"`
}

// PinContent возвращает содержимое пина, создаваемого из заявки:
// для голосовой заметки — ссылку на аудио, для статьи — текст.
func (s *Submission) PinContent() string {
	if s.Kind == SubmissionVoice && s.AudioURL != nil {
		return *s.AudioURL
	}
	return s.Content
}
