// submissions.go — обработчики /api/v1/submissions endpoints.
// Подача голосовых заметок и статей, очередь модерации, рассмотрение,
// архивирование.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/pinwall/internal/api/errors"
	"github.com/arturkryukov/pinwall/internal/domain/model"
	"github.com/arturkryukov/pinwall/internal/service"
)

// submitVoiceRequest — тело заявки с голосовой заметкой.
type submitVoiceRequest struct {
	Title      string   `json:"title"`
	AudioURL   string   `json:"audio_url"`
	Transcript string   `json:"transcript,omitempty"`
	Locale     string   `json:"locale,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Draft      bool     `json:"draft"`
}

// submitArticleRequest — тело заявки со статьёй.
type submitArticleRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Locale  string   `json:"locale,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Draft   bool     `json:"draft"`
}

// listSubmissionsResponse — страница списка заявок.
type listSubmissionsResponse struct {
	Submissions []*model.Submission `json:"submissions"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

// SubmitVoiceNote — POST /api/v1/submissions/voice.
// Студент подаёт голосовую заметку на модерацию.
func (h *APIHandler) SubmitVoiceNote(w http.ResponseWriter, r *http.Request) {
	student := actorID(r)
	if student == "" {
		apierrors.ValidationError(w, "Заголовок "+actorHeader+" обязателен")
		return
	}

	var req submitVoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	sub, err := h.moderation.SubmitVoiceNote(r.Context(), service.SubmitVoiceInput{
		StudentID:  student,
		Title:      req.Title,
		AudioURL:   req.AudioURL,
		Transcript: req.Transcript,
		Locale:     req.Locale,
		Tags:       req.Tags,
		Draft:      req.Draft,
		Origin:     requestOrigin(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// SubmitArticle — POST /api/v1/submissions/article.
// Студент подаёт статью на модерацию.
func (h *APIHandler) SubmitArticle(w http.ResponseWriter, r *http.Request) {
	student := actorID(r)
	if student == "" {
		apierrors.ValidationError(w, "Заголовок "+actorHeader+" обязателен")
		return
	}

	var req submitArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	sub, err := h.moderation.SubmitArticle(r.Context(), service.SubmitArticleInput{
		StudentID: student,
		Title:     req.Title,
		Content:   req.Content,
		Locale:    req.Locale,
		Tags:      req.Tags,
		Draft:     req.Draft,
		Origin:    requestOrigin(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// ListSubmissions — GET /api/v1/submissions.
// Очередь модерации (pending, без черновиков) с фильтром kind;
// при ?student=<uuid> — заявки студента во всех статусах.
func (h *APIHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationDefaults(r)
	q := r.URL.Query()

	var (
		subs []*model.Submission
		err  error
	)
	if student := q.Get("student"); student != "" {
		subs, err = h.moderation.ListByStudent(r.Context(), student, limit, offset)
	} else {
		var kind *model.SubmissionKind
		if raw := q.Get("kind"); raw != "" {
			k := model.SubmissionKind(raw)
			kind = &k
		}
		subs, err = h.moderation.ListPending(r.Context(), kind, limit, offset)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listSubmissionsResponse{
		Submissions: subs,
		Limit:       limit,
		Offset:      offset,
	})
}

// GetSubmission — GET /api/v1/submissions/{id}.
func (h *APIHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.moderation.GetSubmission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// reviewRequest — тело запроса рассмотрения заявки.
type reviewRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes,omitempty"`
}

// ReviewSubmission — POST /api/v1/submissions/{id}/review.
// Модератор одобряет или отклоняет заявку. При одобрении создаётся
// активный пин; ответ содержит заявку и пин.
func (h *APIHandler) ReviewSubmission(w http.ResponseWriter, r *http.Request) {
	reviewer := actorID(r)
	if reviewer == "" {
		apierrors.ValidationError(w, "Заголовок "+actorHeader+" обязателен")
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	result, err := h.moderation.Review(r.Context(), chi.URLParam(r, "id"), reviewer, req.Action, req.Notes)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ArchiveSubmission — POST /api/v1/submissions/{id}/archive.
// Переводит заявку в архив; допускается только из pending и rejected.
func (h *APIHandler) ArchiveSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.moderation.Archive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
