// pins.go — обработчики /api/v1/pins endpoints.
// Создание, лента, карточка, смена статуса, удаление, взаимодействия.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/pinwall/internal/api/errors"
	"github.com/arturkryukov/pinwall/internal/domain/model"
	"github.com/arturkryukov/pinwall/internal/service"
)

// createPinRequest — тело запроса создания пина.
type createPinRequest struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Kind      string     `json:"kind"`
	AuthorID  string     `json:"author_id,omitempty"`
	Official  bool       `json:"official"`
	Locale    string     `json:"locale,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// listPinsResponse — страница активной ленты.
type listPinsResponse struct {
	Pins   []*model.Pin `json:"pins"`
	Total  int64        `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// authorPinsResponse — список пинов автора (без общего счётчика).
type authorPinsResponse struct {
	Pins   []*model.Pin `json:"pins"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// CreatePin — POST /api/v1/pins.
// Прямая публикация пина (официальный контент персонала).
// Автор берётся из X-Actor-Id; author_id в теле — запасной вариант.
func (h *APIHandler) CreatePin(w http.ResponseWriter, r *http.Request) {
	var req createPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	author := actorID(r)
	if author == "" {
		author = req.AuthorID
	}

	pin, err := h.lifecycle.CreatePin(r.Context(), service.CreatePinInput{
		Title:     req.Title,
		Content:   req.Content,
		Kind:      model.PinKind(req.Kind),
		AuthorID:  author,
		Official:  req.Official,
		Locale:    req.Locale,
		Tags:      req.Tags,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, pin)
}

// ListPins — GET /api/v1/pins.
// Активная лента с фильтрами kind и official; при ?author=<uuid> —
// пины автора независимо от статуса.
func (h *APIHandler) ListPins(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationDefaults(r)
	q := r.URL.Query()

	if author := q.Get("author"); author != "" {
		pins, err := h.lifecycle.ListPinsByAuthor(r.Context(), author, limit, offset)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, authorPinsResponse{Pins: pins, Limit: limit, Offset: offset})
		return
	}

	var kind *model.PinKind
	if raw := q.Get("kind"); raw != "" {
		k := model.PinKind(raw)
		kind = &k
	}
	var official *bool
	switch q.Get("official") {
	case "true":
		v := true
		official = &v
	case "false":
		v := false
		official = &v
	}

	pins, total, err := h.lifecycle.ListActivePins(r.Context(), kind, official, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listPinsResponse{
		Pins:   pins,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetPin — GET /api/v1/pins/{id}.
func (h *APIHandler) GetPin(w http.ResponseWriter, r *http.Request) {
	pin, err := h.lifecycle.GetPin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pin)
}

// changeStatusRequest — тело запроса смены статуса пина.
type changeStatusRequest struct {
	Status string `json:"status"`
}

// ChangeStatus — PATCH /api/v1/pins/{id}/status.
// Переводит пин в указанный статус. Жизненный цикл однонаправленный:
// active → unpinned → archived; за соблюдением следит вызывающий.
func (h *APIHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	pin, err := h.lifecycle.ChangeStatus(r.Context(), chi.URLParam(r, "id"), model.PinStatus(req.Status))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pin)
}

// DeletePin — DELETE /api/v1/pins/{id}.
func (h *APIHandler) DeletePin(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.DeletePin(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// likeRequest — тело запроса лайка.
type likeRequest struct {
	Subtype string `json:"subtype,omitempty"`
}

// ToggleLike — POST /api/v1/pins/{id}/like.
// Переключает лайк студента: повторный запрос снимает лайк.
func (h *APIHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	student := actorID(r)
	if student == "" {
		apierrors.ValidationError(w, "Заголовок "+actorHeader+" обязателен")
		return
	}

	// Тело опционально: пустое означает подтип по умолчанию
	var req likeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
			return
		}
	}

	result, err := h.engagement.ToggleLike(r.Context(), student, chi.URLParam(r, "id"), model.LikeSubtype(req.Subtype))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// seenRequest — тело запроса отметки просмотра.
type seenRequest struct {
	Duration int64 `json:"duration"`
}

// MarkSeen — POST /api/v1/pins/{id}/seen.
// Отмечает просмотр; длительность фиксируется как максимум из
// переданных значений.
func (h *APIHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	student := actorID(r)
	if student == "" {
		apierrors.ValidationError(w, "Заголовок "+actorHeader+" обязателен")
		return
	}

	var req seenRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
			return
		}
	}

	result, err := h.engagement.MarkSeen(r.Context(), student, chi.URLParam(r, "id"), req.Duration)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetInteractions — GET /api/v1/pins/{id}/interactions.
// Фактические счётчики из таблицы взаимодействий.
func (h *APIHandler) GetInteractions(w http.ResponseWriter, r *http.Request) {
	counts, err := h.engagement.InteractionCounts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
