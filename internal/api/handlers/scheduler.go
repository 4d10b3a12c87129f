// scheduler.go — обработчики /api/v1/scheduler endpoints.
// Реестр периодических задач: статус, ручной запуск, пауза, возобновление.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/pinwall/internal/api/errors"
	"github.com/arturkryukov/pinwall/internal/scheduler"
)

// listJobsResponse — состояние всех задач планировщика.
type listJobsResponse struct {
	Jobs []*scheduler.JobStatus `json:"jobs"`
}

// ListJobs — GET /api/v1/scheduler/jobs.
func (h *APIHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listJobsResponse{Jobs: h.jobs.StatusAll()})
}

// RunJob — POST /api/v1/scheduler/jobs/{name}/run.
// Запускает задачу немедленно, вне расписания. Запуск асинхронный:
// ответ 202 с текущим статусом задачи.
func (h *APIHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.jobs.RunNow(name); err != nil {
		apierrors.NotFound(w, err.Error())
		return
	}

	st, err := h.jobs.Status(name)
	if err != nil {
		apierrors.NotFound(w, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, st)
}

// PauseJob — POST /api/v1/scheduler/jobs/{name}/pause.
// Приостанавливает запуски по расписанию; задача остаётся в реестре.
func (h *APIHandler) PauseJob(w http.ResponseWriter, r *http.Request) {
	h.toggleJob(w, r, h.jobs.Pause)
}

// ResumeJob — POST /api/v1/scheduler/jobs/{name}/resume.
func (h *APIHandler) ResumeJob(w http.ResponseWriter, r *http.Request) {
	h.toggleJob(w, r, h.jobs.Resume)
}

// toggleJob применяет операцию к задаче и возвращает её статус.
func (h *APIHandler) toggleJob(w http.ResponseWriter, r *http.Request, op func(string) error) {
	name := chi.URLParam(r, "name")
	if err := op(name); err != nil {
		apierrors.NotFound(w, err.Error())
		return
	}

	st, err := h.jobs.Status(name)
	if err != nil {
		apierrors.NotFound(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}
