package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arturkryukov/pinwall/internal/scheduler"
)

// newSchedulerRouter собирает обработчик поверх реального планировщика
// и маршрутизатор для тестов endpoints /api/v1/scheduler.
func newSchedulerRouter(t *testing.T, jobs *scheduler.Scheduler) http.Handler {
	t.Helper()

	h := NewAPIHandler(nil, nil, nil, nil, nil, jobs, testLogger())

	r := chi.NewRouter()
	r.Get("/api/v1/scheduler/jobs", h.ListJobs)
	r.Post("/api/v1/scheduler/jobs/{name}/run", h.RunJob)
	r.Post("/api/v1/scheduler/jobs/{name}/pause", h.PauseJob)
	r.Post("/api/v1/scheduler/jobs/{name}/resume", h.ResumeJob)
	return r
}

func TestListJobs(t *testing.T) {
	jobs := scheduler.New(context.Background(), testLogger())
	if err := jobs.Register("pin-expiration", "0 * * * *", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Register() ошибка: %v", err)
	}
	router := newSchedulerRouter(t, jobs)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/jobs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Статус = %d, хотели 200", rec.Code)
	}

	var resp listJobsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Декодирование ответа: %v", err)
	}
	if len(resp.Jobs) != 1 {
		t.Fatalf("Задач в ответе %d, хотели 1", len(resp.Jobs))
	}
	if resp.Jobs[0].Name != "pin-expiration" || resp.Jobs[0].Spec != "0 * * * *" {
		t.Errorf("Задача = %+v", resp.Jobs[0])
	}
}

func TestPauseAndResumeJob(t *testing.T) {
	jobs := scheduler.New(context.Background(), testLogger())
	if err := jobs.Register("weekly-cleanup", "0 2 * * 0", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Register() ошибка: %v", err)
	}
	router := newSchedulerRouter(t, jobs)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/jobs/weekly-cleanup/pause", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Пауза: статус = %d, хотели 200", rec.Code)
	}

	var st scheduler.JobStatus
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("Декодирование ответа: %v", err)
	}
	if !st.Paused {
		t.Error("Paused = false после паузы")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/jobs/weekly-cleanup/resume", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Возобновление: статус = %d, хотели 200", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("Декодирование ответа: %v", err)
	}
	if st.Paused {
		t.Error("Paused = true после возобновления")
	}
}

func TestRunJob(t *testing.T) {
	jobs := scheduler.New(context.Background(), testLogger())

	done := make(chan struct{})
	if err := jobs.Register("daily-analytics", "0 6 * * *", func(context.Context) error {
		close(done)
		return nil
	}); err != nil {
		t.Fatalf("Register() ошибка: %v", err)
	}
	router := newSchedulerRouter(t, jobs)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/jobs/daily-analytics/run", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Статус = %d, хотели 202", rec.Code)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Задача не запустилась после POST /run")
	}
}

func TestRunJobUnknown(t *testing.T) {
	router := newSchedulerRouter(t, scheduler.New(context.Background(), testLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/jobs/missing/run", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Статус = %d, хотели 404", rec.Code)
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Декодирование ответа: %v", err)
	}
	if body.Error.Code != "NOT_FOUND" {
		t.Errorf("Код ошибки = %q, хотели NOT_FOUND", body.Error.Code)
	}
}
