// Пакет scheduler — внутрипроцессный планировщик периодических задач.
// Явно собираемый реестр поверх robfig/cron: регистрация задач по
// cron-выражениям, пер-задачные пауза/возобновление, ручной запуск и
// статус. Задачи независимы: сбой или паника одной не трогает
// остальные и не снимает её с расписания.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
)

var (
	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pw_scheduler_job_runs_total",
		Help: "Количество запусков задач планировщика по результатам",
	}, []string{"job", "result"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pw_scheduler_job_duration_seconds",
		Help:    "Длительность запусков задач планировщика",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

// JobFunc — тело периодической задачи.
type JobFunc func(ctx context.Context) error

// JobStatus — наблюдаемое состояние задачи.
type JobStatus struct {
	// Name — имя задачи
	Name string `json:"name"`
	// Spec — cron-выражение
	Spec string `json:"spec"`
	// Paused — задача на паузе (по расписанию не запускается)
	Paused bool `json:"paused"`
	// Running — запуск выполняется прямо сейчас
	Running bool `json:"running"`
	// Runs — всего запусков
	Runs int64 `json:"runs"`
	// Failures — запусков, завершившихся ошибкой или паникой
	Failures int64 `json:"failures"`
	// LastRun — время последнего запуска; nil, если запусков не было
	LastRun *time.Time `json:"last_run,omitempty"`
	// LastError — текст последней ошибки; пустой после успешного запуска
	LastError string `json:"last_error,omitempty"`
}

// jobState — задача с состоянием запусков.
type jobState struct {
	name string
	spec string
	fn   JobFunc

	mu       sync.Mutex
	running  bool
	paused   bool
	runs     int64
	failures int64
	lastRun  time.Time
	lastErr  string
}

// Scheduler — реестр периодических задач.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]*jobState

	baseCtx context.Context
}

// New создаёт планировщик. ctx — базовый контекст запусков: его отмена
// обрывает выполняющиеся задачи при остановке процесса.
func New(ctx context.Context, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger.With(slog.String("component", "scheduler")),
		jobs:    make(map[string]*jobState),
		baseCtx: ctx,
	}
}

// Register добавляет задачу в реестр по cron-выражению (5 полей).
// Дублирующееся имя — ошибка.
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("задача %q уже зарегистрирована", name)
	}

	job := &jobState{name: name, spec: spec, fn: fn}
	if _, err := s.cron.AddFunc(spec, func() { s.execute(job, false) }); err != nil {
		return fmt.Errorf("задача %q: некорректное cron-выражение %q: %w", name, spec, err)
	}
	s.jobs[name] = job

	s.logger.Info("Задача зарегистрирована",
		slog.String("job", name),
		slog.String("spec", spec),
	)
	return nil
}

// Start запускает расписание.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Планировщик запущен", slog.Int("jobs", len(s.jobs)))
}

// StopAll останавливает расписание и дожидается завершения
// выполняющихся запусков, но не дольше timeout.
func (s *Scheduler) StopAll(timeout time.Duration) {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		s.logger.Info("Планировщик остановлен")
	case <-time.After(timeout):
		s.logger.Warn("Планировщик остановлен по таймауту, запуски брошены")
	}
}

// Pause приостанавливает задачу: запуски по расписанию пропускаются,
// задача остаётся в реестре.
func (s *Scheduler) Pause(name string) error {
	job, err := s.job(name)
	if err != nil {
		return err
	}
	job.mu.Lock()
	job.paused = true
	job.mu.Unlock()

	s.logger.Info("Задача приостановлена", slog.String("job", name))
	return nil
}

// Resume возобновляет приостановленную задачу.
func (s *Scheduler) Resume(name string) error {
	job, err := s.job(name)
	if err != nil {
		return err
	}
	job.mu.Lock()
	job.paused = false
	job.mu.Unlock()

	s.logger.Info("Задача возобновлена", slog.String("job", name))
	return nil
}

// RunNow запускает задачу немедленно, вне расписания. Пауза не
// мешает явному запуску. Если задача уже выполняется, запуск
// пропускается.
func (s *Scheduler) RunNow(name string) error {
	job, err := s.job(name)
	if err != nil {
		return err
	}
	go s.execute(job, true)
	return nil
}

// Status возвращает состояние задачи.
func (s *Scheduler) Status(name string) (*JobStatus, error) {
	job, err := s.job(name)
	if err != nil {
		return nil, err
	}
	return job.status(), nil
}

// StatusAll возвращает состояние всех задач, отсортированное по имени.
func (s *Scheduler) StatusAll() []*JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*JobStatus, 0, len(s.jobs))
	for _, job := range s.jobs {
		result = append(result, job.status())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// job находит задачу по имени.
func (s *Scheduler) job(name string) (*jobState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("задача %q не зарегистрирована", name)
	}
	return job, nil
}

// execute выполняет один запуск задачи: guard от повторного входа,
// учёт паузы для запусков по расписанию, перехват паники, метрики.
func (s *Scheduler) execute(job *jobState, manual bool) {
	job.mu.Lock()
	if job.running {
		job.mu.Unlock()
		jobRuns.WithLabelValues(job.name, "skipped").Inc()
		s.logger.Warn("Запуск пропущен: предыдущий ещё выполняется", slog.String("job", job.name))
		return
	}
	if job.paused && !manual {
		job.mu.Unlock()
		return
	}
	job.running = true
	now := time.Now().UTC()
	job.lastRun = now
	job.runs++
	job.mu.Unlock()

	start := time.Now()
	err := s.runProtected(job)
	jobDuration.WithLabelValues(job.name).Observe(time.Since(start).Seconds())

	job.mu.Lock()
	job.running = false
	if err != nil {
		job.failures++
		job.lastErr = err.Error()
	} else {
		job.lastErr = ""
	}
	job.mu.Unlock()

	if err != nil {
		jobRuns.WithLabelValues(job.name, "error").Inc()
		s.logger.Error("Задача завершилась с ошибкой",
			slog.String("job", job.name),
			slog.String("error", err.Error()),
		)
		return
	}
	jobRuns.WithLabelValues(job.name, "ok").Inc()
	s.logger.Debug("Задача выполнена", slog.String("job", job.name))
}

// runProtected вызывает тело задачи, превращая панику в ошибку.
func (s *Scheduler) runProtected(job *jobState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника в задаче %s: %v", job.name, r)
		}
	}()
	return job.fn(s.baseCtx)
}

func (j *jobState) status() *JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	st := &JobStatus{
		Name:      j.name,
		Spec:      j.spec,
		Paused:    j.paused,
		Running:   j.running,
		Runs:      j.runs,
		Failures:  j.failures,
		LastError: j.lastErr,
	}
	if !j.lastRun.IsZero() {
		lr := j.lastRun
		st.LastRun = &lr
	}
	return st
}
