package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/unify/internal/globaltime"
	"horse.fit/unify/internal/normalize"
	"horse.fit/unify/internal/reconcile"
	"horse.fit/unify/internal/record"
	"horse.fit/unify/internal/source"
)

type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether a job in this state will never change again.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Job is one research job. Snapshots returned by the scheduler are copies;
// the scheduler owns the live record.
type Job struct {
	JobID      string              `json:"job_id"`
	EntityKey  string              `json:"entity_key"`
	EntityType record.EntityType   `json:"entity_type"`
	State      State               `json:"state"`
	CreatedAt  time.Time           `json:"created_at"`
	StartedAt  *time.Time          `json:"started_at,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	Error      *string             `json:"error,omitempty"`
	Result     *reconcile.RunStats `json:"result,omitempty"`
}

// Runner executes one reconciliation on behalf of a job.
type Runner func(ctx context.Context, ref source.EntityRef, jobID string) (*reconcile.RunStats, error)

var (
	ErrNotFound     = errors.New("job not found")
	ErrTerminal     = errors.New("job already finished")
	ErrShuttingDown = errors.New("scheduler is shutting down")
)

// Scheduler owns every research job: one registry, one mutex, a bounded
// worker pool sized at construction. Concurrent submissions for the same
// entity key coalesce onto the one active job for that key.
type Scheduler struct {
	mu      sync.Mutex
	cond    *sync.Cond
	jobs    map[string]*Job
	active  map[string]string
	queue   []string
	cancels map[string]context.CancelFunc
	closed  bool

	runner    Runner
	retention time.Duration
	logger    zerolog.Logger

	baseCtx     context.Context
	baseCancel  context.CancelFunc
	workers     sync.WaitGroup
	janitorTick *time.Ticker
	janitorDone chan struct{}
}

func New(runner Runner, workerCount int, retention time.Duration, logger zerolog.Logger) *Scheduler {
	if workerCount <= 0 {
		workerCount = 4
	}
	if retention <= 0 {
		retention = 5 * time.Minute
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	s := &Scheduler{
		jobs:        map[string]*Job{},
		active:      map[string]string{},
		cancels:     map[string]context.CancelFunc{},
		runner:      runner,
		retention:   retention,
		logger:      logger,
		baseCtx:     baseCtx,
		baseCancel:  baseCancel,
		janitorDone: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	for i := 0; i < workerCount; i++ {
		s.workers.Add(1)
		go s.worker()
	}

	s.janitorTick = time.NewTicker(retention / 2)
	go s.janitor()

	return s
}

// Submit enqueues a research job for one entity key. If a job for the same
// canonical key is already queued or running, that job is returned instead
// of creating a second one.
func (s *Scheduler) Submit(entityType record.EntityType, rawKey string) (Job, bool, error) {
	if !entityType.Valid() {
		return Job{}, false, fmt.Errorf("unknown entity type %q", entityType)
	}
	key := normalize.CoalesceKey(entityType, rawKey)
	if key == "" {
		return Job{}, false, fmt.Errorf("entity key %q normalizes to nothing", rawKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Job{}, false, ErrShuttingDown
	}

	s.purgeExpiredLocked(globaltime.Now())

	activeKey := string(entityType) + "|" + key
	if jobID, found := s.active[activeKey]; found {
		if job, ok := s.jobs[jobID]; ok && !job.State.Terminal() {
			return snapshot(job), true, nil
		}
		delete(s.active, activeKey)
	}

	job := &Job{
		JobID:      uuid.NewString(),
		EntityKey:  key,
		EntityType: entityType,
		State:      StateQueued,
		CreatedAt:  globaltime.Now(),
	}
	s.jobs[job.JobID] = job
	s.active[activeKey] = job.JobID
	s.queue = append(s.queue, job.JobID)
	s.cond.Signal()

	s.logger.Info().
		Str("job_id", job.JobID).
		Str("entity_key", key).
		Str("entity_type", string(entityType)).
		Msg("research job queued")

	return snapshot(job), false, nil
}

// Get returns a snapshot of one job.
func (s *Scheduler) Get(jobID string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, found := s.jobs[strings.TrimSpace(jobID)]
	if !found {
		return Job{}, false
	}
	return snapshot(job), true
}

// Cancel requests cooperative cancellation. A queued job is cancelled on the
// spot; a running job gets its context cancelled and finishes when its
// runner observes that.
func (s *Scheduler) Cancel(jobID string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, found := s.jobs[strings.TrimSpace(jobID)]
	if !found {
		return Job{}, ErrNotFound
	}

	switch job.State {
	case StateQueued:
		s.removeFromQueueLocked(job.JobID)
		s.finishLocked(job, StateCancelled, "cancelled before start", nil)
		return snapshot(job), nil
	case StateRunning:
		if cancel, ok := s.cancels[job.JobID]; ok {
			cancel()
		}
		return snapshot(job), nil
	default:
		return snapshot(job), ErrTerminal
	}
}

// Jobs returns snapshots of every known job, newest first.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, snapshot(job))
	}
	return jobs
}

// Shutdown stops accepting jobs, cancels everything in flight and waits for
// the workers to drain or the context to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, jobID := range s.queue {
		if job, ok := s.jobs[jobID]; ok && job.State == StateQueued {
			s.finishLocked(job, StateCancelled, "scheduler shut down", nil)
		}
	}
	s.queue = nil
	s.cond.Broadcast()
	s.mu.Unlock()

	s.baseCancel()
	s.janitorTick.Stop()
	close(s.janitorDone)

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain workers: %w", ctx.Err())
	}
}

func (s *Scheduler) worker() {
	defer s.workers.Done()

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed && len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}

		jobID := s.queue[0]
		s.queue = s.queue[1:]
		job, found := s.jobs[jobID]
		if !found || job.State != StateQueued {
			s.mu.Unlock()
			continue
		}

		now := globaltime.Now()
		job.State = StateRunning
		job.StartedAt = &now
		jobCtx, cancel := context.WithCancel(s.baseCtx)
		s.cancels[jobID] = cancel
		ref := source.EntityRef{Key: job.EntityKey, Type: job.EntityType}
		s.mu.Unlock()

		stats, err := s.runJob(jobCtx, ref, jobID)
		cancel()

		s.mu.Lock()
		switch {
		case err == nil:
			s.finishLocked(job, StateCompleted, "", stats)
		case errors.Is(err, context.Canceled) || jobCtx.Err() != nil:
			s.finishLocked(job, StateCancelled, "cancelled while running", nil)
		default:
			s.finishLocked(job, StateFailed, err.Error(), nil)
		}
		delete(s.cancels, jobID)
		s.mu.Unlock()
	}
}

// runJob isolates runner panics so one exploding job never takes down a
// worker or the process.
func (s *Scheduler) runJob(ctx context.Context, ref source.EntityRef, jobID string) (stats *reconcile.RunStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			stats = nil
			err = fmt.Errorf("job panicked: %v", r)
			s.logger.Error().
				Str("job_id", jobID).
				Interface("panic", r).
				Msg("research job panicked")
		}
	}()
	return s.runner(ctx, ref, jobID)
}

func (s *Scheduler) janitor() {
	for {
		select {
		case <-s.janitorTick.C:
			s.mu.Lock()
			s.purgeExpiredLocked(globaltime.Now())
			s.mu.Unlock()
		case <-s.janitorDone:
			return
		}
	}
}

// purgeExpiredLocked drops terminal jobs past the retention window so the
// registry never grows without bound. Callers hold the mutex.
func (s *Scheduler) purgeExpiredLocked(now time.Time) {
	for jobID, job := range s.jobs {
		if !job.State.Terminal() || job.FinishedAt == nil {
			continue
		}
		if now.Sub(*job.FinishedAt) < s.retention {
			continue
		}
		delete(s.jobs, jobID)
		activeKey := string(job.EntityType) + "|" + job.EntityKey
		if s.active[activeKey] == jobID {
			delete(s.active, activeKey)
		}
	}
}

func (s *Scheduler) finishLocked(job *Job, state State, errMsg string, stats *reconcile.RunStats) {
	now := globaltime.Now()
	job.State = state
	job.FinishedAt = &now
	if errMsg != "" {
		job.Error = &errMsg
	}
	job.Result = stats

	activeKey := string(job.EntityType) + "|" + job.EntityKey
	if s.active[activeKey] == job.JobID {
		delete(s.active, activeKey)
	}

	event := s.logger.Info()
	if state == StateFailed {
		event = s.logger.Error()
	}
	event.
		Str("job_id", job.JobID).
		Str("entity_key", job.EntityKey).
		Str("state", string(state)).
		Msg("research job finished")
}

func (s *Scheduler) removeFromQueueLocked(jobID string) {
	for i, queued := range s.queue {
		if queued == jobID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

func snapshot(job *Job) Job {
	copied := *job
	if job.StartedAt != nil {
		startedAt := *job.StartedAt
		copied.StartedAt = &startedAt
	}
	if job.FinishedAt != nil {
		finishedAt := *job.FinishedAt
		copied.FinishedAt = &finishedAt
	}
	if job.Error != nil {
		errMsg := *job.Error
		copied.Error = &errMsg
	}
	return copied
}
