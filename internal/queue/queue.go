// Package queue implements a bounded-concurrency worker pool with
// exponential-backoff retries, atomic job-state transitions, and per-job
// JSON history files. Jobs carry no priority, and jobs waiting for a worker
// slot are not guaranteed to start in the order they were enqueued.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dupeforge/dupeforge/internal/errs"
	"github.com/dupeforge/dupeforge/internal/eventbus"
	"github.com/dupeforge/dupeforge/models"
)

// Runner executes one ScanJob and returns a typed *errs.Error on failure.
// Implemented by the Orchestrator and the Inter-Project Coordinator.
type Runner interface {
	Run(ctx context.Context, job *models.ScanJob) error
}

// Queue is the bounded-concurrency job runner; it does not order waiting jobs
// by priority or by arrival.
type Queue struct {
	runner      Runner
	bus         *eventbus.Bus
	historyDir  string
	maxAttempts int
	retryDelay  time.Duration

	sem chan struct{}

	mu     sync.Mutex
	jobs   map[string]*models.ScanJob
	cancel map[string]context.CancelFunc

	wg sync.WaitGroup
}

// Options configures a new Queue.
type Options struct {
	MaxConcurrentScans int
	MaxAttempts        int
	RetryDelay         time.Duration
	HistoryDir         string
}

func New(runner Runner, bus *eventbus.Bus, opts Options) *Queue {
	if opts.MaxConcurrentScans <= 0 {
		opts.MaxConcurrentScans = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	return &Queue{
		runner:      runner,
		bus:         bus,
		historyDir:  opts.HistoryDir,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		sem:         make(chan struct{}, opts.MaxConcurrentScans),
		jobs:        make(map[string]*models.ScanJob),
		cancel:      make(map[string]context.CancelFunc),
	}
}

// Enqueue creates a new ScanJob for target and schedules it. Enqueue itself
// never blocks on worker availability — it spawns a goroutine that acquires
// a pool slot, so callers (the Scheduler) are never stalled by a full pool.
func (q *Queue) Enqueue(ctx context.Context, kind models.JobKind, target string, timeout time.Duration) *models.ScanJob {
	job := &models.ScanJob{
		ID:          uuid.NewString(),
		Kind:        kind,
		Target:      target,
		State:       models.JobQueued,
		Attempts:    0,
		MaxAttempts: q.maxAttempts,
		CreatedAt:   time.Now(),
	}
	q.mu.Lock()
	q.jobs[job.ID] = job
	q.mu.Unlock()

	q.bus.Publish(models.Event{Type: models.EventJobCreated, Timestamp: job.CreatedAt, JobID: job.ID, Payload: map[string]any{"target": target, "kind": kind}})

	q.wg.Add(1)
	go q.run(ctx, job, timeout)
	return job
}

// Cancel requests cooperative cancellation of a running job or of one waiting
// for a worker slot. It returns false for an unknown job ID; a job waiting out
// a retry delay is not stopped by it.
func (q *Queue) Cancel(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	cancel, ok := q.cancel[jobID]
	if !ok {
		return false
	}
	cancel()
	return true
}

// Get returns a snapshot of a job's current state.
func (q *Queue) Get(jobID string) (models.ScanJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[jobID]
	if !ok {
		return models.ScanJob{}, false
	}
	return *j, true
}

// Wait blocks until every enqueued job (including retries) has reached a
// terminal state. Useful for on-demand CLI invocations and tests.
func (q *Queue) Wait() { q.wg.Wait() }

func (q *Queue) run(parent context.Context, job *models.ScanJob, timeout time.Duration) {
	defer q.wg.Done()

	runCtx, stop := context.WithCancel(parent)
	q.mu.Lock()
	q.cancel[job.ID] = stop
	q.mu.Unlock()
	defer stop()

	select {
	case q.sem <- struct{}{}:
	case <-runCtx.Done():
		q.transition(job, models.JobCanceled, nil)
		return
	}
	defer func() { <-q.sem }()

	jobCtx, cancel := context.WithTimeout(runCtx, timeout)
	defer cancel()

	q.transition(job, models.JobRunning, nil)
	now := time.Now()
	job.StartedAt = &now
	q.bus.Publish(models.Event{Type: models.EventJobStarted, Timestamp: now, JobID: job.ID})

	job.Attempts++
	err := q.runner.Run(jobCtx, job)
	ended := time.Now()
	job.EndedAt = &ended

	if err == nil {
		q.transition(job, models.JobCompleted, nil)
		q.bus.Publish(models.Event{Type: models.EventJobCompleted, Timestamp: ended, JobID: job.ID})
		q.writeHistory(job)
		return
	}

	kind := errs.KindOf(err)
	if kind == errs.KindCancel || jobCtx.Err() == context.Canceled {
		q.transition(job, models.JobCanceled, nil)
		q.bus.Publish(models.Event{Type: models.EventJobCanceled, Timestamp: ended, JobID: job.ID})
		q.writeHistory(job)
		return
	}
	if jobCtx.Err() == context.DeadlineExceeded {
		kind = errs.KindTimeout
	}

	willRetry := kind.Retryable() && job.Attempts < job.MaxAttempts
	jobErr := &models.JobError{
		Kind:          string(kind),
		Message:       err.Error(),
		AttemptNumber: job.Attempts,
		WillRetry:     willRetry,
	}
	if willRetry {
		delay := q.retryDelay * time.Duration(1<<uint(job.Attempts-1))
		next := time.Now().Add(delay)
		jobErr.NextRetryAt = &next
	}
	job.Error = jobErr
	q.transition(job, models.JobFailed, nil)
	q.bus.Publish(models.Event{Type: models.EventJobFailed, Timestamp: ended, JobID: job.ID, Payload: map[string]any{"error": jobErr}})
	q.writeHistory(job)

	if !willRetry {
		slog.Warn("queue: job failed, not retrying", "job", job.ID, "kind", kind, "error", err)
		return
	}

	delay := time.Until(*jobErr.NextRetryAt)
	q.bus.Publish(models.Event{Type: models.EventJobRetrying, Timestamp: time.Now(), JobID: job.ID, Payload: map[string]any{"nextRetryAt": jobErr.NextRetryAt}})
	q.transition(job, models.JobQueued, nil)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		select {
		case <-time.After(delay):
		case <-parent.Done():
			q.transition(job, models.JobCanceled, nil)
			return
		}
		q.wg.Add(1)
		q.run(parent, job, timeout)
	}()
}

// transition applies a state change if and only if it is legal from the
// job's current state, enforcing the monotonic job state machine.
func (q *Queue) transition(job *models.ScanJob, next models.JobState, progress *models.Progress) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job.State != next && !job.CanTransition(next) {
		return
	}
	job.State = next
	if progress != nil {
		job.Progress = progress
	}
}

// Progress publishes a scan:progress event and records it on the job.
func (q *Queue) Progress(job *models.ScanJob, stage string, percent int, message string) {
	p := &models.Progress{Stage: stage, Percent: percent, Message: message}
	q.transition(job, job.State, p)
	q.bus.Publish(models.Event{
		Type:      models.EventScanProgress,
		Timestamp: time.Now(),
		JobID:     job.ID,
		Payload:   map[string]any{"stage": stage, "percent": percent, "message": message},
	})
}

func (q *Queue) writeHistory(job *models.ScanJob) {
	if q.historyDir == "" {
		return
	}
	sub := "completed"
	if job.State == models.JobFailed {
		sub = "failed"
	} else if job.State == models.JobCanceled {
		sub = "canceled"
	}
	dir := filepath.Join(q.historyDir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("queue: failed to create history dir", "dir", dir, "error", err)
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.json", job.ID))
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		slog.Warn("queue: failed to marshal job history", "job", job.ID, "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Warn("queue: failed to write job history", "job", job.ID, "error", err)
	}
}
