package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dupeforge/dupeforge/internal/errs"
	"github.com/dupeforge/dupeforge/internal/eventbus"
	"github.com/dupeforge/dupeforge/models"
)

// fakeRunner lets a test script exactly what happens on each call.
type fakeRunner struct {
	calls int32
	fn    func(calls int32) error
}

func (f *fakeRunner) Run(ctx context.Context, job *models.ScanJob) error {
	n := atomic.AddInt32(&f.calls, 1)
	return f.fn(n)
}

// blockingRunner runs until its context is canceled, for exercising Cancel.
type blockingRunner struct {
	started chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context, job *models.ScanJob) error {
	close(b.started)
	<-ctx.Done()
	return errs.New(errs.KindCancel, "test", ctx.Err())
}

func TestEnqueueRunsToCompletion(t *testing.T) {
	bus := eventbus.New()
	runner := &fakeRunner{fn: func(int32) error { return nil }}
	q := New(runner, bus, Options{MaxConcurrentScans: 1, MaxAttempts: 1})

	job := q.Enqueue(context.Background(), models.JobKindIntra, "svc-a", time.Second)
	q.Wait()

	got, ok := q.Get(job.ID)
	if !ok {
		t.Fatal("expected job to still be tracked after completion")
	}
	if got.State != models.JobCompleted {
		t.Errorf("State = %q, want %q", got.State, models.JobCompleted)
	}
	if got.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", got.Attempts)
	}
}

func TestEnqueueRetriesRetryableErrors(t *testing.T) {
	bus := eventbus.New()
	runner := &fakeRunner{fn: func(n int32) error {
		if n < 3 {
			return errs.New(errs.KindPatternGateway, "test", errors.New("transient"))
		}
		return nil
	}}
	q := New(runner, bus, Options{MaxConcurrentScans: 1, MaxAttempts: 3, RetryDelay: time.Millisecond})

	job := q.Enqueue(context.Background(), models.JobKindIntra, "svc-a", time.Second)
	q.Wait()

	got, _ := q.Get(job.ID)
	if got.State != models.JobCompleted {
		t.Fatalf("State = %q, want %q after retries", got.State, models.JobCompleted)
	}
	if got.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", got.Attempts)
	}
}

func TestEnqueueGivesUpAfterMaxAttempts(t *testing.T) {
	bus := eventbus.New()
	runner := &fakeRunner{fn: func(int32) error {
		return errs.New(errs.KindPatternGateway, "test", errors.New("persistent"))
	}}
	q := New(runner, bus, Options{MaxConcurrentScans: 1, MaxAttempts: 2, RetryDelay: time.Millisecond})

	job := q.Enqueue(context.Background(), models.JobKindIntra, "svc-a", time.Second)
	q.Wait()

	got, _ := q.Get(job.ID)
	if got.State != models.JobFailed {
		t.Fatalf("State = %q, want %q", got.State, models.JobFailed)
	}
	if got.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", got.Attempts)
	}
}

func TestEnqueueDoesNotRetryNonRetryableErrors(t *testing.T) {
	bus := eventbus.New()
	runner := &fakeRunner{fn: func(int32) error {
		return errs.New(errs.KindValidation, "test", errors.New("bad input"))
	}}
	q := New(runner, bus, Options{MaxConcurrentScans: 1, MaxAttempts: 5})

	job := q.Enqueue(context.Background(), models.JobKindIntra, "svc-a", time.Second)
	q.Wait()

	got, _ := q.Get(job.ID)
	if got.State != models.JobFailed {
		t.Fatalf("State = %q, want %q", got.State, models.JobFailed)
	}
	if got.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 (no retry for a non-retryable error)", got.Attempts)
	}
}

func TestCancelStopsARunningJob(t *testing.T) {
	bus := eventbus.New()
	runner := &blockingRunner{started: make(chan struct{})}
	q := New(runner, bus, Options{MaxConcurrentScans: 1, MaxAttempts: 1})

	job := q.Enqueue(context.Background(), models.JobKindIntra, "svc-a", time.Hour)
	<-runner.started
	if !q.Cancel(job.ID) {
		t.Fatal("Cancel returned false for a running job")
	}
	q.Wait()

	got, _ := q.Get(job.ID)
	if got.State != models.JobCanceled {
		t.Errorf("State = %q, want %q", got.State, models.JobCanceled)
	}
}
