// Package scheduler evaluates a single cron expression and, on each tick,
// asks the Selector for due repositories and ready inter-project groups and
// enqueues one Job Queue job per candidate.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dupeforge/dupeforge/internal/queue"
	"github.com/dupeforge/dupeforge/internal/selector"
	"github.com/dupeforge/dupeforge/models"
)

// Dispatcher routes a ScanJob to the Orchestrator or the Inter-Project
// Coordinator by its Kind, so a single Job Queue can serve both.
type Dispatcher struct {
	Intra queue.Runner
	Inter queue.Runner
}

func (d Dispatcher) Run(ctx context.Context, job *models.ScanJob) error {
	if job.Kind == models.JobKindInter {
		return d.Inter.Run(ctx, job)
	}
	return d.Intra.Run(ctx, job)
}

// Options configures a Scheduler. Schedule is a standard 5-field cron
// expression; MaxRepos bounds how many repositories a single tick enqueues.
type Options struct {
	Schedule     string
	RunOnStartup bool
	MaxRepos     int
	JobTimeout   time.Duration
}

// Scheduler is the single-instance, no-distributed-leadership cron driver
// described for the Clock & Scheduler component: one cron expression, one
// tick handler, no schedule CRUD.
type Scheduler struct {
	cron *cron.Cron
	sel  *selector.Selector
	q    *queue.Queue

	maxRepos   int
	jobTimeout time.Duration
}

// New builds a Scheduler and registers its tick against opts.Schedule. It
// does not start the cron runner; call Start for that.
func New(sel *selector.Selector, q *queue.Queue, opts Options) (*Scheduler, error) {
	if opts.MaxRepos <= 0 {
		opts.MaxRepos = 20
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 10 * time.Minute
	}

	s := &Scheduler{
		cron:       cron.New(),
		sel:        sel,
		q:          q,
		maxRepos:   opts.MaxRepos,
		jobTimeout: opts.JobTimeout,
	}

	if _, err := s.cron.AddFunc(opts.Schedule, s.Tick); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", opts.Schedule, err)
	}

	if opts.RunOnStartup {
		s.Tick()
	}

	return s, nil
}

// Start begins evaluating the cron schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron runner, blocking until any in-flight tick returns.
// It does not wait for jobs the tick enqueued — that's the Queue's job
// (see Queue.Wait).
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Tick runs one selection-and-enqueue pass. A prior tick's jobs still
// running does not block or skip this one; the Job Queue's own concurrency
// limit is what bounds overlap.
func (s *Scheduler) Tick() {
	now := time.Now()

	repos := s.sel.Pick(now, s.maxRepos)
	for _, r := range repos {
		s.q.Enqueue(context.Background(), models.JobKindIntra, r.Name, s.jobTimeout)
	}

	groups := s.sel.PickGroups()
	for _, g := range groups {
		s.q.Enqueue(context.Background(), models.JobKindInter, g.Name, s.jobTimeout)
	}

	slog.Info("scheduler tick", "repos_enqueued", len(repos), "groups_enqueued", len(groups))
}
